package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-gl/mathgl/mgl64"

	"asset-catalog/internal/archive"
	"asset-catalog/internal/logging"
	"asset-catalog/internal/mediatypes"
	"asset-catalog/internal/metrics"
)

const (
	// Size is the width and height of a rendered thumbnail.
	Size = 400
	// Quality is the JPEG quality of a rendered thumbnail.
	Quality = 70

	cameraDistance = 2.5
	fieldOfView    = math.Pi / 3
	nearPlane      = 0.01
	farPlane       = 100

	ambient        = 0.2
	keyIntensity   = 0.8
	fillIntensity  = keyIntensity / 2
	backgroundGrey = 0.1
)

var (
	cameraAzimuth   = math.Pi / 4
	cameraElevation = math.Atan(1 / math.Sqrt2)

	baseColor = mgl64.Vec3{0.8, 0.5, 0.2}
	keyColor  = mgl64.Vec3{1, 1, 1}
	fillColor = mgl64.Vec3{0.8, 0.8, 1.0}
	up        = mgl64.Vec3{0, 0, 1}
)

// IsModelName reports whether name is a model the rasterizer can load.
func IsModelName(name string) bool {
	return mediatypes.IsRenderable(name)
}

// Render loads the STL or OBJ file at path and returns a 400×400 JPEG of it.
// Panics inside the loader or rasterizer are returned as errors.
func Render(path string) (out []byte, err error) {
	defer recoverInto(&out, &err)

	start := time.Now()
	mesh, err := Load(path)
	if err != nil {
		metrics.RenderTotal.WithLabelValues(loadStatus(err)).Inc()
		return nil, fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}

	out, err = draw(mesh)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	logging.Debug("Rendered %s (%d triangles) in %v", filepath.Base(path), len(mesh.Triangles), time.Since(start))
	return out, nil
}

func recoverInto(out *[]byte, err *error) {
	if r := recover(); r != nil {
		metrics.RenderTotal.WithLabelValues("error_panic").Inc()
		*out = nil
		*err = fmt.Errorf("render panic: %v", r)
	}
}

func loadStatus(err error) string {
	if errors.Is(err, ErrEmptyMesh) {
		return "error_empty"
	}
	return "error_load"
}

// FindRenderable returns the first STL or OBJ file below dir in lexical
// walk order, skipping junk entries.
func FindRenderable(dir string) (string, bool) {
	var found string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if archive.IsJunk(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsModelName(path) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found, found != ""
}

// camera holds the orthonormal view basis.
type camera struct {
	eye     mgl64.Vec3
	x, y, z mgl64.Vec3
}

func newCamera() camera {
	eye := mgl64.Vec3{
		cameraDistance * math.Cos(cameraElevation) * math.Cos(cameraAzimuth),
		cameraDistance * math.Cos(cameraElevation) * math.Sin(cameraAzimuth),
		cameraDistance * math.Sin(cameraElevation),
	}
	z := eye.Normalize() // target is the origin
	x := up.Cross(z).Normalize()
	y := z.Cross(x)
	return camera{eye: eye, x: x, y: y, z: z}
}

func (c camera) view() mgl64.Mat4 {
	return mgl64.Mat4{
		c.x[0], c.y[0], c.z[0], 0,
		c.x[1], c.y[1], c.z[1], 0,
		c.x[2], c.y[2], c.z[2], 0,
		-c.x.Dot(c.eye), -c.y.Dot(c.eye), -c.z.Dot(c.eye), 1,
	}
}

// canvas is an off-screen colour and depth buffer.
type canvas struct {
	img   *image.NRGBA
	depth []float64
}

var canvasPool = sync.Pool{
	New: func() any {
		return &canvas{
			img:   image.NewNRGBA(image.Rect(0, 0, Size, Size)),
			depth: make([]float64, Size*Size),
		}
	},
}

func acquireCanvas() *canvas {
	c := canvasPool.Get().(*canvas)
	grey := uint8(math.Round(backgroundGrey * 255))
	pix := c.img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = grey, grey, grey, 255
	}
	for i := range c.depth {
		c.depth[i] = math.Inf(1)
	}
	return c
}

func releaseCanvas(c *canvas) {
	canvasPool.Put(c)
}

func draw(m *Mesh) ([]byte, error) {
	start := time.Now()
	if m == nil || len(m.Triangles) == 0 {
		metrics.RenderTotal.WithLabelValues("error_empty").Inc()
		return nil, ErrEmptyMesh
	}
	m.Normalize()

	cam := newCamera()
	mvp := mgl64.Perspective(fieldOfView, 1, nearPlane, farPlane).Mul4(cam.view())
	fillPos := cam.eye.Mul(-0.5)

	c := acquireCanvas()
	defer releaseCanvas(c)

	for _, tri := range m.Triangles {
		shade, ok := shadeTriangle(tri, cam.eye, fillPos)
		if !ok {
			continue
		}
		c.fill(tri, mvp, shade)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, c.img, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		metrics.RenderTotal.WithLabelValues("error_encode").Inc()
		return nil, fmt.Errorf("encode render: %w", err)
	}

	metrics.RenderTotal.WithLabelValues("success").Inc()
	metrics.RenderDuration.Observe(time.Since(start).Seconds())
	metrics.RenderTriangles.Observe(float64(len(m.Triangles)))
	return buf.Bytes(), nil
}

// shadeTriangle computes a flat two-sided Lambert colour for tri lit by a
// key light at the camera and a dimmer bluish fill light behind the model.
func shadeTriangle(tri Triangle, keyPos, fillPos mgl64.Vec3) (color.NRGBA, bool) {
	n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
	if n.Len() == 0 {
		return color.NRGBA{}, false
	}
	n = n.Normalize()
	center := tri[0].Add(tri[1]).Add(tri[2]).Mul(1.0 / 3)

	key := math.Abs(n.Dot(keyPos.Sub(center).Normalize())) * keyIntensity
	fill := math.Abs(n.Dot(fillPos.Sub(center).Normalize())) * fillIntensity

	var rgb [3]uint8
	for ch := 0; ch < 3; ch++ {
		v := baseColor[ch] * (ambient + key*keyColor[ch] + fill*fillColor[ch])
		rgb[ch] = uint8(math.Round(math.Min(v, 1) * 255))
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, true
}

type screenVertex struct {
	x, y, z float64
}

func project(v mgl64.Vec3, mvp mgl64.Mat4) (screenVertex, bool) {
	clip := mvp.Mul4x1(v.Vec4(1))
	w := clip.W()
	if w <= nearPlane {
		return screenVertex{}, false
	}
	return screenVertex{
		x: (clip.X()/w + 1) * 0.5 * Size,
		y: (1 - clip.Y()/w) * 0.5 * Size,
		z: clip.Z() / w,
	}, true
}

func edge(a, b screenVertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// fill rasterizes one triangle into the canvas with depth testing.
func (c *canvas) fill(tri Triangle, mvp mgl64.Mat4, shade color.NRGBA) {
	var v [3]screenVertex
	for i := range tri {
		sv, ok := project(tri[i], mvp)
		if !ok {
			return
		}
		v[i] = sv
	}

	area := edge(v[0], v[1], v[2].x, v[2].y)
	if math.Abs(area) < 1e-12 {
		return
	}

	minX := clampInt(int(math.Floor(math.Min(v[0].x, math.Min(v[1].x, v[2].x)))), 0, Size-1)
	maxX := clampInt(int(math.Ceil(math.Max(v[0].x, math.Max(v[1].x, v[2].x)))), 0, Size-1)
	minY := clampInt(int(math.Floor(math.Min(v[0].y, math.Min(v[1].y, v[2].y)))), 0, Size-1)
	maxY := clampInt(int(math.Ceil(math.Max(v[0].y, math.Max(v[1].y, v[2].y)))), 0, Size-1)

	for py := minY; py <= maxY; py++ {
		cy := float64(py) + 0.5
		for px := minX; px <= maxX; px++ {
			cx := float64(px) + 0.5
			w0 := edge(v[1], v[2], cx, cy) / area
			w1 := edge(v[2], v[0], cx, cy) / area
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*v[0].z + w1*v[1].z + w2*v[2].z
			i := py*Size + px
			if z >= c.depth[i] {
				continue
			}
			c.depth[i] = z
			o := c.img.PixOffset(px, py)
			c.img.Pix[o], c.img.Pix[o+1], c.img.Pix[o+2], c.img.Pix[o+3] = shade.R, shade.G, shade.B, 255
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
