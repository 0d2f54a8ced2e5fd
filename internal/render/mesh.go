package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hschendel/stl"

	"asset-catalog/internal/mediatypes"
)

// ErrEmptyMesh is returned when a model file contains no triangles.
var ErrEmptyMesh = errors.New("mesh has no triangles")

// Triangle is three vertices in model space.
type Triangle [3]mgl64.Vec3

// Mesh is a triangle soup. Objects and groups from the source file are merged.
type Mesh struct {
	Triangles []Triangle
}

// Load reads an OBJ file when path ends in .obj and an STL file (binary or
// ASCII) otherwise.
func Load(path string) (*Mesh, error) {
	if mediatypes.Ext(path) == ".obj" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open obj: %w", err)
		}
		defer func() { _ = f.Close() }()
		return ParseOBJ(f)
	}
	return LoadSTL(path)
}

// LoadSTL reads a binary or ASCII STL file.
func LoadSTL(path string) (*Mesh, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stl: %w", err)
	}

	m := &Mesh{Triangles: make([]Triangle, 0, len(solid.Triangles))}
	for _, t := range solid.Triangles {
		var tri Triangle
		for i, v := range t.Vertices {
			tri[i] = mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
		}
		m.Triangles = append(m.Triangles, tri)
	}
	if len(m.Triangles) == 0 {
		return nil, ErrEmptyMesh
	}
	return m, nil
}

// ParseOBJ reads Wavefront OBJ geometry. Only "v" and "f" records are used;
// faces with more than three vertices are fan triangulated and negative
// indices count back from the latest vertex.
func ParseOBJ(r io.Reader) (*Mesh, error) {
	var verts []mgl64.Vec3
	m := &Mesh{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("obj line %d: vertex needs three coordinates", line)
			}
			var v mgl64.Vec3
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", line, err)
				}
				v[i] = f
			}
			verts = append(verts, v)

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("obj line %d: face needs three vertices", line)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				i, err := objIndex(tok, len(verts))
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", line, err)
				}
				idx = append(idx, i)
			}
			for k := 1; k+1 < len(idx); k++ {
				m.Triangles = append(m.Triangles, Triangle{verts[idx[0]], verts[idx[k]], verts[idx[k+1]]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}
	if len(m.Triangles) == 0 {
		return nil, ErrEmptyMesh
	}
	return m, nil
}

// objIndex resolves the vertex part of a face token ("7", "7/2", "7//3",
// "-1/2/3") to a zero-based index into a vertex list of length n.
func objIndex(tok string, n int) (int, error) {
	if slash := strings.IndexByte(tok, '/'); slash >= 0 {
		tok = tok[:slash]
	}
	i, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q", tok)
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	default:
		return 0, fmt.Errorf("face index %d out of range (%d vertices)", i, n)
	}
}

// Normalize centers the mesh on its mean vertex and scales it so the
// largest bounding-box extent is 1. A degenerate mesh is only centered.
func (m *Mesh) Normalize() {
	var sum mgl64.Vec3
	minV := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	maxV := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	count := 0
	for _, t := range m.Triangles {
		for _, v := range t {
			sum = sum.Add(v)
			for a := 0; a < 3; a++ {
				minV[a] = math.Min(minV[a], v[a])
				maxV[a] = math.Max(maxV[a], v[a])
			}
			count++
		}
	}
	if count == 0 {
		return
	}

	centroid := sum.Mul(1 / float64(count))
	extent := math.Max(maxV[0]-minV[0], math.Max(maxV[1]-minV[1], maxV[2]-minV[2]))
	scale := 1.0
	if extent > 0 && !math.IsInf(extent, 0) && !math.IsNaN(extent) {
		scale = 1 / extent
	}

	for i := range m.Triangles {
		for j := range m.Triangles[i] {
			m.Triangles[i][j] = m.Triangles[i][j].Sub(centroid).Mul(scale)
		}
	}
}
