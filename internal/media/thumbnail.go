package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/disintegration/imaging"

	"asset-catalog/internal/logging"
	"asset-catalog/internal/metrics"
)

const (
	// ThumbnailEdge is the longest edge of a stored thumbnail.
	ThumbnailEdge = 400
	// ThumbnailQuality is the JPEG quality of a stored thumbnail.
	ThumbnailQuality = 75
)

// ErrNoImage is returned when a search finds no usable image.
var ErrNoImage = errors.New("no usable image")

// Normalize decodes an image, flattens it onto white, shrinks it so the
// longer edge is at most maxEdge and re-encodes it as JPEG. Images already
// inside the bound are not enlarged.
func Normalize(data []byte, maxEdge, quality int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("normalize: %w", ErrNoImage)
	}

	if IsVipsAvailable() {
		start := time.Now()
		out, err := normalizeWithVips(data, maxEdge, quality)
		metrics.ThumbnailNormalizeDuration.WithLabelValues("vips").Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.ThumbnailNormalizeTotal.WithLabelValues("vips", "success").Inc()
			return out, nil
		}
		metrics.ThumbnailNormalizeTotal.WithLabelValues("vips", "error").Inc()
		logging.Debug("vips normalize failed, falling back to imaging: %v", err)
	}

	start := time.Now()
	out, err := normalizeWithImaging(data, maxEdge, quality)
	metrics.ThumbnailNormalizeDuration.WithLabelValues("imaging").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ThumbnailNormalizeTotal.WithLabelValues("imaging", "error").Inc()
		return nil, err
	}
	metrics.ThumbnailNormalizeTotal.WithLabelValues("imaging", "success").Inc()
	return out, nil
}

func normalizeWithImaging(data []byte, maxEdge, quality int) ([]byte, error) {
	img, err := decodeConstrained(data)
	if err != nil {
		return nil, err
	}

	fitted := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	flat := flatten(fitted)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// flatten composites img over an opaque white canvas of the same size.
func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
