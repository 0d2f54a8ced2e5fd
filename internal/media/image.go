package media

import (
	"bytes"
	"fmt"
	"image"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/webp" // WebP format support

	"asset-catalog/internal/logging"
)

const (
	// MaxImagePixels is the largest source image (width * height) decoded
	// in process. A 20MP RGBA buffer is roughly 80MB.
	MaxImagePixels = 20_000_000
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions reads dimensions and format from the header of data
// without decoding pixels.
func GetImageDimensions(data []byte) (*ImageDimensions, string, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return &ImageDimensions{Width: config.Width, Height: config.Height}, format, nil
}

// decodeConstrained decodes data, refusing images above MaxImagePixels.
func decodeConstrained(data []byte) (image.Image, error) {
	dims, format, err := GetImageDimensions(data)
	if err != nil {
		return nil, fmt.Errorf("unrecognised image: %w", err)
	}

	pixels := dims.Width * dims.Height
	if pixels > MaxImagePixels {
		return nil, fmt.Errorf("image too large: %dx%d (%d pixels)", dims.Width, dims.Height, pixels)
	}
	logging.Debug("Decoding %s image %dx%d", format, dims.Width, dims.Height)

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", format, err)
	}
	return img, nil
}
