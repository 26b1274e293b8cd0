package facematch

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImage is returned when image bytes cannot be decoded or the
// region does not fit inside the image.
var ErrInvalidImage = errors.New("invalid image")

// ErrEmptyCrop is returned when a region floors to zero pixels.
var ErrEmptyCrop = fmt.Errorf("%w: empty crop", ErrInvalidImage)

// PixelRect converts a fractional region to pixel bounds by flooring each
// product with the image dimensions. The rect must be non-empty and inside the image.
func PixelRect(r Region, width, height int) (image.Rectangle, error) {
	left := int(math.Floor(float64(width) * r.Left))
	top := int(math.Floor(float64(height) * r.Top))
	w := int(math.Floor(float64(width) * r.Width))
	h := int(math.Floor(float64(height) * r.Height))

	if w <= 0 || h <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w %dx%d", ErrEmptyCrop, w, h)
	}
	if left+w > width || top+h > height {
		return image.Rectangle{}, fmt.Errorf("%w: crop %d,%d %dx%d outside %dx%d image",
			ErrInvalidImage, left, top, w, h, width, height)
	}
	return image.Rect(left, top, left+w, top+h), nil
}

// Cropper crops image bytes to a region and re-encodes them losslessly.
type Cropper interface {
	Crop(data []byte, r Region) ([]byte, error)
}

// PNGCropper crops with imaging and encodes PNG.
type PNGCropper struct{}

// Crop decodes data, extracts the region and encodes the result as PNG.
func (PNGCropper) Crop(data []byte, r Region) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	b := img.Bounds()
	rect, err := PixelRect(r, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	cropped := imaging.Crop(img, rect.Add(b.Min))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// ImageSize returns the pixel dimensions of encoded image bytes.
func ImageSize(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return cfg.Width, cfg.Height, nil
}
