package budget

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels rejects images above about 179 megapixels before any
// pixel buffer is allocated.
const DefaultMaxPixels = 178_956_970

// Decode parses any registered raster format and returns an opaque 8-bit
// RGB copy. The copy is an *image.NRGBA whose alpha channel is forced to 255;
// colour under transparent pixels is kept as stored, not composited.
//
// The header is read first and images declaring more than maxPixels pixels
// are rejected without decoding; maxPixels <= 0 disables the check.
func Decode(data []byte, maxPixels int) (*image.NRGBA, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixel limit",
			ErrDecode, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", fmt.Errorf("%w: empty bounds %dx%d", ErrDecode, b.Dx(), b.Dy())
	}
	return toRGB(img), format, nil
}

// toRGB returns an owned, zero-origin NRGBA with alpha dropped.
func toRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
