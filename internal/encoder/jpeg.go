package encoder

import (
	"bytes"
	"image"
	"image/jpeg"
)

// DefaultJPEGQuality is used when Encode receives an out-of-range quality.
const DefaultJPEGQuality = 75

// JPEGEncoder writes baseline JPEG using Go's standard library.
type JPEGEncoder struct{}

// NewJPEG returns the default JPEG sink.
func NewJPEG() *JPEGEncoder { return &JPEGEncoder{} }

func (e *JPEGEncoder) Format() string      { return "jpeg" }
func (e *JPEGEncoder) ContentType() string { return "image/jpeg" }
func (e *JPEGEncoder) Extension() string   { return "jpg" }

func (e *JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	// Rough guess at 1.5 bits per pixel keeps regrowth rare for photos.
	b := img.Bounds()
	var buf bytes.Buffer
	buf.Grow(b.Dx()*b.Dy()*3/16 + 1024)

	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
