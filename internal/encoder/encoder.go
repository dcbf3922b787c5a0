package encoder

import (
	"image"
)

// Encoder turns a raster into an encoded byte stream at a quality setting.
//
// Implementations must be safe for concurrent use and must return a buffer
// the caller owns: the budget search keeps at most one earlier result alive
// while it keeps encoding.
type Encoder interface {
	// Format returns the output format name (e.g. "jpeg").
	Format() string

	// ContentType returns the MIME type of the encoded output.
	ContentType() string

	// Extension returns the file extension without dot.
	Extension() string

	// Encode converts the image to bytes at the given quality (1-100).
	Encode(img image.Image, quality int) ([]byte, error)
}
