package budget

import "errors"

var (
	// ErrDecode reports input bytes that are not a decodable raster image.
	ErrDecode = errors.New("decode image")

	// ErrInvalidParameter reports a non-positive size target or unusable Options.
	ErrInvalidParameter = errors.New("invalid parameter")
)
