package budget

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// prescale caps the longest side of img at maxDim using Lanczos resampling.
// Images already within bounds are returned as-is.
func prescale(img *image.NRGBA, maxDim int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	nw, nh := fitDimensions(w, h, maxDim)
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}

// fitDimensions scales (w, h) so the longest side equals maxDim, rounding
// the other side to the nearest pixel (never below 1).
func fitDimensions(w, h, maxDim int) (int, int) {
	if w >= h {
		return maxDim, atLeastOne(roundInt(float64(h) * float64(maxDim) / float64(w)))
	}
	return atLeastOne(roundInt(float64(w) * float64(maxDim) / float64(h))), maxDim
}

func roundInt(v float64) int { return int(math.Round(v)) }

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
