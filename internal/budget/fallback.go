package budget

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
)

// shrink scales the pre-scaled image down by ShrinkFactor per step (always
// from the pre-scaled source, never compounding resamples) and encodes at
// ShrinkQuality. The first fit wins, not the largest fitting size.
// Returns nil once the width reaches FloorWidth without a fit.
func (f *fitter) shrink(ctx context.Context, img *image.NRGBA) (*Result, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for w > f.opts.FloorWidth {
		w, h = shrinkStep(w, f.opts.ShrinkFactor), shrinkStep(h, f.opts.ShrinkFactor)

		resized := imaging.Resize(img, w, h, imaging.Lanczos)
		data, err := f.encode(ctx, resized, f.opts.ShrinkQuality)
		if err != nil {
			return nil, err
		}
		if f.fits(data) {
			return f.result(data, resized, f.opts.ShrinkQuality, StageShrink), nil
		}
	}
	f.logf("shrink: reached %dpx floor without a fit", f.opts.FloorWidth)
	return nil, nil
}

// absolute encodes an AbsoluteSize square at AbsoluteQuality. Aspect ratio
// is not preserved and the result is returned even if it misses the target.
func (f *fitter) absolute(ctx context.Context, img *image.NRGBA) (*Result, error) {
	side := f.opts.AbsoluteSize
	resized := imaging.Resize(img, side, side, imaging.CatmullRom)
	data, err := f.encode(ctx, resized, f.opts.AbsoluteQuality)
	if err != nil {
		return nil, err
	}
	r := f.result(data, resized, f.opts.AbsoluteQuality, StageAbsolute)
	if !r.WithinBudget {
		f.logf("absolute: %d bytes exceeds limit %d", len(data), f.limit)
	}
	return r, nil
}

// shrinkStep scales v by factor, rounded to nearest. It always makes
// progress so that small sides cannot stall the loop.
func shrinkStep(v int, factor float64) int {
	n := roundInt(float64(v) * factor)
	if n >= v {
		n = v - 1
	}
	return atLeastOne(n)
}

// ShrinkSteps reports how many encodes the shrink stage performs at most
// for a pre-scaled width, roughly ceil(log(floor/width) / log(factor)).
func ShrinkSteps(width, floor int, factor float64) int {
	n := 0
	for width > floor {
		next := shrinkStep(width, factor)
		if next == width {
			break
		}
		width = next
		n++
	}
	return n
}
