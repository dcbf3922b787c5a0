package budget

import (
	"context"
	"image"
)

// search returns the quality-stage result, or nil when no quality in range fits.
func (f *fitter) search(ctx context.Context, img image.Image) (*Result, error) {
	if f.opts.Search == SearchLinear {
		return f.searchLinear(ctx, img)
	}
	return f.searchBinary(ctx, img)
}

// searchBinary bisects [MinQuality, MaxQuality]. After every fit the lower
// bound moves above it, so the kept candidate is always the highest fitting
// quality seen; earlier candidates are dropped.
func (f *fitter) searchBinary(ctx context.Context, img image.Image) (*Result, error) {
	lo, hi := f.opts.MinQuality, f.opts.MaxQuality

	var best []byte
	bestQ := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		data, err := f.encode(ctx, img, mid)
		if err != nil {
			return nil, err
		}
		if f.fits(data) {
			best, bestQ = data, mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if best == nil {
		f.logf("search: no quality in [%d, %d] fits", f.opts.MinQuality, f.opts.MaxQuality)
		return nil, nil
	}
	return f.result(best, img, bestQ, StageSearch), nil
}

// searchLinear tries every quality from the top down.
func (f *fitter) searchLinear(ctx context.Context, img image.Image) (*Result, error) {
	for q := f.opts.MaxQuality; q >= f.opts.MinQuality; q-- {
		data, err := f.encode(ctx, img, q)
		if err != nil {
			return nil, err
		}
		if f.fits(data) {
			return f.result(data, img, q, StageSearch), nil
		}
	}
	f.logf("search: no quality in [%d, %d] fits", f.opts.MinQuality, f.opts.MaxQuality)
	return nil, nil
}
