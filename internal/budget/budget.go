// Package budget re-encodes images as JPEG under a byte-size ceiling.
//
// A fit runs four strictly sequential stages:
//
//  1. Pre-scale: cap the longest side at MaxDimension (Lanczos).
//  2. Quality search over [MinQuality, MaxQuality] for the highest quality
//     whose output fits the target.
//  3. Shrink fallback: repeatedly scale the pre-scaled image by ShrinkFactor
//     and encode at ShrinkQuality, returning the first result that fits.
//  4. Absolute fallback: an AbsoluteSize square at AbsoluteQuality, returned
//     whether or not it fits.
//
// The binary search assumes encoded size never decreases as quality rises.
// Encoders that break this at the margins can make it settle on a lower
// quality than the best fitting one; SearchLinear trades encode count for
// not relying on it.
//
// A fit holds no shared state, so independent fits may run concurrently.
package budget

import (
	"context"
	"fmt"
	"image"

	"github.com/AnyUserName/imgfit/internal/encoder"
)

// DefaultMaxSizeKB is the target used by EncodeToBudget callers that have
// no preference.
const DefaultMaxSizeKB = 300

// SearchPolicy selects how the quality stage walks the quality range.
type SearchPolicy int

const (
	// SearchBinary bisects the quality range (about log2(n) encodes).
	SearchBinary SearchPolicy = iota
	// SearchLinear walks down from MaxQuality and stops at the first fit.
	SearchLinear
)

func (p SearchPolicy) String() string {
	switch p {
	case SearchBinary:
		return "binary"
	case SearchLinear:
		return "linear"
	}
	return fmt.Sprintf("SearchPolicy(%d)", int(p))
}

// ParseSearchPolicy maps "binary" or "linear" to a policy.
func ParseSearchPolicy(s string) (SearchPolicy, error) {
	switch s {
	case "", "binary":
		return SearchBinary, nil
	case "linear":
		return SearchLinear, nil
	}
	return 0, fmt.Errorf("%w: unknown search policy %q", ErrInvalidParameter, s)
}

// Stage identifies which step produced a Result.
type Stage int

const (
	StageSearch Stage = iota
	StageShrink
	StageAbsolute
)

func (s Stage) String() string {
	switch s {
	case StageSearch:
		return "search"
	case StageShrink:
		return "shrink"
	case StageAbsolute:
		return "absolute"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Options tunes a fit. The zero value is not usable; start from DefaultOptions.
type Options struct {
	MaxDimension int // longest side after pre-scale; 0 disables pre-scale
	MaxPixels    int // decode refuses larger declared sizes; 0 disables

	MinQuality int
	MaxQuality int
	Search     SearchPolicy

	ShrinkFactor  float64 // per-iteration scale, in (0, 1)
	ShrinkQuality int
	FloorWidth    int // shrinking stops once width is at or below this

	AbsoluteSize    int // side of the final square
	AbsoluteQuality int

	// Encoder is the sink; nil means baseline JPEG.
	Encoder encoder.Encoder

	// Logf receives one line per encode attempt when set.
	Logf func(format string, args ...any)
}

// DefaultOptions returns the reference tuning: 1024 px, quality 10-95,
// ×0.9 shrink at q60 down to 200 px, then 200×200 at q40.
func DefaultOptions() Options {
	return Options{
		MaxDimension:    1024,
		MaxPixels:       DefaultMaxPixels,
		MinQuality:      10,
		MaxQuality:      95,
		Search:          SearchBinary,
		ShrinkFactor:    0.9,
		ShrinkQuality:   60,
		FloorWidth:      200,
		AbsoluteSize:    200,
		AbsoluteQuality: 40,
	}
}

// Validate reports options the fit cannot run with.
func (o Options) Validate() error {
	switch {
	case o.MaxDimension < 0:
		return fmt.Errorf("%w: max dimension %d", ErrInvalidParameter, o.MaxDimension)
	case o.MaxPixels < 0:
		return fmt.Errorf("%w: max pixels %d", ErrInvalidParameter, o.MaxPixels)
	case o.MinQuality < 1 || o.MaxQuality > 100 || o.MinQuality > o.MaxQuality:
		return fmt.Errorf("%w: quality range [%d, %d]", ErrInvalidParameter, o.MinQuality, o.MaxQuality)
	case o.Search != SearchBinary && o.Search != SearchLinear:
		return fmt.Errorf("%w: search policy %v", ErrInvalidParameter, o.Search)
	case o.ShrinkFactor <= 0 || o.ShrinkFactor >= 1:
		return fmt.Errorf("%w: shrink factor %g", ErrInvalidParameter, o.ShrinkFactor)
	case o.ShrinkQuality < 1 || o.ShrinkQuality > 100:
		return fmt.Errorf("%w: shrink quality %d", ErrInvalidParameter, o.ShrinkQuality)
	case o.FloorWidth < 1:
		return fmt.Errorf("%w: floor width %d", ErrInvalidParameter, o.FloorWidth)
	case o.AbsoluteSize < 1:
		return fmt.Errorf("%w: absolute size %d", ErrInvalidParameter, o.AbsoluteSize)
	case o.AbsoluteQuality < 1 || o.AbsoluteQuality > 100:
		return fmt.Errorf("%w: absolute quality %d", ErrInvalidParameter, o.AbsoluteQuality)
	}
	return nil
}

// Result is the selected encode.
type Result struct {
	Data          []byte
	Quality       int
	Width, Height int
	Stage         Stage
	Attempts      int  // encodes performed, including discarded ones
	WithinBudget  bool // false only for an absolute fallback that missed
	ContentType   string
}

// SizeKB returns the encoded size in kilobytes (bytes / 1024).
func (r *Result) SizeKB() float64 { return float64(len(r.Data)) / 1024 }

// EncodeToBudget re-encodes data as JPEG no larger than maxSizeKB whenever
// quality reduction suffices, falling back to shrinking otherwise.
func EncodeToBudget(data []byte, maxSizeKB int) ([]byte, error) {
	r, err := Fit(data, maxSizeKB, DefaultOptions())
	if err != nil {
		return nil, err
	}
	return r.Data, nil
}

// Fit decodes data and runs the fit with opts.
func Fit(data []byte, maxSizeKB int, opts Options) (*Result, error) {
	return FitContext(context.Background(), data, maxSizeKB, opts)
}

// FitContext is Fit with cancellation checked before every encode attempt.
// Parameters are validated before decoding, and nothing is encoded unless
// both succeed.
func FitContext(ctx context.Context, data []byte, maxSizeKB int, opts Options) (*Result, error) {
	if err := checkParams(maxSizeKB, opts); err != nil {
		return nil, err
	}
	img, _, err := Decode(data, opts.MaxPixels)
	if err != nil {
		return nil, err
	}
	return fit(ctx, img, maxSizeKB, opts)
}

// FitImage runs the fit on an already decoded image. Alpha is dropped.
func FitImage(ctx context.Context, img image.Image, maxSizeKB int, opts Options) (*Result, error) {
	if err := checkParams(maxSizeKB, opts); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	return fit(ctx, toRGB(img), maxSizeKB, opts)
}

func checkParams(maxSizeKB int, opts Options) error {
	if maxSizeKB <= 0 {
		return fmt.Errorf("%w: max size %d KB must be positive", ErrInvalidParameter, maxSizeKB)
	}
	return opts.Validate()
}

func fit(ctx context.Context, img *image.NRGBA, maxSizeKB int, opts Options) (*Result, error) {
	f := newFitter(maxSizeKB, opts)

	scaled := prescale(img, opts.MaxDimension)
	f.logf("prescale %dx%d -> %dx%d", img.Bounds().Dx(), img.Bounds().Dy(),
		scaled.Bounds().Dx(), scaled.Bounds().Dy())

	r, err := f.search(ctx, scaled)
	if err != nil || r != nil {
		return r, err
	}

	r, err = f.shrink(ctx, scaled)
	if err != nil || r != nil {
		return r, err
	}

	return f.absolute(ctx, scaled)
}

// fitter carries the per-call state shared by the stages.
type fitter struct {
	opts     Options
	enc      encoder.Encoder
	limit    int64 // bytes
	attempts int
}

func newFitter(maxSizeKB int, opts Options) *fitter {
	enc := opts.Encoder
	if enc == nil {
		enc = encoder.NewJPEG()
	}
	return &fitter{
		opts:  opts,
		enc:   enc,
		limit: int64(maxSizeKB) * 1024,
	}
}

func (f *fitter) fits(data []byte) bool { return int64(len(data)) <= f.limit }

// encode runs one attempt. Each returned buffer is owned by the caller.
func (f *fitter) encode(ctx context.Context, img image.Image, quality int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := f.enc.Encode(img, quality)
	if err != nil {
		b := img.Bounds()
		return nil, fmt.Errorf("encode %dx%d q=%d: %w", b.Dx(), b.Dy(), quality, err)
	}
	f.attempts++
	f.logf("attempt %d: %dx%d q=%d -> %d bytes (limit %d)",
		f.attempts, img.Bounds().Dx(), img.Bounds().Dy(), quality, len(data), f.limit)
	return data, nil
}

func (f *fitter) result(data []byte, img image.Image, quality int, stage Stage) *Result {
	b := img.Bounds()
	return &Result{
		Data:         data,
		Quality:      quality,
		Width:        b.Dx(),
		Height:       b.Dy(),
		Stage:        stage,
		Attempts:     f.attempts,
		WithinBudget: f.fits(data),
		ContentType:  f.enc.ContentType(),
	}
}

func (f *fitter) logf(format string, args ...any) {
	if f.opts.Logf != nil {
		f.opts.Logf(format, args...)
	}
}
