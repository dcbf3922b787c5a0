package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/AnyUserName/imgfit/internal/budget"
	"github.com/AnyUserName/imgfit/internal/hasher"
	"github.com/AnyUserName/imgfit/internal/manifest"
)

// errNoGain marks an output that was not smaller than its source.
var errNoGain = errors.New("output not smaller than source")

// processResult holds the result of processing a single source image.
type processResult struct {
	key   string
	entry manifest.Entry
	err   error
}

// processImage decodes one source, fits it to the budget and writes the JPEG.
func processImage(ctx context.Context, src Source, cfg Config) processResult {
	result := processResult{key: src.Key}

	data, err := os.ReadFile(src.AbsPath)
	if err != nil {
		result.err = fmt.Errorf("read %s: %w", src.RelPath, err)
		return result
	}

	img, format, err := budget.Decode(data, cfg.Options.MaxPixels)
	if err != nil {
		result.err = fmt.Errorf("%s: %w", src.RelPath, err)
		return result
	}
	b := img.Bounds()
	result.entry.Original = manifest.OriginalInfo{
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
		Size:   src.Size,
	}

	r, err := budget.FitImage(ctx, img, cfg.TargetKB, cfg.Options)
	if err != nil {
		result.err = fmt.Errorf("fit %s: %w", src.RelPath, err)
		return result
	}

	if cfg.NoRegressSize && int64(len(r.Data)) >= src.Size {
		cfg.logf("skip: %s, fitted %d >= original %d bytes", src.Key, len(r.Data), src.Size)
		result.entry.Skipped = errNoGain.Error()
		return result
	}
	if !r.WithinBudget {
		cfg.logf("warn: %s, best effort %.1f KB exceeds %d KB", src.Key, r.SizeKB(), cfg.TargetKB)
	}

	contentHash := hasher.ContentHash(r.Data, 16)

	// key.w.h.hash.jpg
	relPath := fmt.Sprintf("%s.%d.%d.%s.jpg", src.Key, r.Width, r.Height, contentHash[:8])
	outPath := filepath.Join(cfg.OutputDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		result.err = fmt.Errorf("create dir for %s: %w", relPath, err)
		return result
	}
	if err := os.WriteFile(outPath, r.Data, 0o644); err != nil {
		result.err = fmt.Errorf("write %s: %w", relPath, err)
		return result
	}

	result.entry.Output = &manifest.Output{
		Path:         path.Clean(relPath),
		Width:        r.Width,
		Height:       r.Height,
		Size:         int64(len(r.Data)),
		Quality:      r.Quality,
		Stage:        r.Stage.String(),
		Attempts:     r.Attempts,
		Hash:         contentHash,
		WithinBudget: r.WithinBudget,
	}
	return result
}
