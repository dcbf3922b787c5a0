package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/AnyUserName/imgfit/internal/budget"
	"github.com/AnyUserName/imgfit/internal/manifest"
)

// Config holds all parameters for a batch run.
type Config struct {
	InputDir      string
	OutputDir     string
	ProfileName   string
	TargetKB      int
	Options       budget.Options
	Workers       int
	Verbose       bool
	NoRegressSize bool // skip outputs not smaller than the source file
}

func (c Config) logf(format string, args ...any) {
	if c.Verbose {
		fmt.Fprintf(os.Stderr, "[imgfit] "+format+"\n", args...)
	}
}

// Pipeline fits every image under a directory to the same budget.
type Pipeline struct {
	cfg Config
}

// New creates a configured pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Pipeline{cfg: cfg}
}

// Run executes the batch and returns the manifest. Individual failures are
// reported and left out of the manifest; Run fails only if every image does.
func (p *Pipeline) Run(ctx context.Context) (*manifest.Manifest, error) {
	if p.cfg.TargetKB <= 0 {
		return nil, fmt.Errorf("%w: target %d KB", budget.ErrInvalidParameter, p.cfg.TargetKB)
	}
	if err := p.cfg.Options.Validate(); err != nil {
		return nil, err
	}

	// Step 1: Scan for images.
	sources, err := ScanImages(p.cfg.InputDir, p.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", p.cfg.InputDir)
	}
	p.cfg.logf("found %d images", len(sources))

	// Step 2: Fit images in parallel. Each fit owns its buffers.
	results := make([]processResult, len(sources))
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			p.cfg.logf("processing: %s", s.Key)
			results[idx] = processImage(ctx, s, p.cfg)

			if r := results[idx]; r.err == nil && r.entry.Output != nil {
				p.cfg.logf("done: %s (%s q=%d, %d bytes)", s.Key,
					r.entry.Output.Stage, r.entry.Output.Quality, r.entry.Output.Size)
			}
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 3: Collect results into manifest.
	m := manifest.New(p.cfg.ProfileName, p.cfg.TargetKB)

	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		m.Entries[r.key] = r.entry
	}

	// Report errors but don't fail the entire run for partial failures.
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "[imgfit] error: %v\n", e)
		}
		if len(errs) == len(sources) {
			return nil, fmt.Errorf("all %d images failed to process: %w", len(errs), errors.Join(errs...))
		}
		fmt.Fprintf(os.Stderr, "[imgfit] warning: %d of %d images had errors\n",
			len(errs), len(sources))
	}

	m.BuildInfo = &manifest.BuildInfo{
		Workers:      p.cfg.Workers,
		MaxDimension: p.cfg.Options.MaxDimension,
		Search:       p.cfg.Options.Search.String(),
	}
	m.ComputeStats()
	return m, nil
}
