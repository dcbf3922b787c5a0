package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"github.com/AnyUserName/imgfit/internal/manifest"
	"github.com/AnyUserName/imgfit/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	batchOutDir    string
	batchWorkers   int
	batchNoRegress bool
	batchOpts      fitFlags
)

var batchCmd = &cobra.Command{
	Use:   "batch <input_dir>",
	Short: "Fit every image in a directory to the size budget",
	Long: `Scans input directory for images (png, jpg, jpeg, webp, gif, bmp, tiff),
fits each one to the budget in parallel, and writes a manifest file.

Output filenames are content-addressed: <key>.<w>.<h>.<hash>.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutDir, "out", "o", "./imgfit_out", "output directory")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	batchCmd.Flags().BoolVar(&batchNoRegress, "no-regress-size", true, "skip outputs not smaller than the source file")
	batchOpts.register(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	start := time.Now()

	// Resolve absolute paths.
	absInput, err := filepath.Abs(inputDir)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(batchOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	prof, opts, err := batchOpts.resolve()
	if err != nil {
		return err
	}

	logVerbose("input:   %s", absInput)
	logVerbose("output:  %s", absOutput)
	logVerbose("profile: %s (max=%d KB, dim=%d, search=%s)",
		prof.Name, prof.MaxSizeKB, opts.MaxDimension, opts.Search)

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := pipeline.New(pipeline.Config{
		InputDir:      absInput,
		OutputDir:     absOutput,
		ProfileName:   prof.Name,
		TargetKB:      prof.MaxSizeKB,
		Options:       opts,
		Workers:       batchWorkers,
		Verbose:       verbose,
		NoRegressSize: batchNoRegress,
	})

	m, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	manifestPath := filepath.Join(absOutput, manifest.FileName)
	if err := manifest.WriteJSON(m, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	printBatchReport(m, time.Since(start))
	return nil
}

func printBatchReport(m *manifest.Manifest, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════╗")
	fmt.Println("║              imgfit batch complete               ║")
	fmt.Println("╚══════════════════════════════════════════════════╝")
	fmt.Println()

	s := m.Stats
	ratio := float64(0)
	if s.TotalInputBytes > 0 {
		ratio = float64(s.TotalOutputBytes) / float64(s.TotalInputBytes) * 100
	}

	fmt.Printf("  Images:      %d (%d written)\n", s.TotalEntries, s.TotalOutputs)
	fmt.Printf("  Target:      %d KB\n", m.TargetKB)
	fmt.Printf("  Input size:  %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size: %s\n", formatBytes(s.TotalOutputBytes))
	fmt.Printf("  Ratio:       %.1f%% of original\n", ratio)
	if s.ShrinkFallbacks+s.AbsoluteFallback > 0 {
		fmt.Printf("  Fallbacks:   %d shrink, %d absolute\n", s.ShrinkFallbacks, s.AbsoluteFallback)
	}
	if s.OverBudget > 0 {
		fmt.Printf("  Over budget: %d (best effort)\n", s.OverBudget)
	}
	if s.SkippedRegress > 0 {
		fmt.Printf("  Skipped:     %d (output not smaller than original)\n", s.SkippedRegress)
	}
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	if m.BuildInfo != nil {
		fmt.Printf("  Workers:     %d  (search=%s)\n", m.BuildInfo.Workers, m.BuildInfo.Search)
	}
	fmt.Println()

	// Top 10 heaviest sources.
	if len(m.Entries) > 0 {
		type entrySize struct {
			key        string
			inputSize  int64
			outputSize int64
		}
		var items []entrySize
		for key, e := range m.Entries {
			if e.Output == nil {
				continue
			}
			items = append(items, entrySize{key, e.Original.Size, e.Output.Size})
		}
		sort.Slice(items, func(i, j int) bool {
			return items[i].inputSize > items[j].inputSize
		})
		n := min(len(items), 10)
		if n > 0 {
			fmt.Printf("  Top %d heaviest (original → fitted):\n", n)
		}
		for _, it := range items[:n] {
			saved := float64(0)
			if it.inputSize > 0 {
				saved = (1 - float64(it.outputSize)/float64(it.inputSize)) * 100
			}
			fmt.Printf("    %-40s %8s → %8s  (−%.0f%%)\n",
				truncKey(it.key, 40),
				formatBytes(it.inputSize),
				formatBytes(it.outputSize),
				saved,
			)
		}
		fmt.Println()
	}

	data, _ := json.Marshal(m)
	fmt.Printf("  Manifest:    %s (%s)\n", manifest.FileName, formatBytes(int64(len(data))))
	fmt.Println()
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
