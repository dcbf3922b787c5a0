package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AnyUserName/imgfit/internal/manifest"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_manifest>",
	Short: "Display statistics for a batch output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	path := args[0]

	// If path is a directory, look for manifest inside.
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, manifest.FileName)
	}

	m, err := manifest.ReadJSON(path)
	if err != nil {
		return err
	}

	printStats(m)
	return nil
}

func printStats(m *manifest.Manifest) {
	fmt.Println()
	fmt.Printf("  Manifest version: %d\n", m.Version)
	fmt.Printf("  Generated:        %s\n", m.GeneratedAt)
	fmt.Printf("  Profile:          %s\n", m.Profile)
	fmt.Printf("  Target:           %d KB\n", m.TargetKB)
	if m.BuildInfo != nil {
		fmt.Printf("  Workers:          %d\n", m.BuildInfo.Workers)
		fmt.Printf("  Max dimension:    %d px\n", m.BuildInfo.MaxDimension)
		fmt.Printf("  Search:           %s\n", m.BuildInfo.Search)
	}
	fmt.Println()

	s := m.Stats
	fmt.Printf("  Total images:     %d\n", s.TotalEntries)
	fmt.Printf("  Total outputs:    %d\n", s.TotalOutputs)
	fmt.Printf("  Input size:       %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size:      %s\n", formatBytes(s.TotalOutputBytes))
	if s.TotalInputBytes > 0 {
		ratio := float64(s.TotalOutputBytes) / float64(s.TotalInputBytes) * 100
		fmt.Printf("  Compression:      %.1f%% of original\n", ratio)
	}
	fmt.Println()

	// Per-stage breakdown.
	stageStats := map[string]struct {
		count int
		bytes int64
	}{}
	for _, e := range m.Entries {
		if e.Output == nil {
			continue
		}
		st := stageStats[e.Output.Stage]
		st.count++
		st.bytes += e.Output.Size
		stageStats[e.Output.Stage] = st
	}
	fmt.Println("  Stage breakdown:")
	for _, name := range []string{"search", "shrink", "absolute"} {
		if st, ok := stageStats[name]; ok {
			fmt.Printf("    %-8s  %4d files  %s\n", name, st.count, formatBytes(st.bytes))
		}
	}
	fmt.Println()

	// Quality histogram in buckets of ten.
	buckets := map[int]int{}
	for _, e := range m.Entries {
		if e.Output != nil {
			buckets[e.Output.Quality/10*10]++
		}
	}
	var keys []int
	for q := range buckets {
		keys = append(keys, q)
	}
	sort.Ints(keys)
	fmt.Println("  Quality breakdown:")
	for _, q := range keys {
		fmt.Printf("    q%2d-%2d  %4d outputs\n", q, q+9, buckets[q])
	}

	// Warnings.
	var warnings []string
	for key, e := range m.Entries {
		switch {
		case e.Output == nil:
			warnings = append(warnings, fmt.Sprintf("%q skipped: %s", key, e.Skipped))
		case !e.Output.WithinBudget:
			warnings = append(warnings, fmt.Sprintf("%q is %s, over the %d KB target",
				key, formatBytes(e.Output.Size), m.TargetKB))
		}
	}
	sort.Strings(warnings)
	if len(warnings) > 0 {
		fmt.Println()
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
	}
	fmt.Println()
}
