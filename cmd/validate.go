package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnyUserName/imgfit/internal/hasher"
	"github.com/AnyUserName/imgfit/internal/manifest"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest_path>",
	Short: "Validate an imgfit manifest and check referenced files",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	manifestPath := args[0]

	m, err := manifest.ReadJSON(manifestPath)
	if err != nil {
		return err
	}

	errs := validateManifest(m, filepath.Dir(manifestPath))
	if len(errs) == 0 {
		fmt.Println("  ✓ Manifest is valid")
		fmt.Printf("  ✓ %d images, %d outputs, all files present\n", m.Stats.TotalEntries, m.Stats.TotalOutputs)
		return nil
	}

	fmt.Printf("  ✗ Manifest has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

func validateManifest(m *manifest.Manifest, baseDir string) []string {
	var errs []string

	if m.Version != manifest.SupportedManifestVersion {
		errs = append(errs, fmt.Sprintf("unsupported manifest version: %d", m.Version))
	}
	if m.TargetKB <= 0 {
		errs = append(errs, fmt.Sprintf("invalid target_kb: %d", m.TargetKB))
	}

	seenPaths := map[string]string{}
	outputs := 0
	for key, e := range m.Entries {
		if e.Original.Width <= 0 || e.Original.Height <= 0 {
			errs = append(errs, fmt.Sprintf("entry %q: invalid original dimensions %dx%d",
				key, e.Original.Width, e.Original.Height))
		}

		o := e.Output
		if o == nil {
			if e.Skipped == "" {
				errs = append(errs, fmt.Sprintf("entry %q: no output and no skip reason", key))
			}
			continue
		}
		outputs++

		if o.Width <= 0 || o.Height <= 0 {
			errs = append(errs, fmt.Sprintf("entry %q: invalid output dimensions %dx%d", key, o.Width, o.Height))
		}
		if o.Quality < 1 || o.Quality > 100 {
			errs = append(errs, fmt.Sprintf("entry %q: quality %d out of range", key, o.Quality))
		}
		switch o.Stage {
		case "search", "shrink":
			if !o.WithinBudget {
				errs = append(errs, fmt.Sprintf("entry %q: %s stage output marked over budget", key, o.Stage))
			}
		case "absolute":
		default:
			errs = append(errs, fmt.Sprintf("entry %q: unknown stage %q", key, o.Stage))
		}
		if o.WithinBudget && o.Size > int64(m.TargetKB)*1024 {
			errs = append(errs, fmt.Sprintf("entry %q: size %d exceeds %d KB but marked within budget",
				key, o.Size, m.TargetKB))
		}
		if o.Path == "" {
			errs = append(errs, fmt.Sprintf("entry %q: missing path", key))
			continue
		}
		if other, dup := seenPaths[o.Path]; dup {
			errs = append(errs, fmt.Sprintf("entry %q: path %q already used by %q", key, o.Path, other))
		}
		seenPaths[o.Path] = key

		data, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(o.Path)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("entry %q: file not found: %s", key, o.Path))
			continue
		}
		if int64(len(data)) != o.Size {
			errs = append(errs, fmt.Sprintf("entry %q: size mismatch: manifest=%d, disk=%d",
				key, o.Size, len(data)))
		}
		if h := hasher.ContentHash(data, 16); o.Hash != "" && h != o.Hash {
			errs = append(errs, fmt.Sprintf("entry %q: hash mismatch: manifest=%s, disk=%s", key, o.Hash, h))
		}
	}

	// Verify stats consistency.
	if m.Stats.TotalEntries != len(m.Entries) {
		errs = append(errs, fmt.Sprintf("stats.total_entries mismatch: %d != %d", m.Stats.TotalEntries, len(m.Entries)))
	}
	if m.Stats.TotalOutputs != outputs {
		errs = append(errs, fmt.Sprintf("stats.total_outputs mismatch: %d != %d", m.Stats.TotalOutputs, outputs))
	}

	return errs
}
