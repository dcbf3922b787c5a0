package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/AnyUserName/imgfit/internal/budget"
	"github.com/AnyUserName/imgfit/internal/profile"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "imgfit",
	Short: "Re-encode images as JPEG under a size budget",
	Long: `imgfit — re-encodes any raster image as a JPEG that fits a kilobyte budget,
keeping as much quality as the budget allows.

Images are capped to a maximum dimension, then the highest JPEG quality that
fits is found by search. When no quality fits, the image is shrunk step by
step, and as a last resort reduced to a small fixed square.`,
	Version:      version,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"imgfit %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// logVerbose prints a message only when --verbose is set.
func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[imgfit] "+format+"\n", args...)
	}
}

// fitFlags are shared by commands that run the budget encoder.
type fitFlags struct {
	profile   string
	maxSizeKB int
	maxDim    int
	search    string
}

func (f *fitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.profile, "profile", "p", profile.DefaultName, "size profile (default, web, thumbnail, hq)")
	cmd.Flags().IntVarP(&f.maxSizeKB, "max-size-kb", "k", 0, "target size in KB (0 = profile default)")
	cmd.Flags().IntVar(&f.maxDim, "max-dimension", 0, "longest side after pre-scale (0 = profile default)")
	cmd.Flags().StringVar(&f.search, "search", "", "quality search: binary or linear (empty = profile default)")
}

// resolve merges flags over the named profile.
func (f *fitFlags) resolve() (profile.Profile, budget.Options, error) {
	if !profile.Known(f.profile) {
		logVerbose("unknown profile %q, using %s settings", f.profile, profile.DefaultName)
	}
	prof := profile.Get(f.profile)
	if f.maxSizeKB != 0 {
		prof.MaxSizeKB = f.maxSizeKB
	}
	if f.maxDim > 0 {
		prof.MaxDimension = f.maxDim
	}
	if f.search != "" {
		p, err := budget.ParseSearchPolicy(f.search)
		if err != nil {
			return prof, budget.Options{}, err
		}
		prof.Search = p
	}
	if prof.MaxSizeKB <= 0 {
		return prof, budget.Options{}, fmt.Errorf("%w: --max-size-kb must be positive", budget.ErrInvalidParameter)
	}
	return prof, prof.Options(), nil
}
