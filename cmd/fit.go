package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AnyUserName/imgfit/internal/budget"
	"github.com/spf13/cobra"
)

var (
	fitOut  string
	fitOpts fitFlags
)

var fitCmd = &cobra.Command{
	Use:   "fit <input>",
	Short: "Fit a single image to the size budget",
	Long: `Decodes one image (png, jpeg, gif, bmp, tiff, webp) and writes a JPEG no
larger than the budget whenever quality reduction or shrinking can reach it.

Use "-" as input to read from stdin and "-o -" to write to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runFit,
}

func init() {
	fitCmd.Flags().StringVarP(&fitOut, "out", "o", "", "output path (default <input>.fit.jpg)")
	fitOpts.register(fitCmd)
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, args []string) error {
	input := args[0]
	start := time.Now()

	prof, opts, err := fitOpts.resolve()
	if err != nil {
		return err
	}
	if verbose {
		opts.Logf = logVerbose
	}

	var data []byte
	if input == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	logVerbose("profile: %s (max=%d KB, dim=%d, search=%s)",
		prof.Name, prof.MaxSizeKB, opts.MaxDimension, opts.Search)

	r, err := budget.FitContext(context.Background(), data, prof.MaxSizeKB, opts)
	if err != nil {
		return err
	}

	out := fitOut
	if out == "" {
		if input == "-" {
			out = "-"
		} else {
			out = strings.TrimSuffix(input, filepath.Ext(input)) + ".fit.jpg"
		}
	}
	if out == "-" {
		_, err = cmd.OutOrStdout().Write(r.Data)
		return err
	}
	if err := os.WriteFile(out, r.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "  %s → %s  %dx%d q=%d (%s, %d attempts)  %s → %s  %s\n",
		input, out, r.Width, r.Height, r.Quality, r.Stage, r.Attempts,
		formatBytes(int64(len(data))), formatBytes(int64(len(r.Data))),
		time.Since(start).Round(time.Millisecond))
	if !r.WithinBudget {
		fmt.Fprintf(cmd.ErrOrStderr(), "  ⚠ best effort: %.1f KB exceeds %d KB target\n", r.SizeKB(), prof.MaxSizeKB)
	}
	return nil
}
