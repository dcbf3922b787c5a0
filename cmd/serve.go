package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnyUserName/imgfit/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr        string
	serveMaxUploadMB int
	serveTimeout     time.Duration
	serveOpts        fitFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the budget encoder over HTTP",
	Long: `Starts an HTTP server with:

  POST /optimize?max_size_kb=N   multipart field "image" → inline image/jpeg
  GET  /healthz

The profile's target is used when max_size_kb is omitted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "listen address")
	serveCmd.Flags().IntVar(&serveMaxUploadMB, "max-upload-mb", server.DefaultMaxUploadBytes>>20, "upload size limit in MB")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", server.DefaultTimeout, "per-request fit time limit")
	serveOpts.register(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	prof, opts, err := serveOpts.resolve()
	if err != nil {
		return err
	}
	if serveMaxUploadMB <= 0 {
		return fmt.Errorf("--max-upload-mb must be positive")
	}

	srv := server.New(server.Config{
		DefaultMaxSizeKB: prof.MaxSizeKB,
		Options:          opts,
		MaxUploadBytes:   int64(serveMaxUploadMB) << 20,
		Timeout:          serveTimeout,
		Logf:             logVerbose,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "[imgfit] listening on %s (profile=%s, default %d KB)\n",
		serveAddr, prof.Name, prof.MaxSizeKB)
	return srv.ListenAndServe(ctx, serveAddr)
}
