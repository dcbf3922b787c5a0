// Package server exposes the budget encoder over HTTP.
//
// POST /optimize takes a multipart "image" field and an optional
// max_size_kb query parameter and answers with the fitted JPEG inline.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/AnyUserName/imgfit/internal/budget"
	"github.com/AnyUserName/imgfit/internal/hasher"
)

// Defaults for Config fields left at zero.
const (
	DefaultMaxUploadBytes = 20 << 20
	DefaultTimeout        = 30 * time.Second
)

// Config configures the HTTP front end.
type Config struct {
	DefaultMaxSizeKB int            // used when max_size_kb is absent
	Options          budget.Options // fit tuning for every request
	MaxUploadBytes   int64          // request body limit
	Timeout          time.Duration  // wall-clock limit per fit

	// Logf receives one line per request when set.
	Logf func(format string, args ...any)
}

// Server routes requests to the budget encoder. Requests share nothing,
// so concurrency is whatever the http.Server provides.
type Server struct {
	cfg Config
	mux *http.ServeMux
}

// New builds a server, filling zero Config fields with defaults.
func New(cfg Config) *Server {
	if cfg.DefaultMaxSizeKB <= 0 {
		cfg.DefaultMaxSizeKB = budget.DefaultMaxSizeKB
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Server{cfg: cfg, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /optimize", s.handleOptimize)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	maxSizeKB, err := s.parseMaxSize(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	if r.ContentLength > s.cfg.MaxUploadBytes {
		s.fail(w, r, http.StatusRequestEntityTooLarge,
			fmt.Errorf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	data, err := readUpload(r)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.fail(w, r, http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload exceeds %d bytes", tooBig.Limit))
			return
		}
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	res, err := budget.FitContext(ctx, data, maxSizeKB, s.cfg.Options)
	switch {
	case err == nil:
	case errors.Is(err, budget.ErrDecode), errors.Is(err, budget.ErrInvalidParameter):
		s.fail(w, r, http.StatusBadRequest, err)
		return
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; there is nobody to answer.
		s.logf("%s %s: client closed request after %s", r.Method, r.URL.Path,
			time.Since(start).Round(time.Millisecond))
		return
	case errors.Is(err, context.DeadlineExceeded):
		s.fail(w, r, http.StatusServiceUnavailable, fmt.Errorf("fit exceeded %s", s.cfg.Timeout))
		return
	default:
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.ContentType)
	h.Set("Content-Disposition", "inline; filename=optimized.jpg")
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set("ETag", hasher.ETag(res.Data))
	h.Set("X-Output-Quality", strconv.Itoa(res.Quality))
	h.Set("X-Output-Stage", res.Stage.String())
	h.Set("X-Output-Size-KB", strconv.FormatFloat(res.SizeKB(), 'f', 2, 64))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)

	s.logf("optimize: %d -> %d bytes (%s q=%d, %d attempts) in %s",
		len(data), len(res.Data), res.Stage, res.Quality, res.Attempts,
		time.Since(start).Round(time.Millisecond))
}

func (s *Server) parseMaxSize(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("max_size_kb")
	if raw == "" {
		return s.cfg.DefaultMaxSizeKB, nil
	}
	kb, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: max_size_kb %q is not an integer", budget.ErrInvalidParameter, raw)
	}
	if kb <= 0 {
		return 0, fmt.Errorf("%w: max_size_kb must be positive", budget.ErrInvalidParameter)
	}
	return kb, nil
}

// readUpload returns the bytes of the "image" multipart field.
func readUpload(r *http.Request) ([]byte, error) {
	f, _, err := r.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, err
		}
		return nil, fmt.Errorf("missing image upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, code int, err error) {
	s.logf("%s %s: %d %v", r.Method, r.URL.Path, code, err)
	http.Error(w, err.Error(), code)
}

func (s *Server) logf(format string, args ...any) {
	if s.cfg.Logf != nil {
		s.cfg.Logf(format, args...)
	}
}
