package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/biovault/verify/pkg/biometric"
	"github.com/biovault/verify/pkg/media"
)

const (
	// DefaultRequestTimeout bounds a single verification.
	DefaultRequestTimeout = 2 * time.Minute

	// DefaultMaxConcurrent is the number of verifications allowed to run at
	// once; further requests wait for a slot.
	DefaultMaxConcurrent = 8

	maxBodyBytes = 64 << 10
)

// Verifier runs verification requests. *biometric.Pipeline implements it.
type Verifier interface {
	Verify(ctx context.Context, req biometric.Request) (biometric.Verdict, error)
	CheckFace(ctx context.Context, ref media.Reference) (biometric.FaceCheck, error)
}

// Server is the HTTP front end of a Verifier.
type Server struct {
	verifier   Verifier
	logger     *slog.Logger
	timeout    time.Duration
	slots      *semaphore.Weighted
	allowLocal bool
	ready      func(context.Context) error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRequestTimeout bounds each verification. Non-positive values keep
// the default.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxConcurrent limits concurrent verifications. Non-positive values
// keep the default.
func WithMaxConcurrent(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithLocalRefs controls whether requests may name local paths. They are
// rejected by default.
func WithLocalRefs(allow bool) Option {
	return func(s *Server) { s.allowLocal = allow }
}

// WithReadiness sets a check run by /healthz. A failing check turns the
// response into 503.
func WithReadiness(fn func(context.Context) error) Option {
	return func(s *Server) { s.ready = fn }
}

// New creates a Server.
func New(v Verifier, opts ...Option) *Server {
	s := &Server{
		verifier: v,
		logger:   slog.Default(),
		timeout:  DefaultRequestTimeout,
		slots:    semaphore.NewWeighted(DefaultMaxConcurrent),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/biometric/photo", s.handlePhoto)
	mux.HandleFunc("POST /api/biometric/voice", s.handleVoice)
	mux.HandleFunc("POST /api/biometric/face/detect", s.handleFaceDetect)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withRequestID(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, waiting up to grace for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, grace)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, grace time.Duration) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server: shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		s.logger.Warn("server: graceful shutdown failed", "error", err)
		if cerr := srv.Close(); cerr != nil {
			s.logger.Warn("server: forced close failed", "error", cerr)
		}
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
