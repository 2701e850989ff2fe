package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server serves the API and drains in-flight requests on shutdown
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
	ready           chan net.Addr
}

// ServerOption customizes a Server
type ServerOption func(*Server)

// WithShutdownTimeout bounds how long Run waits for open requests once
// its context ends
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewServer builds a server for handler on addr
func NewServer(addr string, handler http.Handler, logger *zap.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			// analyses run in the background, so responses stay small
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		shutdownTimeout: 10 * time.Second,
		logger:          logger,
		ready:           make(chan net.Addr, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready yields the bound address once the listener is open
func (s *Server) Ready() <-chan net.Addr {
	return s.ready
}

// Run binds the address and serves until ctx is cancelled. A bind failure
// is returned at once.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	s.logger.Info("http server listening", zap.Stringer("addr", ln.Addr()))
	s.ready <- ln.Addr()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down", zap.Duration("timeout", s.shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
