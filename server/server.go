// Package server wires the store, tracer and HTTP API together and runs
// them until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jacentio/flexdb/api"
	"github.com/jacentio/flexdb/store"
	"github.com/jacentio/flexdb/tracing"
)

// Server owns the long-lived store handle and serves the API over HTTP.
type Server struct {
	config Config
	logger *slog.Logger

	store        store.Store
	tracer       opentracing.Tracer
	tracerCloser io.Closer
	handler      *api.Handler
	httpServer   *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New opens the configured store and tracer and builds the HTTP handler.
func New(ctx context.Context, config Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s, err := OpenStore(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	srv, err := NewWithStore(s, config, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	return srv, nil
}

// NewWithStore builds a server around an already opened store. The server
// takes ownership of s and closes it on Close.
func NewWithStore(s store.Store, config Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tracer, closer, err := tracing.New(config.Tracing, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	traced := store.Traced(s, tracer)
	handler := api.New(traced,
		api.OptPrefix(config.APIPrefix),
		api.OptLogger(logger),
		api.OptTracer(tracer),
		api.OptRegistry(registry),
		api.OptTrustProxyHeaders(config.TrustProxyHeaders),
	)

	return &Server{
		config:       config,
		logger:       logger,
		store:        traced,
		tracer:       tracer,
		tracerCloser: closer,
		handler:      handler,
		httpServer:   &http.Server{Handler: handler},
	}, nil
}

// Handler returns the HTTP handler, for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen binds the configured address. Run calls it when it hasn't been
// called yet.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	ln, err := net.Listen("tcp", s.config.Bind)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.config.Bind, err)
	}
	s.listener = ln
	return ln.Addr(), nil
}

// Run serves HTTP until ctx is done, then shuts down gracefully, giving
// in-flight requests up to ShutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", addr.String(), "backend", s.config.Backend)
		if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", "timeout", s.config.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Close releases the store and flushes the tracer.
func (s *Server) Close() error {
	return errors.Join(s.store.Close(), s.tracerCloser.Close())
}
