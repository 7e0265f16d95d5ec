package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"velocity-hq/loadgate/pkg/config"
	"velocity-hq/loadgate/pkg/telemetry/health"
	"velocity-hq/loadgate/pkg/telemetry/metrics"
	"velocity-hq/loadgate/pkg/telemetry/tracing"
)

// Route patterns served by the API.
const (
	RouteLoads = "/api/loads"
	RouteUsage = "/api/customers/{customerID}/usage"
)

// Config wires the server to its dependencies. Evaluator is required; the
// telemetry components are optional.
type Config struct {
	Server  config.ServerConfig
	Health  config.HealthConfig
	Metrics config.MetricsConfig

	Evaluator Evaluator
	Collector *metrics.Collector
	Checker   *health.Checker
	Tracer    *tracing.Tracer
	Version   health.VersionInfo
	Logger    *slog.Logger
}

// Server is the load admission HTTP API.
type Server struct {
	config    *config.ServerConfig
	evaluator Evaluator
	handler   http.Handler
	limiters  *clientLimiters
	logger    *slog.Logger
	now       func() time.Time

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// New creates a server and builds its routes and middleware chain.
func New(cfg Config) (*Server, error) {
	if cfg.Evaluator == nil {
		return nil, errors.New("server: evaluator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = config.DefaultMaxBodyBytes
	}

	s := &Server{
		config:    &cfg.Server,
		evaluator: cfg.Evaluator,
		logger:    cfg.Logger.With("component", "server"),
		now:       time.Now,
	}
	if cfg.Server.RateLimit.Enabled {
		s.limiters = newClientLimiters(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
	}
	s.handler = s.setupRoutes(cfg)
	return s, nil
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes(cfg Config) http.Handler {
	mux := http.NewServeMux()

	var httpMetrics *metrics.HTTPMetrics
	if cfg.Collector != nil {
		httpMetrics = cfg.Collector.HTTP()
	}

	api := func(route string, h http.HandlerFunc) http.Handler {
		var handler http.Handler = h
		if s.limiters != nil {
			handler = s.limiters.middleware(handler)
		}
		return httpMetrics.Instrument(route, handler)
	}

	mux.Handle("POST "+RouteLoads, api(RouteLoads, s.handleLoad))
	mux.Handle("GET "+RouteUsage, api(RouteUsage, s.handleUsage))

	if cfg.Checker != nil {
		health.Register(mux, cfg.Checker, cfg.Health, cfg.Version)
	}
	if cfg.Collector != nil && cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, cfg.Collector.Handler())
	}

	var handler http.Handler = mux

	if cfg.Tracer != nil {
		handler = cfg.Tracer.Middleware(handler)
	}

	handler = RequestIDMiddleware(handler)
	handler = LoggingMiddleware(s.logger)(handler)

	// Recovery middleware (outermost)
	handler = RecoveryMiddleware(s.logger)(handler)

	return handler
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.addr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	srv := s.httpServer
	s.mu.Unlock()

	if s.limiters != nil {
		go s.limiters.janitor(ctx, limiterCleanupEvery)
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting load server",
			"address", ln.Addr().String(),
			"rate_limit", s.limiters != nil,
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		if !ok {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		srv := s.httpServer
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("load server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the listening address once Serve has started.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
