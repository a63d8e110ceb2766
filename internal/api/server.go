package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-threshold/internal/audit"
	"github.com/nerrad567/gray-logic-threshold/internal/control"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-threshold/internal/relay"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Server timeouts. Handlers only read local state or ping dependencies.
const (
	readTimeout  = 5 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// HealthCheck calls f.
func (f HealthCheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// RuleSource supplies the loaded rules.
type RuleSource interface {
	Definitions() []control.Definition
	Channels() []int
}

// ChannelSource supplies relay channel states.
type ChannelSource interface {
	ChannelStates() map[int]relay.ChannelState
}

// Deps holds the dependencies required by the ops server.
type Deps struct {
	Config     config.MetricsConfig
	Logger     *logging.Logger
	Metrics    http.Handler             // Prometheus handler; /metrics is 404 when nil
	Checks     map[string]HealthChecker // Named dependency checks for /healthz
	Rules      RuleSource               // Optional
	Channels   ChannelSource            // Optional
	Actuations audit.Repository         // Optional
	DB         *sql.DB                  // Optional, for pool stats
	Version    string
}

// Server is the ops HTTP server.
type Server struct {
	cfg        config.MetricsConfig
	logger     *logging.Logger
	metrics    http.Handler
	checks     map[string]HealthChecker
	rules      RuleSource
	channels   ChannelSource
	actuations audit.Repository
	db         *sql.DB
	version    string
	startTime  time.Time
	server     *http.Server
}

// New creates an ops server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		checks:     deps.Checks,
		rules:      deps.Rules,
		channels:   deps.Channels,
		actuations: deps.Actuations,
		db:         deps.DB,
		version:    deps.Version,
		startTime:  time.Now(),
	}, nil
}

// Start begins listening in a background goroutine.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		s.logger.Info("ops server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ops server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("ops server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down ops server: %w", err)
	}
	return nil
}
