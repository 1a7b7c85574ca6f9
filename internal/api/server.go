package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/solax-bridge/internal/bridges/solax"
	"github.com/nerrad567/solax-bridge/internal/infrastructure/config"
	"github.com/nerrad567/solax-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/solax-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/solax-bridge/internal/inverter"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Bridge exposes the router state. *solax.Bridge implements it.
type Bridge interface {
	Model() *inverter.Model
	Namespace() solax.Namespace
	Stats() solax.Stats
}

// Upstream reports the upstream broker connection. *mqtt.Client implements it.
type Upstream interface {
	IsConnected() bool
	HealthCheck(ctx context.Context) error
}

// Queue reports outbound queue counters. *mqtt.Queue implements it.
type Queue interface {
	Stats() mqtt.QueueStats
}

// Broker reports embedded broker activity. *broker.Server implements it.
type Broker interface {
	ConnectedClients() int64
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Bridge   Bridge
	Upstream Upstream // optional
	Queue    Queue    // optional
	Broker   Broker   // optional
	Version  string
}

// Server is the HTTP status API server.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	bridge    Bridge
	upstream  Upstream
	queue     Queue
	broker    Broker
	version   string
	startTime time.Time
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, bridge); the rest are optional
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		bridge:    deps.Bridge,
		upstream:  deps.Upstream,
		queue:     deps.Queue,
		broker:    deps.Broker,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Handler returns the routed HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
//
// Returns:
//   - error: Always nil; listener errors are logged
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("status API listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
