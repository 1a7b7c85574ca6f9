package broker

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
)

// listenerID names the single TCP listener.
const listenerID = "inverters"

// Options configures New.
type Options struct {
	// Address is the TCP listen address, e.g. "0.0.0.0:2901".
	Address string

	// ClientID labels publishes made through Inject.
	ClientID string

	// Logger receives broker logs; nil uses slog.Default().
	Logger *slog.Logger
}

// Server is the MQTT endpoint the inverters connect to.
//
// It accepts any client without credentials and hands every publish and
// subscription to the registered Interceptor before normal delivery.
type Server struct {
	opts   Options
	server *mqtt.Server
	hook   *interceptHook
	inline *mqtt.Client

	mu      sync.Mutex
	running atomic.Bool
}

// New builds a broker with an allow-all auth hook and the interception hook.
//
// Parameters:
//   - opts: Listen address, inject client id, logger
//
// Returns:
//   - *Server: Broker ready for Start
//   - error: If a hook or the listener cannot be registered
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	srv := mqtt.New(&mqtt.Options{
		Logger: opts.Logger,
	})

	if err := srv.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("adding auth hook: %w", err)
	}

	hook := new(interceptHook)
	if err := srv.AddHook(hook, nil); err != nil {
		return nil, fmt.Errorf("adding intercept hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{
		ID:      listenerID,
		Address: opts.Address,
	})
	if err := srv.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrListenFailed, opts.Address, err)
	}

	return &Server{
		opts:   opts,
		server: srv,
		hook:   hook,
		inline: srv.NewClient(nil, "local", opts.ClientID, true),
	}, nil
}

// SetInterceptor registers the traffic observer. It may be called before or after Start.
func (s *Server) SetInterceptor(i Interceptor) {
	s.hook.set(i)
}

// Start begins accepting connections. It does not block.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.server.Serve(); err != nil {
		return fmt.Errorf("starting broker: %w", err)
	}
	s.running.Store(true)
	return nil
}

// Inject publishes a message on the embedded broker as the bridge's own client.
// Subscribed inverters receive it like any other publish.
//
// Parameters:
//   - topic: Target topic
//   - payload: Message body
//   - retain: Whether the broker retains the message
//
// Returns:
//   - error: ErrNotStarted before Start, or ErrInjectFailed
func (s *Server) Inject(topic string, payload []byte, retain bool) error {
	if !s.running.Load() {
		return ErrNotStarted
	}

	err := s.server.InjectPacket(s.inline, packets.Packet{
		FixedHeader: packets.FixedHeader{
			Type:   packets.Publish,
			Retain: retain,
		},
		TopicName: topic,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInjectFailed, topic, err)
	}
	return nil
}

// ConnectedClients returns the number of connected inverter clients.
func (s *Server) ConnectedClients() int64 {
	return atomic.LoadInt64(&s.server.Info.ClientsConnected)
}

// Close stops the listener and disconnects every client.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Swap(false) {
		return nil
	}
	if err := s.server.Close(); err != nil {
		return fmt.Errorf("closing broker: %w", err)
	}
	return nil
}
