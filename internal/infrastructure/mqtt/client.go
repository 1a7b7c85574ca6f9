package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/solax-bridge/internal/infrastructure/config"
)

// connectWait is how long Connect blocks for the first CONNACK before
// leaving the retry loop to run in the background.
var connectWait = defaultConnectTimeout

// Client wraps paho.mqtt.golang for the upstream (Home Assistant side) broker.
//
// It provides connection management, message publishing, and automatic
// reconnection with exponential backoff. A Client is returned even when the
// broker is unreachable at startup; paho keeps retrying and IsConnected
// reports the outcome.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	// stateTopic receives the retained online/offline availability of the bridge.
	stateTopic string

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// Callbacks for connection events (optional, set via SetOnConnect/SetOnDisconnect).
	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	// logger for connection logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Connect starts a connection to the upstream MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament (LWT) on stateTopic
//  3. Sets up connect retry and auto-reconnect with exponential backoff
//  4. Waits a bounded time for the first connection
//  5. Publishes "online" to stateTopic on every (re)connect
//
// An empty client id is replaced by "solaxbridge-<uuid>".
//
// Parameters:
//   - cfg: Upstream MQTT configuration
//   - stateTopic: Retained availability topic; empty disables LWT and status publishing
//   - logger: Optional logger (may be nil)
//
// Returns:
//   - *Client: Client that is connected or still retrying in the background
//   - error: If the broker rejected the connection outright
func Connect(cfg config.MQTTConfig, stateTopic string, logger Logger) (*Client, error) {
	if cfg.Broker.ClientID == "" {
		cfg.Broker.ClientID = "solaxbridge-" + uuid.NewString()
	}

	opts := buildClientOptions(cfg)
	if stateTopic != "" {
		configureLWT(opts, stateTopic)
	}

	c := &Client{
		cfg:        cfg,
		options:    opts,
		stateTopic: stateTopic,
		logger:     logger,
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if l := c.getLogger(); l != nil {
			l.Warn("reconnecting to upstream broker", "broker", brokerURL(cfg))
		}
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectWait) {
		// ConnectRetry keeps the token open until a connection succeeds.
		if l := c.getLogger(); l != nil {
			l.Warn("upstream broker not reachable yet, retrying in background",
				"broker", brokerURL(cfg),
				"waited", connectWait.String(),
			)
		}
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler runs asynchronously, so mark the state here too.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return c, nil
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	if l := c.getLogger(); l != nil {
		l.Info("connected to upstream broker", "broker", brokerURL(c.cfg))
	}

	c.publishState(stateOnline)

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	if l := c.getLogger(); l != nil {
		l.Warn("upstream broker connection lost", "error", err)
	}

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// publishState publishes the retained bridge availability.
func (c *Client) publishState(state string) pahomqtt.Token {
	if c.stateTopic == "" {
		return nil
	}
	return c.client.Publish(c.stateTopic, byte(c.cfg.QoS), true, state)
}

// Close gracefully disconnects from the MQTT broker.
//
// It performs:
//  1. Publishes "offline" to the state topic (the LWT covers crashes)
//  2. Waits for pending publish operations
//  3. Disconnects from broker, which also stops any pending retry
//
// Returns:
//   - error: If disconnect fails (connection already closed is not an error)
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		if token := c.publishState(stateOffline); token != nil {
			token.WaitTimeout(defaultPublishTimeout)
		}
	}

	c.client.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}

// HealthCheck verifies the MQTT connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	if c.client == nil {
		return false
	}
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// ClientID returns the client identifier in use, including a generated one.
func (c *Client) ClientID() string {
	return c.cfg.Broker.ClientID
}

// SetOnConnect sets a callback to be invoked when connection is established.
// This is called on initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger replaces the connection logger.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}
