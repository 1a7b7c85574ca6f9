package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Solax bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Broker   BrokerConfig   `yaml:"broker"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Topics   TopicsConfig   `yaml:"topics"`
	Inverter InverterConfig `yaml:"inverter"`
	Health   HealthConfig   `yaml:"health"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	// Timezone is the IANA zone used to answer inverter time-sync requests.
	// "Local" uses the host zone.
	Timezone string `yaml:"timezone"`
}

// BrokerConfig contains settings for the embedded broker the inverters connect to.
type BrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ClientID labels publishes injected by the bridge itself.
	ClientID string `yaml:"client_id"`
}

// MQTTConfig contains upstream MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Queue     QueueConfig         `yaml:"queue"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// QueueConfig controls the outbound publish queue.
type QueueConfig struct {
	MaxPending   int           `yaml:"max_pending"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	// Storage selects the spool backend: "memory", "sqlite" or "bolt".
	Storage string `yaml:"storage"`
	// Path is the spool file for the sqlite and bolt backends.
	Path        string `yaml:"path"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// TopicsConfig contains the two namespace roots of the outbound topic surface.
type TopicsConfig struct {
	Sensor    string `yaml:"sensor"`
	Discovery string `yaml:"discovery"`
}

// InverterConfig selects the inverter model and its publishing policy.
type InverterConfig struct {
	Model string `yaml:"model"`
	// Definitions is an optional YAML file with additional model tables.
	Definitions    string `yaml:"definitions"`
	GridPowerClass string `yaml:"grid_power_class"`
	StatusSensor   bool   `yaml:"status_sensor"`
}

// HealthConfig controls the retained bridge health document.
type HealthConfig struct {
	Enabled bool `yaml:"enabled"`
	// Interval between health publishes, in seconds.
	Interval int `yaml:"interval"`
}

// APIConfig contains HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SOLAXBRIDGE_SECTION_KEY
// For example: SOLAXBRIDGE_MQTT_HOST, SOLAXBRIDGE_TOPICS_SENSOR.
// The unprefixed MQTT_HOST, MQTT_PORT, MQTT_TOPIC and MQTT_DISCOVERY_PREFIX
// variables of earlier deployments are honoured when the prefixed one is unset.
//
// Parameters:
//   - path: Path to the YAML configuration file; empty means defaults and environment only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOptional behaves like Load but treats a missing file as "no file".
func LoadOptional(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return Load(path)
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Timezone: "Local",
		},
		Broker: BrokerConfig{
			Host:     "0.0.0.0",
			Port:     2901,
			ClientID: "SolaxMQTTBridge",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			Queue: QueueConfig{
				MaxPending:   10000,
				DrainTimeout: 10 * time.Second,
				RetryDelay:   2 * time.Second,
				Storage:      "memory",
				Path:         "./data/outbound.db",
				BusyTimeout:  5,
			},
		},
		Topics: TopicsConfig{
			Sensor:    "solax",
			Discovery: "homeassistant",
		},
		Inverter: InverterConfig{
			Model:          "x3",
			GridPowerClass: "energy",
		},
		Health: HealthConfig{
			Enabled:  true,
			Interval: 60,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// envOr returns the first non-empty environment variable among names.
func envOr(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func envInt(dst *int, names ...string) error {
	v := envOr(names...)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", names[0], v)
	}
	*dst = n
	return nil
}

func envBool(dst *bool, name string) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not a boolean", name, v)
	}
	*dst = b
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	if v := os.Getenv("SOLAXBRIDGE_SITE_TIMEZONE"); v != "" {
		cfg.Site.Timezone = v
	}

	// Embedded broker
	if v := os.Getenv("SOLAXBRIDGE_BROKER_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	errs = append(errs, envInt(&cfg.Broker.Port, "SOLAXBRIDGE_BROKER_PORT"))

	// Upstream MQTT
	if v := envOr("SOLAXBRIDGE_MQTT_HOST", "MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	errs = append(errs, envInt(&cfg.MQTT.Broker.Port, "SOLAXBRIDGE_MQTT_PORT", "MQTT_PORT"))
	if v := os.Getenv("SOLAXBRIDGE_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("SOLAXBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SOLAXBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	errs = append(errs, envBool(&cfg.MQTT.Broker.TLS, "SOLAXBRIDGE_MQTT_TLS"))
	if v := os.Getenv("SOLAXBRIDGE_QUEUE_STORAGE"); v != "" {
		cfg.MQTT.Queue.Storage = v
	}
	if v := os.Getenv("SOLAXBRIDGE_QUEUE_PATH"); v != "" {
		cfg.MQTT.Queue.Path = v
	}

	// Topics
	if v := envOr("SOLAXBRIDGE_TOPICS_SENSOR", "MQTT_TOPIC"); v != "" {
		cfg.Topics.Sensor = v
	}
	if v := envOr("SOLAXBRIDGE_TOPICS_DISCOVERY", "MQTT_DISCOVERY_PREFIX"); v != "" {
		cfg.Topics.Discovery = v
	}

	// Inverter
	if v := os.Getenv("SOLAXBRIDGE_INVERTER_MODEL"); v != "" {
		cfg.Inverter.Model = v
	}
	if v := os.Getenv("SOLAXBRIDGE_INVERTER_DEFINITIONS"); v != "" {
		cfg.Inverter.Definitions = v
	}
	if v := os.Getenv("SOLAXBRIDGE_INVERTER_GRID_POWER_CLASS"); v != "" {
		cfg.Inverter.GridPowerClass = v
	}
	errs = append(errs, envBool(&cfg.Inverter.StatusSensor, "SOLAXBRIDGE_INVERTER_STATUS_SENSOR"))

	// Health
	errs = append(errs, envBool(&cfg.Health.Enabled, "SOLAXBRIDGE_HEALTH_ENABLED"))
	errs = append(errs, envInt(&cfg.Health.Interval, "SOLAXBRIDGE_HEALTH_INTERVAL"))

	// API
	errs = append(errs, envBool(&cfg.API.Enabled, "SOLAXBRIDGE_API_ENABLED"))
	if v := os.Getenv("SOLAXBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	errs = append(errs, envInt(&cfg.API.Port, "SOLAXBRIDGE_API_PORT"))

	// Logging
	if v := os.Getenv("SOLAXBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SOLAXBRIDGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return errors.Join(errs...)
}

// normalise trims namespace roots so topic construction never doubles a separator.
func (c *Config) normalise() {
	c.Topics.Sensor = strings.Trim(c.Topics.Sensor, "/")
	c.Topics.Discovery = strings.Trim(c.Topics.Discovery, "/")
	c.Inverter.Model = strings.ToLower(strings.TrimSpace(c.Inverter.Model))
	c.Inverter.GridPowerClass = strings.ToLower(strings.TrimSpace(c.Inverter.GridPowerClass))
	c.MQTT.Queue.Storage = strings.ToLower(strings.TrimSpace(c.MQTT.Queue.Storage))
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a known time zone", c.Site.Timezone))
	}

	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		errs = append(errs, "broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Queue.MaxPending < 1 {
		errs = append(errs, "mqtt.queue.max_pending must be positive")
	}
	switch c.MQTT.Queue.Storage {
	case "memory":
	case "sqlite", "bolt":
		if c.MQTT.Queue.Path == "" {
			errs = append(errs, "mqtt.queue.path is required for "+c.MQTT.Queue.Storage+" storage")
		}
	default:
		errs = append(errs, "mqtt.queue.storage must be memory, sqlite, or bolt")
	}

	if c.Topics.Sensor == "" {
		errs = append(errs, "topics.sensor is required")
	}
	if c.Topics.Discovery == "" {
		errs = append(errs, "topics.discovery is required")
	}
	if strings.ContainsAny(c.Topics.Sensor+c.Topics.Discovery, "#+") {
		errs = append(errs, "topics must not contain MQTT wildcards")
	}

	if c.Inverter.Model == "" {
		errs = append(errs, "inverter.model is required")
	}
	switch c.Inverter.GridPowerClass {
	case "energy", "power":
	default:
		errs = append(errs, "inverter.grid_power_class must be energy or power")
	}

	if c.Health.Enabled && c.Health.Interval < 1 {
		errs = append(errs, "health.interval must be positive")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location resolves the site time zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Site.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Site.Timezone)
	}
}

// BrokerAddress returns the listen address of the embedded broker.
func (c *Config) BrokerAddress() string {
	return fmt.Sprintf("%s:%d", c.Broker.Host, c.Broker.Port)
}

// GetHealthInterval returns the health publish interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Health.Interval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
