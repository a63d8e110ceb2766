package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the threshold controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Redis      RedisConfig      `yaml:"redis"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Controller ControllerConfig `yaml:"controller"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Relay      RelayConfig      `yaml:"relay"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// RedisConfig contains connection settings for the sensor reading cache.
type RedisConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	DialTimeout  int    `yaml:"dial_timeout"`  // seconds
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
}

// Addr returns the host:port address of the Redis server.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MongoDBConfig contains MongoDB connection settings.
type MongoDBConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// DatabaseConfig contains SQLite database settings for the actuation audit log.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ControllerConfig contains the worker loop and rule settings.
type ControllerConfig struct {
	// DefinitionsFile is the path to the control definitions (JSON or YAML list).
	DefinitionsFile string `yaml:"definitions_file"`

	// FetchInterval is the pause between ingestion poll cycles (milliseconds).
	FetchInterval int `yaml:"fetch_interval"`

	// ControlInterval is the pause between control engine cycles (milliseconds).
	ControlInterval int `yaml:"control_interval"`

	// SweepExpiredTriggers removes pending triggers once their expiry has passed.
	SweepExpiredTriggers bool `yaml:"sweep_expired_triggers"`
}

// TelemetryConfig contains the actuator state reporting settings.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Backend selects the reporter: "influxdb" or "mongodb".
	Backend string `yaml:"backend"`

	// Interval is the time between telemetry uploads (seconds).
	Interval int `yaml:"interval"`

	// DeviceTag identifies this controller in uploaded records.
	DeviceTag int64 `yaml:"device_tag"`

	// SensorTypeBase is added to the channel number to derive the sensor type
	// of a channel state record.
	SensorTypeBase int `yaml:"sensor_type_base"`
}

// RelayConfig contains the relay gateway topic settings.
type RelayConfig struct {
	// Protocol is the topic segment used for relay commands and state,
	// e.g. graylogic/command/{protocol}/{channel}.
	Protocol string `yaml:"protocol"`
}

// MetricsConfig contains the ops HTTP server settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Addr returns the listen address of the ops server.
func (m MetricsConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: THRESHOLDCTL_SECTION_KEY
// For example: THRESHOLDCTL_REDIS_HOST, THRESHOLDCTL_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic",
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			PoolSize:     10,
			DialTimeout:  5,
			ReadTimeout:  3,
			WriteTimeout: 3,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-thresholdctl",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		MongoDB: MongoDBConfig{
			Database:   "graylogic",
			Collection: "actuator_telemetry",
		},
		Database: DatabaseConfig{
			Path:        "./data/thresholdctl.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Controller: ControllerConfig{
			DefinitionsFile: "configs/control_defs.json",
			FetchInterval:   3000,
			ControlInterval: 1000,
		},
		Telemetry: TelemetryConfig{
			Backend:        TelemetryBackendInfluxDB,
			Interval:       60,
			SensorTypeBase: 1000,
		},
		Relay: RelayConfig{
			Protocol: "relay",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    9102,
		},
	}
}

// Telemetry backends.
const (
	TelemetryBackendInfluxDB = "influxdb"
	TelemetryBackendMongoDB  = "mongodb"
)

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: THRESHOLDCTL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Redis
	if v := os.Getenv("THRESHOLDCTL_REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("THRESHOLDCTL_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("THRESHOLDCTL_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	// MQTT
	if v := os.Getenv("THRESHOLDCTL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("THRESHOLDCTL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("THRESHOLDCTL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Telemetry backends
	if v := os.Getenv("THRESHOLDCTL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("THRESHOLDCTL_MONGODB_URI"); v != "" {
		cfg.MongoDB.URI = v
	}

	// Database
	if v := os.Getenv("THRESHOLDCTL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Controller
	if v := os.Getenv("THRESHOLDCTL_DEFINITIONS_FILE"); v != "" {
		cfg.Controller.DefinitionsFile = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of all validation failures, or nil if valid
func (c *Config) Validate() error { //nolint:gocognit,gocyclo // flat list of independent field checks
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Redis.Host == "" {
		errs = append(errs, "redis.host is required")
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, "redis.port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Controller.DefinitionsFile == "" {
		errs = append(errs, "controller.definitions_file is required")
	}
	if c.Controller.FetchInterval <= 0 {
		errs = append(errs, "controller.fetch_interval must be positive")
	}
	if c.Controller.ControlInterval <= 0 {
		errs = append(errs, "controller.control_interval must be positive")
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Backend {
		case TelemetryBackendInfluxDB:
			if !c.InfluxDB.Enabled {
				errs = append(errs, "telemetry.backend influxdb requires influxdb.enabled")
			}
		case TelemetryBackendMongoDB:
			if !c.MongoDB.Enabled {
				errs = append(errs, "telemetry.backend mongodb requires mongodb.enabled")
			}
		default:
			errs = append(errs, fmt.Sprintf("telemetry.backend %q is not supported", c.Telemetry.Backend))
		}
		if c.Telemetry.Interval <= 0 {
			errs = append(errs, "telemetry.interval must be positive")
		}
	}

	if c.Relay.Protocol == "" {
		errs = append(errs, "relay.protocol is required")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errs = append(errs, "metrics.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetFetchInterval returns the ingestion poll interval as a Duration.
func (c *Config) GetFetchInterval() time.Duration {
	return time.Duration(c.Controller.FetchInterval) * time.Millisecond
}

// GetControlInterval returns the control cycle interval as a Duration.
func (c *Config) GetControlInterval() time.Duration {
	return time.Duration(c.Controller.ControlInterval) * time.Millisecond
}

// GetTelemetryInterval returns the telemetry upload interval as a Duration.
func (c *Config) GetTelemetryInterval() time.Duration {
	return time.Duration(c.Telemetry.Interval) * time.Second
}
