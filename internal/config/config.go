package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Query   QueryConfig   `mapstructure:"query"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort        int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // Grace period for in-flight requests
}

// StorageConfig represents record store configuration
type StorageConfig struct {
	Driver       string      `mapstructure:"driver"`   // memory, sqlite, duckdb, mongo
	DSN          string      `mapstructure:"dsn"`      // Database path or DSN; derived from data_dir when empty
	DataDir      string      `mapstructure:"data_dir"` // Directory for file-backed drivers
	Mongo        MongoConfig `mapstructure:"mongo"`
	MaxOpenConns int         `mapstructure:"max_open_conns"` // 0 = driver default
}

// MongoConfig represents MongoDB connection settings
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, mqtt, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, mqtt://localhost:1883)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "unitmetrics")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "unitmetrics-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID

	// MQTT-specific options
	MQTTClientID string `mapstructure:"mqtt_client_id"` // Client identifier (default: hostname based)
	MQTTQoS      byte   `mapstructure:"mqtt_qos"`       // 0, 1 or 2 (default: 1)
}

// IngestConfig selects the write path
type IngestConfig struct {
	Mode        string `mapstructure:"mode"`        // sync: write in request, queue: publish for the consumer
	Subject     string `mapstructure:"subject"`     // Queue subject for accepted records
	Compression string `mapstructure:"compression"` // none, snappy
}

// QueryConfig bounds the aggregation query
type QueryConfig struct {
	DefaultMaxPoints int           `mapstructure:"default_max_points"` // Used when a query omits maxDataPoints
	MaxPointsCeiling int           `mapstructure:"max_points_ceiling"` // Upper clamp for maxDataPoints
	Timeout          time.Duration `mapstructure:"timeout"`            // Deadline for one grouped aggregation
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest config: %w", err)
	}

	if c.Ingest.Mode == "queue" {
		if err := c.Queue.Validate(); err != nil {
			return fmt.Errorf("queue config: %w", err)
		}
	}

	if err := c.Query.Validate(); err != nil {
		return fmt.Errorf("query config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout cannot be negative")
	}

	return nil
}

// Validate validates storage configuration
func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case "memory", "duckdb":
	case "sqlite":
		if c.DSN == "" && c.DataDir == "" {
			return fmt.Errorf("sqlite requires dsn or data_dir")
		}
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required")
		}
		if c.Mongo.Database == "" || c.Mongo.Collection == "" {
			return fmt.Errorf("mongo.database and mongo.collection are required")
		}
	default:
		return fmt.Errorf("driver must be one of: memory, sqlite, duckdb, mongo")
	}

	if c.MaxOpenConns < 0 {
		return fmt.Errorf("max_open_conns cannot be negative")
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	validTypes := map[string]bool{
		"":       true, // defaults to nats
		"nats":   true,
		"redis":  true,
		"kafka":  true,
		"mqtt":   true,
		"memory": true,
	}

	if !validTypes[c.Type] {
		return fmt.Errorf("queue.type must be one of: nats, redis, kafka, mqtt, memory")
	}

	if c.MQTTQoS > 2 {
		return fmt.Errorf("queue.mqtt_qos must be 0, 1 or 2")
	}

	return nil
}

// Validate validates ingest configuration
func (c *IngestConfig) Validate() error {
	if c.Mode != "sync" && c.Mode != "queue" {
		return fmt.Errorf("ingest.mode must be 'sync' or 'queue'")
	}

	if c.Mode == "queue" && c.Subject == "" {
		return fmt.Errorf("ingest.subject is required in queue mode")
	}

	if c.Compression != "" && c.Compression != "none" && c.Compression != "snappy" {
		return fmt.Errorf("ingest.compression must be 'none' or 'snappy'")
	}

	return nil
}

// Validate validates query configuration
func (c *QueryConfig) Validate() error {
	if c.DefaultMaxPoints < 1 {
		return fmt.Errorf("query.default_max_points must be at least 1")
	}

	if c.MaxPointsCeiling < c.DefaultMaxPoints {
		return fmt.Errorf("query.max_points_ceiling cannot be below query.default_max_points")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be positive")
	}

	return nil
}

// Validate validates metrics configuration
func (c *MetricsConfig) Validate() error {
	if c.Enabled && (c.Path == "" || c.Path[0] != '/') {
		return fmt.Errorf("metrics.path must start with '/'")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
