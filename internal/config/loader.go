package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. UNITMETRICS_STORAGE_DRIVER
const EnvPrefix = "UNITMETRICS"

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")                // Current directory
		v.AddConfigPath("./configs")        // Project configs directory
		v.AddConfigPath("./config")         // Alternative config directory
		v.AddConfigPath("/etc/unitmetrics") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	// Storage defaults
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.max_open_conns", d.Storage.MaxOpenConns)
	v.SetDefault("storage.mongo.uri", d.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", d.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.collection", d.Storage.Mongo.Collection)

	// Queue defaults
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.mqtt_qos", d.Queue.MQTTQoS)

	// Ingest defaults
	v.SetDefault("ingest.mode", d.Ingest.Mode)
	v.SetDefault("ingest.subject", d.Ingest.Subject)
	v.SetDefault("ingest.compression", d.Ingest.Compression)

	// Query defaults
	v.SetDefault("query.default_max_points", d.Query.DefaultMaxPoints)
	v.SetDefault("query.max_points_ceiling", d.Query.MaxPointsCeiling)
	v.SetDefault("query.timeout", d.Query.Timeout)

	// Auth defaults
	v.SetDefault("auth.enabled", d.Auth.Enabled)

	// Metrics defaults
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			HTTPPort:        3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			DataDir: "./data",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "unitmetrics",
				Collection: "metrics",
			},
		},
		Queue: QueueConfig{
			Type:    "nats",
			URL:     "nats://localhost:4222",
			MQTTQoS: 1,
		},
		Ingest: IngestConfig{
			Mode:        "sync",
			Subject:     "unitmetrics.records",
			Compression: "snappy",
		},
		Query: QueryConfig{
			DefaultMaxPoints: 100,
			MaxPointsCeiling: 1000,
			Timeout:          10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
