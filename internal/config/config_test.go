package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid http port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: true,
		},
		{
			name:    "unknown storage driver",
			mutate:  func(c *Config) { c.Storage.Driver = "cassandra" },
			wantErr: true,
		},
		{
			name: "sqlite without location",
			mutate: func(c *Config) {
				c.Storage.DSN = ""
				c.Storage.DataDir = ""
			},
			wantErr: true,
		},
		{
			name: "in-memory duckdb",
			mutate: func(c *Config) {
				c.Storage.Driver = "duckdb"
				c.Storage.DataDir = ""
			},
			wantErr: false,
		},
		{
			name: "mongo without uri",
			mutate: func(c *Config) {
				c.Storage.Driver = "mongo"
				c.Storage.Mongo.URI = ""
			},
			wantErr: true,
		},
		{
			name:    "invalid ingest mode",
			mutate:  func(c *Config) { c.Ingest.Mode = "batch" },
			wantErr: true,
		},
		{
			name: "queue mode without subject",
			mutate: func(c *Config) {
				c.Ingest.Mode = "queue"
				c.Ingest.Subject = ""
			},
			wantErr: true,
		},
		{
			name: "queue mode with mqtt",
			mutate: func(c *Config) {
				c.Ingest.Mode = "queue"
				c.Queue.Type = "mqtt"
			},
			wantErr: false,
		},
		{
			name: "unknown queue type only matters in queue mode",
			mutate: func(c *Config) {
				c.Queue.Type = "rabbitmq"
			},
			wantErr: false,
		},
		{
			name: "unknown queue type in queue mode",
			mutate: func(c *Config) {
				c.Ingest.Mode = "queue"
				c.Queue.Type = "rabbitmq"
			},
			wantErr: true,
		},
		{
			name:    "invalid compression",
			mutate:  func(c *Config) { c.Ingest.Compression = "zstd" },
			wantErr: true,
		},
		{
			name:    "ceiling below default",
			mutate:  func(c *Config) { c.Query.MaxPointsCeiling = 10 },
			wantErr: true,
		},
		{
			name:    "zero query timeout",
			mutate:  func(c *Config) { c.Query.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "relative metrics path",
			mutate:  func(c *Config) { c.Metrics.Path = "metrics" },
			wantErr: true,
		},
		{
			name:    "invalid logging level",
			mutate:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 3000 {
		t.Errorf("expected HTTPPort 3000, got %d", cfg.Server.HTTPPort)
	}

	if cfg.Query.DefaultMaxPoints != 100 {
		t.Errorf("expected default max points 100, got %d", cfg.Query.DefaultMaxPoints)
	}

	if cfg.Query.MaxPointsCeiling != 1000 {
		t.Errorf("expected max points ceiling 1000, got %d", cfg.Query.MaxPointsCeiling)
	}

	if cfg.Ingest.Mode != "sync" {
		t.Errorf("expected sync ingest, got %s", cfg.Ingest.Mode)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IsProduction() {
		t.Error("default config should be production mode")
	}

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"

	if !cfg.IsDevelopment() {
		t.Error("config with debug/console should be development mode")
	}

	dataPath := cfg.GetDataPath("test.db")
	if dataPath != "data/test.db" {
		t.Errorf("expected 'data/test.db', got %s", dataPath)
	}

	if addr := cfg.GetServerAddress(); addr != "0.0.0.0:3000" {
		t.Errorf("expected '0.0.0.0:3000', got %s", addr)
	}

	if cfg.QueueIngest() {
		t.Error("default config should ingest synchronously")
	}
}

func TestClampMaxPoints(t *testing.T) {
	q := DefaultConfig().Query

	tests := []struct {
		requested int
		want      int
	}{
		{0, 100},
		{1, 1},
		{250, 250},
		{1000, 1000},
		{5000, 1000},
		{-3, -3},
	}

	for _, tt := range tests {
		if got := q.ClampMaxPoints(tt.requested); got != tt.want {
			t.Errorf("ClampMaxPoints(%d) = %d, want %d", tt.requested, got, tt.want)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_port: 8080
storage:
  driver: duckdb
  data_dir: ""
query:
  default_max_points: 50
  timeout: 3s
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("expected HTTPPort 8080, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Storage.Driver != "duckdb" {
		t.Errorf("expected duckdb driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Query.DefaultMaxPoints != 50 {
		t.Errorf("expected default max points 50, got %d", cfg.Query.DefaultMaxPoints)
	}
	if cfg.Query.MaxPointsCeiling != 1000 {
		t.Errorf("expected ceiling default 1000, got %d", cfg.Query.MaxPointsCeiling)
	}
	if cfg.Query.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", cfg.Query.Timeout)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("expected default metrics path, got %s", cfg.Metrics.Path)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  http_port: 8080\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("UNITMETRICS_SERVER_HTTP_PORT", "9090")
	t.Setenv("UNITMETRICS_INGEST_MODE", "queue")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("expected env override 9090, got %d", cfg.Server.HTTPPort)
	}
	if !cfg.QueueIngest() {
		t.Error("expected queue ingest from env override")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}

	cfg := LoadOrDefault(path)
	if cfg.Logging.Level != "info" {
		t.Errorf("LoadOrDefault should fall back to defaults, got level %s", cfg.Logging.Level)
	}
}
