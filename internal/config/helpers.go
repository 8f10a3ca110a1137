package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// EnsureDirectories ensures all required directories exist
func (c *Config) EnsureDirectories() error {
	if c.Storage.DataDir == "" || c.Storage.Driver == "memory" || c.Storage.Driver == "mongo" {
		return nil
	}
	return os.MkdirAll(c.Storage.DataDir, 0755)
}

// GetDataPath returns the full path for a data file
func (c *Config) GetDataPath(filename string) string {
	return filepath.Join(c.Storage.DataDir, filename)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Logging.Level == "info" && c.Logging.Format == "json"
}

// QueueIngest reports whether accepted records go through the queue
func (c *Config) QueueIngest() bool {
	return c.Ingest.Mode == "queue"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// ClampMaxPoints applies the query defaults to a requested point budget.
// Zero selects the default; anything above the ceiling is lowered to it.
// Negative values are returned unchanged for the caller to reject.
func (c *QueryConfig) ClampMaxPoints(requested int) int {
	switch {
	case requested == 0:
		return c.DefaultMaxPoints
	case requested > c.MaxPointsCeiling:
		return c.MaxPointsCeiling
	default:
		return requested
	}
}
