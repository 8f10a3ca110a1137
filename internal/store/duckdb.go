package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/soltixdb/unitmetrics/internal/config"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/utils"

	_ "github.com/marcboeker/go-duckdb"
)

const duckdbFileName = "unitmetrics.duckdb"

// NewDuckDBStore opens a duckdb database. With neither dsn nor data_dir set the
// database lives in memory.
func NewDuckDBStore(cfg config.StorageConfig, logger *logging.Logger) (Store, error) {
	path := cfg.DSN
	if path == "" && cfg.DataDir != "" {
		path = filepath.Join(cfg.DataDir, duckdbFileName)
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create duckdb directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.StoreInitTimeout)
	defer cancel()

	s, err := newSQLStore(ctx, db, string(utils.StorageDriverDuckDB), logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if path != "" {
		s.beforeClose = func(db *sql.DB) error {
			_, err := db.Exec("CHECKPOINT")
			return err
		}
	}

	location := path
	if location == "" {
		location = "memory"
	}
	logger.Info("DuckDB store initialized",
		"path", location,
		"schema_version", SchemaVersion)

	return s, nil
}
