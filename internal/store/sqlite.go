package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soltixdb/unitmetrics/internal/config"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/utils"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteFileName = "unitmetrics.db"

// NewSQLiteStore opens (or creates) a sqlite database in WAL mode
func NewSQLiteStore(cfg config.StorageConfig, logger *logging.Logger) (Store, error) {
	path := cfg.DSN
	if path == "" {
		path = filepath.Join(cfg.DataDir, sqliteFileName)
	}

	if !strings.HasPrefix(path, ":memory:") && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.StoreInitTimeout)
	defer cancel()

	s, err := newSQLStore(ctx, db, string(utils.StorageDriverSQLite), logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.beforeClose = func(db *sql.DB) error {
		_, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return err
	}

	logger.Info("SQLite store initialized",
		"path", path,
		"schema_version", SchemaVersion)

	return s, nil
}
