// Package store persists metric records and answers grouped bucket/unit
// aggregations for the query path.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soltixdb/unitmetrics/internal/aggregation"
	"github.com/soltixdb/unitmetrics/internal/config"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/units"
	"github.com/soltixdb/unitmetrics/internal/utils"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("store is closed")

// Record is one stored measurement. Records are never modified after insert.
type Record struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"userId"`
	Quantity  units.Quantity `json:"type"`
	Unit      units.Unit     `json:"unit"`
	Value     float64        `json:"value"`
	Timestamp time.Time      `json:"date"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Validate checks the fields every backend relies on
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if r.OwnerID == "" {
		return fmt.Errorf("record %s: owner id is required", r.ID)
	}
	if err := units.CheckUnitQuantity(r.Unit, r.Quantity); err != nil {
		return fmt.Errorf("record %s: %w", r.ID, err)
	}
	return nil
}

// Store is a record sink that can also group its records into buckets
type Store interface {
	aggregation.GroupingProvider

	// Insert writes a single record
	Insert(ctx context.Context, record *Record) error

	// InsertBatch writes records and returns how many were stored
	InsertBatch(ctx context.Context, records []*Record) (int, error)

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}

// New creates a store for the configured driver
func New(cfg config.StorageConfig, logger *logging.Logger) (Store, error) {
	driver := utils.StorageDriver(cfg.Driver)
	if driver == "" {
		driver = utils.StorageDriverMemory
	}

	logger.Info("Creating metric store", "driver", string(driver))

	switch driver {
	case utils.StorageDriverMemory:
		return NewMemoryStore(logger), nil
	case utils.StorageDriverSQLite:
		return NewSQLiteStore(cfg, logger)
	case utils.StorageDriverDuckDB:
		return NewDuckDBStore(cfg, logger)
	case utils.StorageDriverMongo:
		return NewMongoStore(cfg.Mongo, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// matches reports whether r passes the non-bucket parts of filter
func matches(r *Record, filter aggregation.GroupFilter) bool {
	if r.OwnerID != filter.OwnerID {
		return false
	}
	if filter.Quantity != units.QuantityUnknown && r.Quantity != filter.Quantity {
		return false
	}
	if filter.Start != nil && r.Timestamp.Before(*filter.Start) {
		return false
	}
	if filter.End != nil && r.Timestamp.After(*filter.End) {
		return false
	}
	return true
}
