package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/unitmetrics/internal/aggregation"
	"github.com/soltixdb/unitmetrics/internal/buckets"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/units"
)

// SchemaVersion is bumped whenever the metrics table layout changes
const SchemaVersion = 1

// Statements shared by the sqlite and duckdb backends. Both accept the same
// dialect, so each statement is executed on its own.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_versions (
		version    INTEGER PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS metrics (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		quantity   TEXT NOT NULL,
		unit       TEXT NOT NULL,
		value      DOUBLE NOT NULL,
		ts         BIGINT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metrics_user_quantity_ts ON metrics (user_id, quantity, ts)`,
}

// Records are keyed by id; re-inserting an id (queue redelivery) is a no-op.
const insertMetricSQL = `INSERT INTO metrics (id, user_id, quantity, unit, value, ts, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING`

// sqlStore implements Store on any database/sql driver speaking the shared dialect
type sqlStore struct {
	db     *sql.DB
	driver string
	logger *logging.Logger

	// runs before the pool is closed
	beforeClose func(*sql.DB) error
}

func newSQLStore(ctx context.Context, db *sql.DB, driver string, logger *logging.Logger) (*sqlStore, error) {
	s := &sqlStore{db: db, driver: driver, logger: logger}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s schema: %w", s.driver, err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schema_versions (version, applied_at)
		SELECT CAST(? AS INTEGER), CAST(? AS BIGINT)
		WHERE NOT EXISTS (SELECT 1 FROM schema_versions WHERE version = CAST(? AS INTEGER))`,
		SchemaVersion, time.Now().UnixMilli(), SchemaVersion)
	if err != nil {
		return fmt.Errorf("%s schema version: %w", s.driver, err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_versions`).Scan(&current); err != nil {
		return fmt.Errorf("%s schema version: %w", s.driver, err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("%s schema version %d is newer than supported version %d", s.driver, current, SchemaVersion)
	}
	return nil
}

func (s *sqlStore) Insert(ctx context.Context, record *Record) error {
	_, err := s.InsertBatch(ctx, []*Record{record})
	return err
}

// InsertBatch writes all records in one transaction
func (s *sqlStore) InsertBatch(ctx context.Context, records []*Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertMetricSQL)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.ID,
			r.OwnerID,
			r.Quantity.String(),
			r.Unit.String(),
			r.Value,
			r.Timestamp.UnixMilli(),
			r.CreatedAt.UnixMilli(),
		)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to roll back transaction", "error", rbErr)
			}
			return 0, fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(records), nil
}

// groupQuery builds the bucket join. Every planned bucket becomes one row of
// the bounds table; the last bucket's upper bound is pushed past End so the
// range end is included.
func groupQuery(filter aggregation.GroupFilter, plan *buckets.Plan) (string, []any) {
	n := plan.Len()
	args := make([]any, 0, n*3+6)

	var sb strings.Builder
	sb.WriteString("WITH bounds(idx, lo, hi) AS (VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(CAST(? AS INTEGER), CAST(? AS DOUBLE), CAST(? AS DOUBLE))")
		lo, hi := plan.Bounds(i)
		if i == n-1 {
			hi = float64(plan.End) + 1
		}
		args = append(args, i, lo, hi)
	}
	sb.WriteString(`)
SELECT b.idx, m.unit, COUNT(*), SUM(m.value), MIN(m.value), MAX(m.value)
FROM metrics m
JOIN bounds b ON m.ts >= b.lo AND m.ts < b.hi
WHERE m.user_id = ? AND m.ts >= ? AND m.ts <= ?`)
	args = append(args, filter.OwnerID, plan.Start, plan.End)

	if filter.Quantity != units.QuantityUnknown {
		sb.WriteString(" AND m.quantity = ?")
		args = append(args, filter.Quantity.String())
	}
	if filter.Start != nil {
		sb.WriteString(" AND m.ts >= ?")
		args = append(args, filter.Start.UnixMilli())
	}
	if filter.End != nil {
		sb.WriteString(" AND m.ts <= ?")
		args = append(args, filter.End.UnixMilli())
	}
	sb.WriteString("\nGROUP BY b.idx, m.unit\nORDER BY b.idx, m.unit")

	return sb.String(), args
}

// GroupByBucketAndUnit runs the grouping inside the database
func (s *sqlStore) GroupByBucketAndUnit(ctx context.Context, filter aggregation.GroupFilter, plan *buckets.Plan) ([]aggregation.UnitBucketStat, error) {
	query, args := groupQuery(filter, plan)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s group query: %w", s.driver, err)
	}
	defer func() { _ = rows.Close() }()

	var out []aggregation.UnitBucketStat
	for rows.Next() {
		var (
			idx    int
			symbol string
			stat   aggregation.Stat
		)
		if err := rows.Scan(&idx, &symbol, &stat.Count, &stat.Sum, &stat.Min, &stat.Max); err != nil {
			return nil, fmt.Errorf("%s scan group row: %w", s.driver, err)
		}
		unit, err := units.ParseUnit(symbol)
		if err != nil {
			s.logger.Warn("Skipping stored unit", "unit", symbol, "error", err)
			continue
		}
		out = append(out, aggregation.UnitBucketStat{Bucket: idx, Unit: unit, Stat: stat})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s group rows: %w", s.driver, err)
	}
	return out, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	if s.beforeClose != nil {
		if err := s.beforeClose(s.db); err != nil {
			s.logger.Warn("Pre-close step failed", "driver", s.driver, "error", err)
		}
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.driver, err)
	}
	s.logger.Info("Metric store closed", "driver", s.driver)
	return nil
}
