package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soltixdb/unitmetrics/internal/buckets"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/units"
)

// SourceError reports a failure of the grouping provider, including timeouts
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("aggregation source failed: %v", e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the provider ran out of time
func (e *SourceError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// StatsAggregator shapes grouped provider rows into a per-bucket, per-unit table
type StatsAggregator struct {
	logger   *logging.Logger
	provider GroupingProvider
}

// NewStatsAggregator creates an aggregator reading from provider
func NewStatsAggregator(logger *logging.Logger, provider GroupingProvider) *StatsAggregator {
	return &StatsAggregator{
		logger:   logger,
		provider: provider,
	}
}

// Aggregate groups the records matching filter into the buckets of plan.
// When the filter names a quantity, targetUnit must measure it; this is checked
// before the provider is called.
func (a *StatsAggregator) Aggregate(ctx context.Context, filter GroupFilter, plan *buckets.Plan, targetUnit units.Unit) (*Table, error) {
	if filter.Quantity != units.QuantityUnknown {
		if err := units.CheckUnitQuantity(targetUnit, filter.Quantity); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	rows, err := a.provider.GroupByBucketAndUnit(ctx, filter, plan)
	if err == nil {
		// a provider may return rows after the deadline passed
		err = ctx.Err()
	}
	if err != nil {
		return nil, &SourceError{Err: err}
	}

	table := NewTable()
	dropped := 0
	for _, row := range rows {
		if row.Bucket < 0 || row.Bucket >= plan.Len() || row.Count <= 0 || !row.Unit.Valid() {
			dropped++
			continue
		}
		table.Add(row)
	}

	if dropped > 0 {
		a.logger.Warn("Dropped malformed grouped rows",
			"owner_id", filter.OwnerID,
			"dropped", dropped,
			"rows", len(rows))
	}

	a.logger.Debug("Grouped records",
		"owner_id", filter.OwnerID,
		"quantity", filter.Quantity.String(),
		"buckets", table.Len(),
		"records", table.Records(),
		"latency_ms", time.Since(start).Milliseconds())

	return table, nil
}
