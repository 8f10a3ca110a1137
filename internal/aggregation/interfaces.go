package aggregation

import (
	"context"
	"time"

	"github.com/soltixdb/unitmetrics/internal/buckets"
	"github.com/soltixdb/unitmetrics/internal/units"
)

// =============================================================================
// Interfaces implemented by the storage layer
// =============================================================================

// GroupFilter narrows the records a GroupingProvider aggregates
type GroupFilter struct {
	OwnerID  string
	Quantity units.Quantity // QuantityUnknown matches every quantity
	Start    *time.Time     // inclusive, nil = unbounded
	End      *time.Time     // inclusive, nil = unbounded
}

// GroupingProvider groups stored records by bucket and unit.
// Implemented by every store backend.
type GroupingProvider interface {
	// GroupByBucketAndUnit returns one row per (bucket, unit) pair holding at
	// least one matching record. Each record is assigned to the unique bucket of
	// plan containing its timestamp; records outside the plan are ignored.
	GroupByBucketAndUnit(ctx context.Context, filter GroupFilter, plan *buckets.Plan) ([]UnitBucketStat, error)
}
