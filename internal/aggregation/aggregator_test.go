package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soltixdb/unitmetrics/internal/buckets"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// providerFunc adapts a function to GroupingProvider
type providerFunc func(ctx context.Context, filter GroupFilter, plan *buckets.Plan) ([]UnitBucketStat, error)

func (f providerFunc) GroupByBucketAndUnit(ctx context.Context, filter GroupFilter, plan *buckets.Plan) ([]UnitBucketStat, error) {
	return f(ctx, filter, plan)
}

func staticProvider(rows ...UnitBucketStat) providerFunc {
	return func(context.Context, GroupFilter, *buckets.Plan) ([]UnitBucketStat, error) {
		return rows, nil
	}
}

func testPlan(t *testing.T, maxPoints int) *buckets.Plan {
	t.Helper()
	plan, err := buckets.NewPlanMillis(0, 9999, maxPoints)
	require.NoError(t, err)
	return plan
}

func row(bucket int, unit units.Unit, values ...float64) UnitBucketStat {
	r := UnitBucketStat{Bucket: bucket, Unit: unit}
	for _, v := range values {
		r.Add(v)
	}
	return r
}

func TestStatsAggregator_Aggregate(t *testing.T) {
	provider := staticProvider(
		row(0, units.Meter, 1, 2, 3),
		row(0, units.Feet, 10),
		row(3, units.Meter, 5),
	)
	agg := NewStatsAggregator(logging.NewDevelopment(), provider)

	table, err := agg.Aggregate(context.Background(), GroupFilter{OwnerID: "1", Quantity: units.Distance}, testPlan(t, 5), units.Meter)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 3}, table.Buckets())
	assert.Equal(t, []units.Unit{units.Meter, units.Feet}, table.Units(0))
	assert.Equal(t, int64(5), table.Records())

	stat, ok := table.Get(0, units.Meter)
	require.True(t, ok)
	assert.Equal(t, Stat{Count: 3, Sum: 6, Min: 1, Max: 3}, stat)

	_, ok = table.Get(1, units.Meter)
	assert.False(t, ok, "empty buckets are not zero-filled")
}

func TestStatsAggregator_MismatchFailsBeforeProvider(t *testing.T) {
	called := false
	provider := providerFunc(func(context.Context, GroupFilter, *buckets.Plan) ([]UnitBucketStat, error) {
		called = true
		return nil, nil
	})
	agg := NewStatsAggregator(logging.NewDevelopment(), provider)

	_, err := agg.Aggregate(context.Background(), GroupFilter{OwnerID: "1", Quantity: units.Temperature}, testPlan(t, 5), units.Yard)

	var mismatch *units.UnitQuantityMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.False(t, called, "provider must not be invoked on a quantity mismatch")
}

func TestStatsAggregator_NoQuantityFilterSkipsCheck(t *testing.T) {
	agg := NewStatsAggregator(logging.NewDevelopment(), staticProvider(row(1, units.Kelvin, 300)))

	table, err := agg.Aggregate(context.Background(), GroupFilter{OwnerID: "1"}, testPlan(t, 5), units.Celsius)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestStatsAggregator_SourceError(t *testing.T) {
	boom := errors.New("connection refused")
	agg := NewStatsAggregator(logging.NewDevelopment(), providerFunc(func(context.Context, GroupFilter, *buckets.Plan) ([]UnitBucketStat, error) {
		return []UnitBucketStat{row(0, units.Meter, 1)}, boom
	}))

	table, err := agg.Aggregate(context.Background(), GroupFilter{OwnerID: "1"}, testPlan(t, 5), units.Meter)
	assert.Nil(t, table, "no partial results on failure")

	var sourceErr *SourceError
	require.ErrorAs(t, err, &sourceErr)
	assert.ErrorIs(t, err, boom)
	assert.False(t, sourceErr.Timeout())
}

func TestStatsAggregator_Timeout(t *testing.T) {
	agg := NewStatsAggregator(logging.NewDevelopment(), providerFunc(func(ctx context.Context, _ GroupFilter, _ *buckets.Plan) ([]UnitBucketStat, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := agg.Aggregate(ctx, GroupFilter{OwnerID: "1"}, testPlan(t, 5), units.Meter)

	var sourceErr *SourceError
	require.ErrorAs(t, err, &sourceErr)
	assert.True(t, sourceErr.Timeout())
}

func TestStatsAggregator_LateRowsAfterDeadline(t *testing.T) {
	agg := NewStatsAggregator(logging.NewDevelopment(), providerFunc(func(ctx context.Context, _ GroupFilter, _ *buckets.Plan) ([]UnitBucketStat, error) {
		<-ctx.Done()
		return []UnitBucketStat{row(0, units.Meter, 1)}, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	table, err := agg.Aggregate(ctx, GroupFilter{OwnerID: "1"}, testPlan(t, 5), units.Meter)
	assert.Nil(t, table)

	var sourceErr *SourceError
	assert.ErrorAs(t, err, &sourceErr)
}

func TestStatsAggregator_DropsMalformedRows(t *testing.T) {
	provider := staticProvider(
		row(-1, units.Meter, 1),
		row(5, units.Meter, 1), // plan has buckets 0..4
		UnitBucketStat{Bucket: 2, Unit: units.Meter},
		row(2, units.UnitUnknown, 1),
		row(2, units.Inch, 4),
	)
	agg := NewStatsAggregator(logging.NewDevelopment(), provider)

	table, err := agg.Aggregate(context.Background(), GroupFilter{OwnerID: "1"}, testPlan(t, 5), units.Meter)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, table.Buckets())
	assert.Equal(t, []units.Unit{units.Inch}, table.Units(2))
}

func TestStatsAggregator_MergesDuplicateRows(t *testing.T) {
	provider := staticProvider(
		row(1, units.Yard, 1, 2),
		row(1, units.Yard, 9),
	)
	agg := NewStatsAggregator(logging.NewDevelopment(), provider)

	table, err := agg.Aggregate(context.Background(), GroupFilter{OwnerID: "1"}, testPlan(t, 5), units.Yard)
	require.NoError(t, err)

	stat, ok := table.Get(1, units.Yard)
	require.True(t, ok)
	assert.Equal(t, Stat{Count: 3, Sum: 12, Min: 1, Max: 9}, stat)
}
