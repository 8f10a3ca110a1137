// Package buckets splits a closed time range into a bounded number of equal-width,
// half-open buckets measured in milliseconds.
package buckets

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Plan is the bucket layout for one query. Boundaries has Len()+1 strictly
// increasing entries; bucket i covers [Boundaries[i], Boundaries[i+1]) and the
// last bucket also includes its upper boundary.
type Plan struct {
	Start         int64 // unix ms, inclusive
	End           int64 // unix ms, inclusive
	TotalDuration int64 // End - Start + 1
	MaxPoints     int
	Width         float64 // ms, not truncated
	Boundaries    []float64
}

// InvalidRangeError reports an unusable range or point budget
type InvalidRangeError struct {
	Field  string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewPlan computes the boundaries for [start, end] with at most maxPoints buckets.
// A single-instant range always yields exactly one bucket.
func NewPlan(start, end time.Time, maxPoints int) (*Plan, error) {
	return NewPlanMillis(start.UnixMilli(), end.UnixMilli(), maxPoints)
}

// NewPlanMillis is NewPlan on unix millisecond timestamps
func NewPlanMillis(start, end int64, maxPoints int) (*Plan, error) {
	if start > end {
		return nil, &InvalidRangeError{Field: "startDate", Reason: "must not be after endDate"}
	}
	if maxPoints < 1 {
		return nil, &InvalidRangeError{Field: "maxDataPoints", Reason: "must be at least 1"}
	}

	total := end - start + 1
	points := int64(maxPoints)
	if total < points {
		points = total
	}

	width := float64(total) / float64(points)
	boundaries := make([]float64, points+1)
	for i := range boundaries {
		boundaries[i] = float64(start) + width*float64(i)
	}

	return &Plan{
		Start:         start,
		End:           end,
		TotalDuration: total,
		MaxPoints:     maxPoints,
		Width:         width,
		Boundaries:    boundaries,
	}, nil
}

// Len returns the number of buckets
func (p *Plan) Len() int {
	return len(p.Boundaries) - 1
}

// Bounds returns the lower and upper boundary of bucket i
func (p *Plan) Bounds(i int) (lo, hi float64) {
	return p.Boundaries[i], p.Boundaries[i+1]
}

// Index returns the bucket containing ts (unix ms), or -1 when ts lies outside
// the planned range.
func (p *Plan) Index(ts int64) int {
	if ts < p.Start || ts > p.End {
		return -1
	}

	v := float64(ts)
	n := p.Len()
	// first boundary strictly greater than v
	i := sort.Search(len(p.Boundaries), func(j int) bool { return p.Boundaries[j] > v })
	switch {
	case i == 0:
		return -1
	case i > n:
		return n - 1
	default:
		return i - 1
	}
}

// BucketStart returns the lower boundary of bucket i as a time
func (p *Plan) BucketStart(i int) time.Time {
	return millisToTime(p.Boundaries[i])
}

// BucketEnd returns the upper boundary of bucket i as a time
func (p *Plan) BucketEnd(i int) time.Time {
	return millisToTime(p.Boundaries[i+1])
}

// StartTime returns the inclusive range start
func (p *Plan) StartTime() time.Time {
	return time.UnixMilli(p.Start).UTC()
}

// EndTime returns the inclusive range end
func (p *Plan) EndTime() time.Time {
	return time.UnixMilli(p.End).UTC()
}

func millisToTime(ms float64) time.Time {
	return time.Unix(0, int64(math.Round(ms*float64(time.Millisecond)))).UTC()
}
