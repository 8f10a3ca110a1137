package aggregation

import (
	"math"
	"sort"

	"github.com/soltixdb/unitmetrics/internal/units"
)

// Stat is a lossy summary of the values in one bucket. Count and Sum are kept
// instead of a mean so partial summaries merge without error accumulation.
type Stat struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// NewStat creates a stat holding a single value
func NewStat(value float64) Stat {
	return Stat{Count: 1, Sum: value, Min: value, Max: value}
}

// Add folds a single value into the stat
func (s *Stat) Add(value float64) {
	if s.Count == 0 {
		*s = NewStat(value)
		return
	}
	s.Count++
	s.Sum += value
	s.Min = math.Min(s.Min, value)
	s.Max = math.Max(s.Max, value)
}

// Merge combines another stat of the same unit into this one
func (s *Stat) Merge(other Stat) {
	if other.Count == 0 {
		return
	}
	if s.Count == 0 {
		*s = other
		return
	}
	s.Count += other.Count
	s.Sum += other.Sum
	s.Min = math.Min(s.Min, other.Min)
	s.Max = math.Max(s.Max, other.Max)
}

// Avg returns Sum/Count, or 0 for an empty stat
func (s Stat) Avg() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// UnitBucketStat is the summary of one unit within one bucket
type UnitBucketStat struct {
	Bucket int        `json:"bucket"`
	Unit   units.Unit `json:"unit"`
	Stat
}

// Table is a sparse bucket -> unit -> stat map. Absent buckets and units hold
// no records.
type Table struct {
	buckets map[int]map[units.Unit]*Stat
	records int64
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{buckets: make(map[int]map[units.Unit]*Stat)}
}

// Add merges a grouped row into the table
func (t *Table) Add(row UnitBucketStat) {
	if row.Count == 0 {
		return
	}
	byUnit, ok := t.buckets[row.Bucket]
	if !ok {
		byUnit = make(map[units.Unit]*Stat)
		t.buckets[row.Bucket] = byUnit
	}
	if existing, ok := byUnit[row.Unit]; ok {
		existing.Merge(row.Stat)
	} else {
		stat := row.Stat
		byUnit[row.Unit] = &stat
	}
	t.records += row.Count
}

// Buckets returns the populated bucket indexes in ascending order
func (t *Table) Buckets() []int {
	out := make([]int, 0, len(t.buckets))
	for b := range t.buckets {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

// Units returns the units present in bucket b in declaration order
func (t *Table) Units(b int) []units.Unit {
	byUnit := t.buckets[b]
	out := make([]units.Unit, 0, len(byUnit))
	for u := range byUnit {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns the stat for (bucket, unit)
func (t *Table) Get(b int, u units.Unit) (Stat, bool) {
	if s, ok := t.buckets[b][u]; ok {
		return *s, true
	}
	return Stat{}, false
}

// Len returns the number of populated buckets
func (t *Table) Len() int {
	return len(t.buckets)
}

// Records returns the total record count across all buckets
func (t *Table) Records() int64 {
	return t.records
}

// Rows flattens the table into (bucket, unit) order
func (t *Table) Rows() []UnitBucketStat {
	var rows []UnitBucketStat
	for _, b := range t.Buckets() {
		for _, u := range t.Units(b) {
			rows = append(rows, UnitBucketStat{Bucket: b, Unit: u, Stat: *t.buckets[b][u]})
		}
	}
	return rows
}
