package aggregation

import (
	"math"
	"time"

	"github.com/soltixdb/unitmetrics/internal/buckets"
	"github.com/soltixdb/unitmetrics/internal/units"
)

// BucketSummary is the merged statistics of one bucket, in the target unit
type BucketSummary struct {
	BucketStart  time.Time `json:"bucketStart"`
	BucketEnd    time.Time `json:"bucketEnd"`
	Count        int64     `json:"count"`
	AverageValue float64   `json:"averageValue"`
	Max          float64   `json:"max"`
	Min          float64   `json:"min"`
}

// Meta describes a merged result
type Meta struct {
	BucketWidth    float64        `json:"bucketWidth"` // ms
	TargetUnit     units.Unit     `json:"targetUnit"`
	Quantity       units.Quantity `json:"quantity"`
	TotalRecords   int64          `json:"totalRecords"`
	ReturnedPoints int            `json:"returnedPoints"`
	MaxDataPoints  int            `json:"maxDataPoints"`
	BucketCount    int            `json:"bucketCount"`
	StartDate      time.Time      `json:"startDate"`
	EndDate        time.Time      `json:"endDate"`
}

// SummaryMerger folds the units of each bucket into a single summary
type SummaryMerger struct{}

// NewSummaryMerger creates a merger
func NewSummaryMerger() *SummaryMerger {
	return &SummaryMerger{}
}

// Merge converts every unit stat of table into targetUnit and combines the
// units of each bucket. Buckets without records are omitted.
func (m *SummaryMerger) Merge(table *Table, plan *buckets.Plan, quantity units.Quantity, targetUnit units.Unit) ([]BucketSummary, Meta, error) {
	if err := units.CheckUnitQuantity(targetUnit, quantity); err != nil {
		return nil, Meta{}, err
	}

	summaries := make([]BucketSummary, 0, table.Len())
	var totalRecords int64

	for _, b := range table.Buckets() {
		var (
			totalSum   float64
			totalCount int64
			bucketMax  = math.Inf(-1)
			bucketMin  = math.Inf(1)
		)

		for _, u := range table.Units(b) {
			stat, _ := table.Get(b, u)

			sum, err := units.ConvertSum(stat.Sum, stat.Count, u, targetUnit)
			if err != nil {
				return nil, Meta{}, err
			}
			lo, err := units.Convert(stat.Min, u, targetUnit)
			if err != nil {
				return nil, Meta{}, err
			}
			hi, err := units.Convert(stat.Max, u, targetUnit)
			if err != nil {
				return nil, Meta{}, err
			}

			totalSum += sum
			totalCount += stat.Count
			bucketMax = math.Max(bucketMax, hi)
			bucketMin = math.Min(bucketMin, lo)
		}

		if totalCount == 0 {
			continue
		}

		summaries = append(summaries, BucketSummary{
			BucketStart:  plan.BucketStart(b),
			BucketEnd:    plan.BucketEnd(b),
			Count:        totalCount,
			AverageValue: totalSum / float64(totalCount),
			Max:          bucketMax,
			Min:          bucketMin,
		})
		totalRecords += totalCount
	}

	meta := Meta{
		BucketWidth:    plan.Width,
		TargetUnit:     targetUnit,
		Quantity:       quantity,
		TotalRecords:   totalRecords,
		ReturnedPoints: len(summaries),
		MaxDataPoints:  plan.MaxPoints,
		BucketCount:    plan.Len(),
		StartDate:      plan.StartTime(),
		EndDate:        plan.EndTime(),
	}

	return summaries, meta, nil
}
