package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soltixdb/unitmetrics/internal/aggregation"
	"github.com/soltixdb/unitmetrics/internal/buckets"
	"github.com/soltixdb/unitmetrics/internal/config"
	"github.com/soltixdb/unitmetrics/internal/ingest"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/queue"
	"github.com/soltixdb/unitmetrics/internal/store"
	"github.com/soltixdb/unitmetrics/internal/telemetry"
	"github.com/soltixdb/unitmetrics/internal/units"
)

// MetricsService implements ingest and bucketed query of metric records
type MetricsService struct {
	logger     *logging.Logger
	store      store.Store
	aggregator *aggregation.StatsAggregator
	merger     *aggregation.SummaryMerger
	query      config.QueryConfig
	metrics    *telemetry.Metrics

	// set only in queue ingest mode
	publisher queue.Publisher
	codec     *ingest.Codec
	subject   string

	now func() time.Time
}

// Option configures a MetricsService
type Option func(*MetricsService)

// WithQueue routes ingested records through the queue instead of writing them
// directly to the store
func WithQueue(publisher queue.Publisher, codec *ingest.Codec, subject string) Option {
	return func(s *MetricsService) {
		s.publisher = publisher
		s.codec = codec
		s.subject = subject
	}
}

// WithTelemetry records ingest and query outcomes
func WithTelemetry(m *telemetry.Metrics) Option {
	return func(s *MetricsService) {
		s.metrics = m
	}
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(logger *logging.Logger, st store.Store, queryCfg config.QueryConfig, opts ...Option) *MetricsService {
	s := &MetricsService{
		logger:     logger,
		store:      st,
		aggregator: aggregation.NewStatsAggregator(logger, st),
		merger:     aggregation.NewSummaryMerger(),
		query:      queryCfg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Queued reports whether Ingest publishes instead of writing
func (s *MetricsService) Queued() bool {
	return s.publisher != nil
}

// IngestInput is one measurement to store
type IngestInput struct {
	OwnerID   string
	Value     float64
	Unit      string
	Timestamp time.Time
}

// IngestResult describes the stored (or queued) record
type IngestResult struct {
	Record *store.Record
	Queued bool
}

// Ingest stamps the record with its quantity and an id, then stores or
// publishes it
func (s *MetricsService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	startTime := time.Now()

	if strings.TrimSpace(input.OwnerID) == "" {
		s.metrics.ObserveIngest(telemetry.ResultInvalid)
		return nil, NewServiceErrorWithDetails(CodeMissingUserID, "User ID is required", map[string]interface{}{
			"field": "user-id",
		})
	}

	quantity, err := units.ResolveQuantity(input.Unit)
	if err != nil {
		s.metrics.ObserveIngest(telemetry.ResultInvalid)
		return nil, translateError(err, CodeInvalidUnit)
	}
	unit, _ := units.ParseUnit(input.Unit)

	record := &store.Record{
		ID:        uuid.New().String(),
		OwnerID:   input.OwnerID,
		Quantity:  quantity,
		Unit:      unit,
		Value:     input.Value,
		Timestamp: input.Timestamp.UTC(),
		CreatedAt: s.now().UTC(),
	}

	if s.publisher != nil {
		if err := s.publish(ctx, record); err != nil {
			s.metrics.ObserveIngest(telemetry.ResultError)
			s.logger.Error("Failed to publish record",
				"error", err,
				"user_id", record.OwnerID,
				"subject", s.subject,
				"latency_ms", time.Since(startTime).Milliseconds())
			return nil, NewServiceErrorWithDetails(CodeQueueUnavailable, "Message queue unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}

		s.metrics.ObserveIngest(telemetry.ResultAccepted)
		s.logger.Debug("Record queued",
			"id", record.ID,
			"user_id", record.OwnerID,
			"unit", record.Unit.String(),
			"latency_ms", time.Since(startTime).Milliseconds())
		return &IngestResult{Record: record, Queued: true}, nil
	}

	if err := s.store.Insert(ctx, record); err != nil {
		s.metrics.ObserveIngest(telemetry.ResultError)
		s.logger.Error("Failed to store record",
			"error", err,
			"user_id", record.OwnerID,
			"latency_ms", time.Since(startTime).Milliseconds())
		return nil, NewServiceErrorWithDetails(CodeStorageError, "Failed to store metric", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.metrics.ObserveIngest(telemetry.ResultOK)
	s.logger.Debug("Record stored",
		"id", record.ID,
		"user_id", record.OwnerID,
		"unit", record.Unit.String(),
		"latency_ms", time.Since(startTime).Milliseconds())
	return &IngestResult{Record: record}, nil
}

func (s *MetricsService) publish(ctx context.Context, record *store.Record) error {
	payload, err := s.codec.Encode(record)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, s.subject, payload)
}

// QueryInput selects the records of one owner and how to summarize them.
// Quantity and TargetUnit are symbols; either may be empty but not both.
type QueryInput struct {
	OwnerID    string
	Quantity   string
	TargetUnit string
	Start      time.Time
	End        time.Time
	MaxPoints  int
}

// QueryResult is the bucketed summary in the target unit
type QueryResult struct {
	Buckets []aggregation.BucketSummary `json:"buckets"`
	Meta    aggregation.Meta            `json:"meta"`
}

// Query plans buckets over the requested range, groups the owner's records
// into them and merges every unit into the target unit
func (s *MetricsService) Query(ctx context.Context, input QueryInput) (*QueryResult, error) {
	startTime := time.Now()

	result, err := s.runQuery(ctx, input)
	elapsed := time.Since(startTime)

	if err != nil {
		svcErr := translateError(err, CodeAggregationFailed)
		outcome := telemetry.ResultInvalid
		if svcErr.StatusCode() >= 500 {
			outcome = telemetry.ResultError
			if svcErr.Details["timeout"] == true {
				outcome = telemetry.ResultTimeout
			}
			s.logger.Error("Query failed",
				"error", err,
				"user_id", input.OwnerID,
				"latency_ms", elapsed.Milliseconds())
		} else {
			s.logger.Debug("Query rejected",
				"code", svcErr.Code,
				"error", err,
				"user_id", input.OwnerID)
		}
		s.metrics.ObserveQuery(outcome, elapsed, 0)
		return nil, svcErr
	}

	s.metrics.ObserveQuery(telemetry.ResultOK, elapsed, result.Meta.ReturnedPoints)
	s.logger.Info("Query completed",
		"user_id", input.OwnerID,
		"type", result.Meta.Quantity.String(),
		"unit", result.Meta.TargetUnit.String(),
		"buckets", result.Meta.ReturnedPoints,
		"records", result.Meta.TotalRecords,
		"latency_ms", elapsed.Milliseconds())

	return result, nil
}

func (s *MetricsService) runQuery(ctx context.Context, input QueryInput) (*QueryResult, error) {
	quantity, targetUnit, err := resolveTarget(input.Quantity, input.TargetUnit)
	if err != nil {
		return nil, err
	}

	if input.Start.IsZero() {
		return nil, &buckets.InvalidRangeError{Field: "startDate", Reason: "is required"}
	}
	if input.End.IsZero() {
		return nil, &buckets.InvalidRangeError{Field: "endDate", Reason: "is required"}
	}

	maxPoints := s.query.ClampMaxPoints(input.MaxPoints)
	plan, err := buckets.NewPlan(input.Start, input.End, maxPoints)
	if err != nil {
		return nil, err
	}

	start, end := input.Start, input.End
	filter := aggregation.GroupFilter{
		OwnerID:  input.OwnerID,
		Quantity: quantity,
		Start:    &start,
		End:      &end,
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.query.Timeout)
	defer cancel()

	table, err := s.aggregator.Aggregate(queryCtx, filter, plan, targetUnit)
	if err != nil {
		return nil, err
	}

	summaries, meta, err := s.merger.Merge(table, plan, quantity, targetUnit)
	if err != nil {
		return nil, err
	}

	return &QueryResult{Buckets: summaries, Meta: meta}, nil
}

// resolveTarget fills in whichever of quantity and unit is missing. A missing
// unit becomes the base unit of the quantity; a missing quantity is the one
// the unit measures.
func resolveTarget(quantitySymbol, unitSymbol string) (units.Quantity, units.Unit, error) {
	var (
		quantity units.Quantity
		unit     units.Unit
		err      error
	)

	if quantitySymbol != "" {
		if quantity, err = units.ParseQuantity(quantitySymbol); err != nil {
			return units.QuantityUnknown, units.UnitUnknown, err
		}
	}
	if unitSymbol != "" {
		if unit, err = units.ParseUnit(unitSymbol); err != nil {
			return units.QuantityUnknown, units.UnitUnknown, err
		}
	}

	switch {
	case quantity == units.QuantityUnknown && unit == units.UnitUnknown:
		return units.QuantityUnknown, units.UnitUnknown, NewServiceErrorWithDetails(CodeInvalidType,
			"type or unit is required", map[string]interface{}{"field": "type"})
	case unit == units.UnitUnknown:
		unit = quantity.Base()
	case quantity == units.QuantityUnknown:
		quantity = unit.Quantity()
	}

	return quantity, unit, nil
}
