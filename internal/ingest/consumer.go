package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/queue"
	"github.com/soltixdb/unitmetrics/internal/store"
	"github.com/soltixdb/unitmetrics/internal/telemetry"
	"github.com/soltixdb/unitmetrics/internal/utils"
)

// RecordWriter is the part of store.Store the consumer needs
type RecordWriter interface {
	Insert(ctx context.Context, record *store.Record) error
}

// Consumer writes queued records to the store
type Consumer struct {
	logger     *logging.Logger
	subscriber queue.Subscriber
	subject    string
	writer     RecordWriter
	codec      *Codec
	metrics    *telemetry.Metrics
	timeout    time.Duration

	running atomic.Bool
}

// NewConsumer creates a consumer for subject. metrics may be nil.
func NewConsumer(logger *logging.Logger, sub queue.Subscriber, subject string, writer RecordWriter, codec *Codec, metrics *telemetry.Metrics) *Consumer {
	return &Consumer{
		logger:     logger,
		subscriber: sub,
		subject:    subject,
		writer:     writer,
		codec:      codec,
		metrics:    metrics,
		timeout:    utils.IngestTimeout,
	}
}

// Start subscribes to the ingest subject
func (c *Consumer) Start() error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("consumer already running on %s", c.subject)
	}
	if err := c.subscriber.Subscribe(c.subject, c.Handle); err != nil {
		c.running.Store(false)
		return fmt.Errorf("failed to subscribe to %s: %w", c.subject, err)
	}
	c.logger.Info("Ingest consumer started", "subject", c.subject)
	return nil
}

// Stop unsubscribes. It is a no-op when the consumer is not running.
func (c *Consumer) Stop() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := c.subscriber.Unsubscribe(c.subject); err != nil {
		return err
	}
	c.logger.Info("Ingest consumer stopped", "subject", c.subject)
	return nil
}

// Handle processes one payload. Payloads that cannot be decoded are dropped;
// store failures are returned so the broker can redeliver.
func (c *Consumer) Handle(data []byte) error {
	record, err := c.codec.Decode(data)
	if err != nil {
		c.logger.Error("Dropping undecodable ingest message",
			"subject", c.subject,
			"error", err,
			"size", len(data))
		c.metrics.ObserveConsumed(telemetry.ResultDropped)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.writer.Insert(ctx, record); err != nil {
		c.logger.Error("Failed to store queued record",
			"error", err,
			"id", record.ID,
			"user_id", record.OwnerID)
		c.metrics.ObserveConsumed(telemetry.ResultError)
		return err
	}

	c.logger.Debug("Stored queued record",
		"id", record.ID,
		"user_id", record.OwnerID,
		"unit", record.Unit.String())
	c.metrics.ObserveConsumed(telemetry.ResultOK)
	return nil
}
