package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/utils"
)

// streamPrefix names the JetStream stream created for each subject
const streamPrefix = "unitmetrics-"

// NATSQueue implements Queue interface using NATS JetStream
type NATSQueue struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	subscriptions map[string]*nats.Subscription
	streams       map[string]bool
	logger        *logging.Logger
	mu            sync.RWMutex
}

// newNATSQueue creates a new NATS queue instance with JetStream enabled
func newNATSQueue(url string, logger *logging.Logger) (*NATSQueue, error) {
	conn, err := nats.Connect(url,
		nats.Name("unitmetrics"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// newNATSQueueWithConn creates a new NATS queue instance with existing connection
func newNATSQueueWithConn(conn *nats.Conn, logger *logging.Logger) (*NATSQueue, error) {
	if logger == nil {
		logger = logging.Global()
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSQueue{
		conn:          conn,
		js:            js,
		subscriptions: make(map[string]*nats.Subscription),
		streams:       make(map[string]bool),
		logger:        logger,
	}, nil
}

// ensureStream creates the stream backing subject unless it already exists
func (q *NATSQueue) ensureStream(subject string) error {
	q.mu.RLock()
	known := q.streams[subject]
	q.mu.RUnlock()
	if known {
		return nil
	}

	streamName := streamPrefix + sanitizeConsumerName(subject)
	if _, err := q.js.StreamInfo(streamName); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
		}
		_, err = q.js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		})
		if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
		}
		q.logger.Info("Created JetStream stream", "stream", streamName, "subject", subject)
	}

	q.mu.Lock()
	q.streams[subject] = true
	q.mu.Unlock()
	return nil
}

// Publish publishes a message to a subject and waits for the JetStream ack
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}

	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch publishes multiple messages asynchronously and waits for all to complete
func (q *NATSQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))

	for _, msg := range messages {
		if err := q.ensureStream(msg.Subject); err != nil {
			q.logger.Warn("Skipping batch message", "subject", msg.Subject, "error", err)
			continue
		}
		future, err := q.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			q.logger.Warn("Failed to queue batch message", "subject", msg.Subject, "error", err)
			continue
		}
		futures = append(futures, future)
	}

	// Wait for all pending messages with timeout from context
	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	successCount := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			successCount++
		case err := <-future.Err():
			q.logger.Warn("Batch message was not acknowledged", "subject", future.Msg().Subject, "error", err)
		}
	}

	return successCount, nil
}

// Subscribe subscribes to a subject with a message handler using a JetStream durable consumer.
// Failed messages are NAKed and redelivered up to utils.DefaultMaxRetries times.
func (q *NATSQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.RLock()
	_, exists := q.subscriptions[subject]
	q.mu.RUnlock()
	if exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	if err := q.ensureStream(subject); err != nil {
		return err
	}

	// Consumer names can only contain A-Z, a-z, 0-9, dash and underscore
	durableName := "consumer-" + sanitizeConsumerName(subject)

	sub, err := q.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			q.logger.Warn("Message handler failed, requesting redelivery", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.MaxAckPending(100),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(utils.DefaultMaxRetries),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.subscriptions[subject]; exists {
		_ = sub.Unsubscribe()
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}
	q.subscriptions[subject] = sub
	return nil
}

// Unsubscribe unsubscribes from a subject
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}

	delete(q.subscriptions, subject)
	return nil
}

// Close closes the NATS connection and all subscriptions
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			q.logger.Warn("Failed to unsubscribe on close", "subject", subject, "error", err)
		}
		delete(q.subscriptions, subject)
	}

	q.conn.Close()
	return nil
}

// sanitizeConsumerName replaces invalid characters for consumer names
// Consumer names can only contain: A-Z, a-z, 0-9, dash (-) and underscore (_)
func sanitizeConsumerName(subject string) string {
	result := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
