package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/utils"
)

// ErrQueueClosed is returned when publishing to a closed queue
var ErrQueueClosed = errors.New("queue is closed")

// memoryChannelCapacity bounds the number of undelivered messages per subject
const memoryChannelCapacity = 10000

// MemoryQueue implements Queue interface using in-memory channels
// This is useful for testing and single-process deployments
type MemoryQueue struct {
	channels      map[string]chan []byte
	subscriptions map[string]context.CancelFunc
	maxAttempts   int
	closed        bool
	logger        *logging.Logger
	mu            sync.RWMutex
}

// newMemoryQueue creates a new in-memory queue instance
func newMemoryQueue(logger *logging.Logger) *MemoryQueue {
	if logger == nil {
		logger = logging.Global()
	}
	return &MemoryQueue{
		channels:      make(map[string]chan []byte),
		subscriptions: make(map[string]context.CancelFunc),
		maxAttempts:   utils.DefaultMaxRetries,
		logger:        logger,
	}
}

// channelLocked returns the subject's channel, creating it if needed. Caller holds q.mu.
func (q *MemoryQueue) channelLocked(subject string) chan []byte {
	if ch, exists := q.channels[subject]; exists {
		return ch
	}

	ch := make(chan []byte, memoryChannelCapacity)
	q.channels[subject] = ch
	return ch
}

// Publish publishes a message to an in-memory channel
func (q *MemoryQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Make a copy of data to avoid race conditions
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	// The send below never blocks, so holding the lock keeps Close from
	// closing the channel underneath it.
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.channelLocked(subject) <- dataCopy:
		return nil
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

// PublishBatch publishes multiple messages
func (q *MemoryQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0

	for _, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			if errors.Is(err, ErrQueueClosed) || ctx.Err() != nil {
				return successCount, err
			}
			q.logger.Warn("Dropped message from batch", "subject", msg.Subject, "error", err)
			continue
		}
		successCount++
	}

	return successCount, nil
}

// Subscribe subscribes to an in-memory channel
func (q *MemoryQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	ch := q.channelLocked(subject)
	ctx, cancel := context.WithCancel(context.Background())
	q.subscriptions[subject] = cancel

	go q.consume(ctx, subject, ch, handler)

	return nil
}

// consume delivers messages until the subscription is cancelled. A failing
// message is retried in place up to maxAttempts and then dropped.
func (q *MemoryQueue) consume(ctx context.Context, subject string, ch <-chan []byte, handler MessageHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}

			var err error
			for attempt := 1; attempt <= q.maxAttempts; attempt++ {
				if err = handler(data); err == nil {
					break
				}
				if ctx.Err() != nil {
					return
				}
			}
			if err != nil {
				q.logger.Error("Dropping message after retries",
					"subject", subject,
					"attempts", q.maxAttempts,
					"error", err)
			}
		}
	}
}

// Unsubscribe unsubscribes from a channel
func (q *MemoryQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	cancel()
	delete(q.subscriptions, subject)
	return nil
}

// Close closes all channels and subscriptions
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	// Cancel all subscriptions
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}

	// Close all channels
	for subject, ch := range q.channels {
		close(ch)
		delete(q.channels, subject)
	}

	return nil
}

// GetPendingCount returns the number of pending messages for a subject
func (q *MemoryQueue) GetPendingCount(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if ch, exists := q.channels[subject]; exists {
		return len(ch)
	}
	return 0
}
