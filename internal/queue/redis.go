package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soltixdb/unitmetrics/internal/logging"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // Redis URL (e.g., redis://localhost:6379)
	Password string // Optional password
	DB       int    // Database number (default: 0)
	Stream   string // Stream prefix (default: "unitmetrics")
	Group    string // Consumer group name (default: "unitmetrics-group")
	Consumer string // Consumer name (default: hostname)
}

// RedisQueue implements Queue interface using Redis Streams
type RedisQueue struct {
	client        *redis.Client
	config        RedisConfig
	subscriptions map[string]context.CancelFunc
	logger        *logging.Logger
	wg            sync.WaitGroup
	mu            sync.RWMutex
}

// newRedisQueue creates a new Redis Streams queue instance
func newRedisQueue(cfg RedisConfig, logger *logging.Logger) (*RedisQueue, error) {
	if logger == nil {
		logger = logging.Global()
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Plain host:port
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	applyRedisDefaults(&cfg)

	return &RedisQueue{
		client:        client,
		config:        cfg,
		subscriptions: make(map[string]context.CancelFunc),
		logger:        logger,
	}, nil
}

func applyRedisDefaults(cfg *RedisConfig) {
	if cfg.Stream == "" {
		cfg.Stream = "unitmetrics"
	}
	if cfg.Group == "" {
		cfg.Group = "unitmetrics-group"
	}
	if cfg.Consumer == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "consumer-1"
		}
		cfg.Consumer = hostname
	}
}

// streamName converts a subject to a Redis stream name
func (q *RedisQueue) streamName(subject string) string {
	return fmt.Sprintf("%s:%s", q.config.Stream, subject)
}

// Publish publishes a message to a Redis stream
func (q *RedisQueue) Publish(ctx context.Context, subject string, data []byte) error {
	stream := q.streamName(subject)

	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{
			"data": data,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", stream, err)
	}

	return nil
}

// PublishBatch publishes multiple messages using Redis pipeline
func (q *RedisQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	pipe := q.client.Pipeline()

	for _, msg := range messages {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: q.streamName(msg.Subject),
			ID:     "*",
			Values: map[string]interface{}{
				"data": msg.Data,
			},
		})
	}

	// Exec reports the first failed command; count the rest individually
	cmds, err := pipe.Exec(ctx)
	if err != nil && len(cmds) == 0 {
		return 0, fmt.Errorf("failed to execute batch publish: %w", err)
	}

	successCount := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			successCount++
		}
	}
	if successCount < len(messages) {
		q.logger.Warn("Partial batch publish", "published", successCount, "total", len(messages), "error", err)
	}

	return successCount, nil
}

// Subscribe subscribes to a Redis stream with consumer group
func (q *RedisQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	stream := q.streamName(subject)
	ctx, cancel := context.WithCancel(context.Background())

	err := q.client.XGroupCreateMkStream(ctx, stream, q.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		cancel()
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.readStream(ctx, stream, handler)
	}()

	q.subscriptions[subject] = cancel
	return nil
}

// readStream continuously reads messages from a Redis stream. Messages whose
// handler fails stay pending in the group and are picked up again by
// claimPending.
func (q *RedisQueue) readStream(ctx context.Context, stream string, handler MessageHandler) {
	lastClaim := time.Now()

	for {
		if ctx.Err() != nil {
			return
		}

		if time.Since(lastClaim) > 30*time.Second {
			q.claimPending(ctx, stream, handler)
			lastClaim = time.Now()
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.config.Group,
			Consumer: q.config.Consumer,
			Streams:  []string{stream, ">"},
			Count:    100,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.logger.Warn("Failed to read Redis stream", "stream", stream, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				q.handleMessage(ctx, stream, msg, handler)
			}
		}
	}
}

// claimPending re-delivers messages left pending by a failed handler
func (q *RedisQueue) claimPending(ctx context.Context, stream string, handler MessageHandler) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    q.config.Group,
		Consumer: q.config.Consumer,
		MinIdle:  30 * time.Second,
		Start:    "0",
		Count:    100,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			q.logger.Warn("Failed to claim pending messages", "stream", stream, "error", err)
		}
		return
	}

	for _, msg := range msgs {
		q.handleMessage(ctx, stream, msg, handler)
	}
}

func (q *RedisQueue) handleMessage(ctx context.Context, stream string, msg redis.XMessage, handler MessageHandler) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		q.logger.Warn("Acknowledging malformed stream entry", "stream", stream, "id", msg.ID)
		q.client.XAck(ctx, stream, q.config.Group, msg.ID)
		return
	}

	if err := handler([]byte(data)); err != nil {
		q.logger.Warn("Message handler failed, leaving entry pending", "stream", stream, "id", msg.ID, "error", err)
		return
	}

	q.client.XAck(ctx, stream, q.config.Group, msg.ID)
}

// Unsubscribe unsubscribes from a subject
func (q *RedisQueue) Unsubscribe(subject string) error {
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

// Close closes the Redis connection
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return q.client.Close()
}
