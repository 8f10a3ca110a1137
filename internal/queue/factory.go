package queue

import (
	"fmt"
	"strings"

	"github.com/soltixdb/unitmetrics/internal/config"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/utils"
)

// NewQueue creates a new Queue instance based on configuration
// Default is NATS if type is not specified
func NewQueue(cfg config.QueueConfig, logger *logging.Logger) (Queue, error) {
	if logger == nil {
		logger = logging.Global()
	}
	queueType := utils.QueueType(strings.ToLower(cfg.Type))

	// Default to NATS if not specified
	if queueType == "" {
		queueType = utils.QueueTypeNATS
	}

	logger = logger.With("queue", string(queueType))

	switch queueType {
	case utils.QueueTypeNATS:
		return newNATSQueue(cfg.URL, logger)

	case utils.QueueTypeRedis:
		return newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
			Consumer: cfg.RedisConsumer,
		}, logger)

	case utils.QueueTypeKafka:
		return newKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
		}, logger)

	case utils.QueueTypeMQTT:
		return newMQTTQueue(MQTTConfig{
			URL:      cfg.URL,
			ClientID: cfg.MQTTClientID,
			Username: cfg.Username,
			Password: cfg.Password,
			QoS:      cfg.MQTTQoS,
		}, logger)

	case utils.QueueTypeMemory:
		return newMemoryQueue(logger), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, mqtt, memory)", queueType)
	}
}

// NewPublisher creates a new Publisher instance based on configuration
// This is a convenience function when only publishing is needed
func NewPublisher(cfg config.QueueConfig, logger *logging.Logger) (Publisher, error) {
	return NewQueue(cfg, logger)
}

// NewSubscriber creates a new Subscriber instance based on configuration
// This is a convenience function when only subscribing is needed
func NewSubscriber(cfg config.QueueConfig, logger *logging.Logger) (Subscriber, error) {
	return NewQueue(cfg, logger)
}
