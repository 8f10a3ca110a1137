package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// IngestTimeout bounds a single record write or publish
	IngestTimeout = 5 * time.Second

	// DefaultQueryTimeout is the default deadline for one grouped aggregation
	DefaultQueryTimeout = 10 * time.Second
)

// Backend Timeouts
const (
	// StoreInitTimeout is the timeout for opening a store and running its schema setup
	StoreInitTimeout = 10 * time.Second

	// HealthCheckTimeout is the timeout for backend pings from the health endpoint
	HealthCheckTimeout = 2 * time.Second
)

// =============================================================================
// Query Constants
// =============================================================================

const (
	// DefaultMaxDataPoints is used when a query does not ask for a point budget
	DefaultMaxDataPoints = 100

	// MaxDataPointsCeiling caps the point budget of any query
	MaxDataPointsCeiling = 1000
)

// =============================================================================
// Retry and Backoff Constants
// =============================================================================

const (
	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the default backoff duration between retries
	DefaultRetryBackoff = 100 * time.Millisecond

	// MaxRetryBackoff is the maximum backoff duration
	MaxRetryBackoff = 5 * time.Second
)

// =============================================================================
// Buffer and Batch Size Constants
// =============================================================================

const (
	// DefaultBatchSize is the default batch size for bulk operations
	DefaultBatchSize = 1000

	// DefaultBufferSize is the default buffer size for channels
	DefaultBufferSize = 100
)

// =============================================================================
// Storage Driver Constants
// =============================================================================

// StorageDriver selects the record store backend
type StorageDriver string

const (
	// StorageDriverMemory keeps records in process memory (default, for testing)
	StorageDriverMemory StorageDriver = "memory"

	// StorageDriverSQLite stores records in a sqlite file
	StorageDriverSQLite StorageDriver = "sqlite"

	// StorageDriverDuckDB stores records in a duckdb database
	StorageDriverDuckDB StorageDriver = "duckdb"

	// StorageDriverMongo stores records in a MongoDB collection
	StorageDriverMongo StorageDriver = "mongo"
)

// =============================================================================
// Queue Type Constants
// =============================================================================
// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMQTT represents an MQTT v5 broker
	QueueTypeMQTT QueueType = "mqtt"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)

// =============================================================================
// Ingest Mode Constants
// =============================================================================

// IngestMode selects how accepted records reach the store
type IngestMode string

const (
	// IngestModeSync writes records to the store inside the request
	IngestModeSync IngestMode = "sync"

	// IngestModeQueue publishes records to the queue for the consumer to store
	IngestModeQueue IngestMode = "queue"
)
