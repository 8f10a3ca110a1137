package store

import (
	"context"
	"fmt"
	"time"

	"github.com/soltixdb/unitmetrics/internal/aggregation"
	"github.com/soltixdb/unitmetrics/internal/buckets"
	"github.com/soltixdb/unitmetrics/internal/config"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/units"
	"github.com/soltixdb/unitmetrics/internal/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// mongoRecord is the stored document. ts duplicates date as unix ms so the
// bucket index is computed on plain numbers.
type mongoRecord struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"user_id"`
	Quantity  string    `bson:"quantity"`
	Unit      string    `bson:"unit"`
	Value     float64   `bson:"value"`
	Date      time.Time `bson:"date"`
	TS        int64     `bson:"ts"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoGroupRow struct {
	ID struct {
		Bucket interface{} `bson:"bucket"`
		Unit   string      `bson:"unit"`
	} `bson:"_id"`
	Count interface{} `bson:"count"`
	Sum   interface{} `bson:"sum"`
	Min   interface{} `bson:"min"`
	Max   interface{} `bson:"max"`
}

// MongoStore keeps records in a MongoDB collection
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *logging.Logger
}

// NewMongoStore connects to MongoDB and ensures the query index exists
func NewMongoStore(cfg config.MongoConfig, logger *logging.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.StoreInitTimeout)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "ts", Value: 1},
			{Key: "quantity", Value: 1},
		},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create metrics index: %w", err)
	}

	logger.Info("MongoDB store initialized",
		"database", cfg.Database,
		"collection", cfg.Collection)

	return &MongoStore{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

func toMongoRecord(r *Record) mongoRecord {
	return mongoRecord{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Quantity:  r.Quantity.String(),
		Unit:      r.Unit.String(),
		Value:     r.Value,
		Date:      r.Timestamp.UTC(),
		TS:        r.Timestamp.UnixMilli(),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (s *MongoStore) Insert(ctx context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, toMongoRecord(record)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert record %s: %w", record.ID, err)
	}
	return nil
}

func (s *MongoStore) InsertBatch(ctx context.Context, records []*Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	docs := make([]mongoRecord, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return 0, err
		}
		docs = append(docs, toMongoRecord(r))
	}

	// Unordered so one duplicate id does not stop the rest of the batch
	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return 0, fmt.Errorf("insert %d records: %w", len(records), err)
	}
	return len(records), nil
}

// groupPipeline tags each matching document with its bucket index and groups
// on (bucket, unit) with running accumulators, so no stage holds a bucket's
// documents in memory. The $switch tests lower bounds from the last bucket
// down, which assigns the same index as Plan.Index for every ts in range.
func groupPipeline(filter aggregation.GroupFilter, plan *buckets.Plan) mongo.Pipeline {
	lo, hi := plan.Start, plan.End
	if filter.Start != nil && filter.Start.UnixMilli() > lo {
		lo = filter.Start.UnixMilli()
	}
	if filter.End != nil && filter.End.UnixMilli() < hi {
		hi = filter.End.UnixMilli()
	}

	match := bson.D{
		{Key: "user_id", Value: filter.OwnerID},
		{Key: "ts", Value: bson.D{{Key: "$gte", Value: lo}, {Key: "$lte", Value: hi}}},
	}
	if filter.Quantity != units.QuantityUnknown {
		match = append(match, bson.E{Key: "quantity", Value: filter.Quantity.String()})
	}

	n := plan.Len()
	branches := make(bson.A, 0, n)
	for i := n - 1; i >= 0; i-- {
		branches = append(branches, bson.D{
			{Key: "case", Value: bson.D{{Key: "$gte", Value: bson.A{"$ts", plan.Boundaries[i]}}}},
			{Key: "then", Value: i},
		})
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "bucket", Value: bson.D{{Key: "$switch", Value: bson.D{
				{Key: "branches", Value: branches},
				{Key: "default", Value: -1},
			}}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "bucket", Value: "$bucket"},
				{Key: "unit", Value: "$unit"},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "sum", Value: bson.D{{Key: "$sum", Value: "$value"}}},
			{Key: "min", Value: bson.D{{Key: "$min", Value: "$value"}}},
			{Key: "max", Value: bson.D{{Key: "$max", Value: "$value"}}},
		}}},
	}
}

func (s *MongoStore) GroupByBucketAndUnit(ctx context.Context, filter aggregation.GroupFilter, plan *buckets.Plan) ([]aggregation.UnitBucketStat, error) {
	cursor, err := s.collection.Aggregate(ctx, groupPipeline(filter, plan))
	if err != nil {
		return nil, fmt.Errorf("mongo aggregate: %w", err)
	}

	var results []mongoGroupRow
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("mongo aggregate decode: %w", err)
	}

	return s.decodeGroupRows(results, plan), nil
}

// decodeGroupRows converts aggregation output to stats, skipping rows with a
// bucket outside the plan or an unknown unit
func (s *MongoStore) decodeGroupRows(results []mongoGroupRow, plan *buckets.Plan) []aggregation.UnitBucketStat {
	out := make([]aggregation.UnitBucketStat, 0, len(results))
	for _, r := range results {
		bucket, ok := utils.ToFloat64(r.ID.Bucket)
		if !ok || bucket < 0 || int(bucket) >= plan.Len() {
			s.logger.Warn("Unknown bucket in aggregation result", "bucket", r.ID.Bucket)
			continue
		}
		unit, err := units.ParseUnit(r.ID.Unit)
		if err != nil {
			s.logger.Warn("Skipping stored unit", "unit", r.ID.Unit, "error", err)
			continue
		}

		row := aggregation.UnitBucketStat{Bucket: int(bucket), Unit: unit}
		row.Count = int64(utils.MustToFloat64(r.Count))
		row.Sum = utils.MustToFloat64(r.Sum)
		row.Min = utils.MustToFloat64(r.Min)
		row.Max = utils.MustToFloat64(r.Max)
		out = append(out, row)
	}
	return out
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), utils.StoreInitTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect MongoDB: %w", err)
	}
	s.logger.Info("MongoDB store closed")
	return nil
}
