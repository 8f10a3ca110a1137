package store

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/soltixdb/unitmetrics/internal/aggregation"
	"github.com/soltixdb/unitmetrics/internal/buckets"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/units"
)

// numShards is the number of lock shards. Records of one owner always land in
// the same shard, so a query locks a single shard.
const numShards = 16

type shard struct {
	mu      sync.RWMutex
	byOwner map[string][]*Record
	ids     map[string]struct{}
}

// MemoryStore keeps records in process memory, partitioned by owner
type MemoryStore struct {
	shards [numShards]shard
	logger *logging.Logger

	closeMu sync.RWMutex
	closed  bool
}

func getShard(ownerID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ownerID))
	return h.Sum32() % numShards
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(logger *logging.Logger) *MemoryStore {
	ms := &MemoryStore{logger: logger}
	for i := range ms.shards {
		ms.shards[i].byOwner = make(map[string][]*Record)
		ms.shards[i].ids = make(map[string]struct{})
	}
	return ms
}

// Insert stores a copy of record
func (ms *MemoryStore) Insert(ctx context.Context, record *Record) error {
	_, err := ms.InsertBatch(ctx, []*Record{record})
	return err
}

// InsertBatch validates every record before storing any of them. A record
// whose id is already stored is skipped.
func (ms *MemoryStore) InsertBatch(ctx context.Context, records []*Record) (int, error) {
	ms.closeMu.RLock()
	defer ms.closeMu.RUnlock()
	if ms.closed {
		return 0, ErrClosed
	}

	for _, r := range records {
		if err := r.Validate(); err != nil {
			return 0, err
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	for _, r := range records {
		cp := *r
		s := &ms.shards[getShard(r.OwnerID)]
		s.mu.Lock()
		if _, dup := s.ids[r.ID]; !dup {
			s.ids[r.ID] = struct{}{}
			s.byOwner[r.OwnerID] = append(s.byOwner[r.OwnerID], &cp)
		}
		s.mu.Unlock()
	}

	return len(records), nil
}

// GroupByBucketAndUnit scans the owner's records and folds each one into its
// bucket and unit.
func (ms *MemoryStore) GroupByBucketAndUnit(ctx context.Context, filter aggregation.GroupFilter, plan *buckets.Plan) ([]aggregation.UnitBucketStat, error) {
	ms.closeMu.RLock()
	defer ms.closeMu.RUnlock()
	if ms.closed {
		return nil, ErrClosed
	}

	type key struct {
		bucket int
		unit   units.Unit
	}
	stats := make(map[key]*aggregation.Stat)

	s := &ms.shards[getShard(filter.OwnerID)]
	s.mu.RLock()
	for _, r := range s.byOwner[filter.OwnerID] {
		if !matches(r, filter) {
			continue
		}
		idx := plan.Index(r.Timestamp.UnixMilli())
		if idx < 0 {
			continue
		}
		k := key{bucket: idx, unit: r.Unit}
		st, ok := stats[k]
		if !ok {
			st = &aggregation.Stat{}
			stats[k] = st
		}
		st.Add(r.Value)
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([]aggregation.UnitBucketStat, 0, len(stats))
	for k, st := range stats {
		rows = append(rows, aggregation.UnitBucketStat{Bucket: k.bucket, Unit: k.unit, Stat: *st})
	}
	return rows, nil
}

// Count returns the number of records held for owner
func (ms *MemoryStore) Count(ownerID string) int {
	s := &ms.shards[getShard(ownerID)]
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byOwner[ownerID])
}

// Ping always succeeds on an open store
func (ms *MemoryStore) Ping(ctx context.Context) error {
	ms.closeMu.RLock()
	defer ms.closeMu.RUnlock()
	if ms.closed {
		return ErrClosed
	}
	return nil
}

// Close drops all records
func (ms *MemoryStore) Close() error {
	ms.closeMu.Lock()
	defer ms.closeMu.Unlock()
	if ms.closed {
		return nil
	}
	ms.closed = true
	for i := range ms.shards {
		ms.shards[i].mu.Lock()
		ms.shards[i].byOwner = nil
		ms.shards[i].ids = nil
		ms.shards[i].mu.Unlock()
	}
	ms.logger.Info("Memory store closed")
	return nil
}
