package storage

import (
	"sync"

	"go.uber.org/atomic"
)

// MemStorage is a single-version Storage held entirely in memory. Keys are spread over shards which each have
// their own lock, so writers of disjoint keys rarely contend.
type MemStorage struct {
	shards []*memShard
	clock  *atomic.Uint64
}

type memShard struct {
	sync.RWMutex
	records map[string]memRecord
}

type memRecord struct {
	value  []byte
	writer uint64
	ts     uint64
}

func NewMemStorage(shards int) *MemStorage {
	if shards <= 0 {
		shards = DefaultShards
	}
	s := &MemStorage{
		shards: make([]*memShard, shards),
		clock:  atomic.NewUint64(0),
	}
	for i := range s.shards {
		s.shards[i] = &memShard{records: make(map[string]memRecord)}
	}
	return s
}

func (s *MemStorage) shard(key string) *memShard {
	return s.shards[shardIndex(key, len(s.shards))]
}

func (s *MemStorage) Read(key string) ([]byte, bool) {
	sh := s.shard(key)
	sh.RLock()
	rec, ok := sh.records[key]
	sh.RUnlock()
	return rec.value, ok
}

func (s *MemStorage) Write(key string, value []byte, txnID uint64) {
	sh := s.shard(key)
	sh.Lock()
	// The timestamp is taken under the shard lock: a reader which starts at or after it must also observe the
	// value.
	sh.records[key] = memRecord{value: value, writer: txnID, ts: s.clock.Inc()}
	sh.Unlock()
}

func (s *MemStorage) Timestamp(key string) uint64 {
	sh := s.shard(key)
	sh.RLock()
	defer sh.RUnlock()
	return sh.records[key].ts
}

// LastWriter returns the id of the transaction which last wrote key, or 0.
func (s *MemStorage) LastWriter(key string) uint64 {
	sh := s.shard(key)
	sh.RLock()
	defer sh.RUnlock()
	return sh.records[key].writer
}

func (s *MemStorage) Now() uint64 {
	return s.clock.Load()
}

// Preload writes value under every key on behalf of transaction 0.
func (s *MemStorage) Preload(keys []string, value []byte) {
	for _, key := range keys {
		s.Write(key, value, 0)
	}
}

func (s *MemStorage) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.RLock()
		n += len(sh.records)
		sh.RUnlock()
	}
	return n
}
