package storage

import (
	"sync"

	"github.com/google/btree"
)

const versionTreeDegree = 8

// MVCCStore is an in-memory MVCCStorage. Each key owns a small btree of versions ordered by version id and a
// mutex which serializes reads against check-and-install. Superseded versions are never collected.
type MVCCStore struct {
	shards []*mvccShard
}

type mvccShard struct {
	sync.RWMutex
	records map[string]*mvccRecord
}

type mvccRecord struct {
	mu       sync.Mutex
	versions *btree.BTree
}

// version is one committed value of a key. Version 0 always exists: it stands for "no value" unless the key was
// preloaded, so that reads of a missing key are still recorded.
type version struct {
	id      uint64
	value   []byte
	present bool
	// maxRead is the largest id of a transaction which has read this version.
	maxRead uint64
}

func (v *version) Less(than btree.Item) bool {
	return v.id < than.(*version).id
}

func NewMVCCStore(shards int) *MVCCStore {
	if shards <= 0 {
		shards = DefaultShards
	}
	s := &MVCCStore{shards: make([]*mvccShard, shards)}
	for i := range s.shards {
		s.shards[i] = &mvccShard{records: make(map[string]*mvccRecord)}
	}
	return s
}

// record returns the record of key, creating it if needed.
func (s *MVCCStore) record(key string) *mvccRecord {
	sh := s.shards[shardIndex(key, len(s.shards))]
	sh.RLock()
	rec, ok := sh.records[key]
	sh.RUnlock()
	if ok {
		return rec
	}

	sh.Lock()
	defer sh.Unlock()
	if rec, ok = sh.records[key]; ok {
		return rec
	}
	rec = &mvccRecord{versions: btree.New(versionTreeDegree)}
	rec.versions.ReplaceOrInsert(&version{id: 0})
	sh.records[key] = rec
	return rec
}

// visible returns the newest version with id <= txnID. It must be called with rec.mu held.
func (rec *mvccRecord) visible(txnID uint64) *version {
	var found *version
	rec.versions.DescendLessOrEqual(&version{id: txnID}, func(i btree.Item) bool {
		found = i.(*version)
		return false
	})
	return found
}

func (s *MVCCStore) Read(key string, txnID uint64) ([]byte, bool) {
	rec := s.record(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	v := rec.visible(txnID)
	if v.maxRead < txnID {
		v.maxRead = txnID
	}
	return v.value, v.present
}

func (s *MVCCStore) Get(key string) ([]byte, bool) {
	rec := s.record(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	v := rec.versions.Max().(*version)
	return v.value, v.present
}

func (s *MVCCStore) CheckWrite(key string, txnID uint64) bool {
	return s.record(key).visible(txnID).maxRead <= txnID
}

func (s *MVCCStore) Write(key string, value []byte, txnID uint64) {
	s.record(key).versions.ReplaceOrInsert(&version{
		id:      txnID,
		value:   value,
		present: true,
		maxRead: txnID,
	})
}

func (s *MVCCStore) Lock(key string) {
	s.record(key).mu.Lock()
}

func (s *MVCCStore) Unlock(key string) {
	s.record(key).mu.Unlock()
}

// Versions returns the ids of every committed version of key, oldest first. Version 0 is included only when the
// key was preloaded.
func (s *MVCCStore) Versions(key string) []uint64 {
	rec := s.record(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	ids := make([]uint64, 0, rec.versions.Len())
	rec.versions.Ascend(func(i btree.Item) bool {
		v := i.(*version)
		if v.present {
			ids = append(ids, v.id)
		}
		return true
	})
	return ids
}

// Preload installs value as the initial version of every key.
func (s *MVCCStore) Preload(keys []string, value []byte) {
	for _, key := range keys {
		rec := s.record(key)
		rec.mu.Lock()
		v := rec.visible(0)
		v.value = value
		v.present = true
		rec.mu.Unlock()
	}
}
