package storage

import (
	farm "github.com/dgryski/go-farm"
)

// Storage is a single-version key/value store. Every key remembers the id of the transaction which wrote it last
// and a logical timestamp of that write, which optimistic validation compares against a transaction's start time.
//
// Implementations must be safe for concurrent use on disjoint keys without a storage-wide lock.
type Storage interface {
	// Read returns the current value of key. ok is false if the key has never been written.
	Read(key string) (value []byte, ok bool)
	// Write stores value under key, recording txnID as the last writer and stamping the write with a fresh
	// logical timestamp.
	Write(key string, value []byte, txnID uint64)
	// Timestamp returns the logical time of the last write to key, or 0 if it has never been written.
	Timestamp(key string) uint64
	// Now returns the current logical time. Every later Write is stamped strictly after it.
	Now() uint64
	// Preload writes value under every key on behalf of transaction 0.
	Preload(keys []string, value []byte)
}

// MVCCStorage keeps every committed version of a key. Versions are identified by the id of the transaction
// which wrote them.
//
// Write and CheckWrite must only be called while the caller holds the key's lock (see Lock). Read takes the
// same lock internally, so a read never interleaves with a check-and-install on the same key.
type MVCCStorage interface {
	// Read returns the latest version of key whose id is <= txnID, and records that txnID has read it.
	Read(key string, txnID uint64) (value []byte, ok bool)
	// Get returns the newest committed version of key without recording a read.
	Get(key string) (value []byte, ok bool)
	// CheckWrite reports whether txnID may install a version of key: false if the version txnID would
	// supersede has already been read by a younger transaction.
	CheckWrite(key string, txnID uint64) bool
	// Write installs a version of key with id txnID.
	Write(key string, value []byte, txnID uint64)
	Lock(key string)
	Unlock(key string)
	// Preload installs value as the initial version of every key.
	Preload(keys []string, value []byte)
}

var (
	_ Storage     = (*MemStorage)(nil)
	_ MVCCStorage = (*MVCCStore)(nil)
)

const DefaultShards = 64

func shardIndex(key string, shards int) int {
	return int(farm.Fingerprint64([]byte(key)) % uint64(shards))
}
