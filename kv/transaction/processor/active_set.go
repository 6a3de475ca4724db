package processor

import (
	"sync"

	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"
)

// activeSet holds the transactions which passed parallel validation and are installing their writes.
type activeSet struct {
	mu   sync.Mutex
	txns map[*txn.Txn]struct{}
}

func newActiveSet() *activeSet {
	return &activeSet{txns: make(map[*txn.Txn]struct{})}
}

// admit validates t and, if t is going to commit, adds it to the set. fresh checks t against storage; the set
// additionally rejects t when a member writes a key of t. Both checks and the insert happen under one lock.
func (s *activeSet) admit(t *txn.Txn, fresh func(*txn.Txn) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !fresh(t) {
		return false
	}
	keys := t.Keys()
	for member := range s.txns {
		if keys.Intersects(member.WriteSet) {
			return false
		}
	}
	if t.Status == txn.CompletedCommit {
		s.txns[t] = struct{}{}
	}
	return true
}

func (s *activeSet) remove(t *txn.Txn) {
	s.mu.Lock()
	delete(s.txns, t)
	s.mu.Unlock()
}

func (s *activeSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}
