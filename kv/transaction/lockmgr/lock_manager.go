package lockmgr

import (
	"sync"

	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"
	"github.com/minghui-liu/cmcs624-fall20/kv/util/queue"
)

// Mode is the kind of access a lock grants.
type Mode int

const (
	Unlocked Mode = iota
	Shared
	Exclusive
)

func (m Mode) String() string {
	switch m {
	case Shared:
		return "SHARED"
	case Exclusive:
		return "EXCLUSIVE"
	}
	return "UNLOCKED"
}

// LockManager grants per-key locks to transactions.
//
// A lock request which cannot be granted immediately is queued behind the key's earlier requests in FIFO order.
// The lock manager counts, per transaction, how many of its requests are still queued; when a release grants
// the last of them, the transaction is pushed to the ready queue, exactly once.
type LockManager interface {
	// ReadLock requests shared access to key for txn. It returns true if the lock was granted immediately and
	// false if the request was queued.
	ReadLock(txn *txn.Txn, key string) bool
	// WriteLock requests exclusive access to key for txn, with the same return convention as ReadLock.
	WriteLock(txn *txn.Txn, key string) bool
	// Release gives up txn's lock on key. If txn is still waiting for key its request is withdrawn instead.
	Release(txn *txn.Txn, key string)
	// Status returns the mode key is held in and its current holders.
	Status(key string) (Mode, []*txn.Txn)
	// Pending returns how many of txn's requests have not been granted yet.
	Pending(txn *txn.Txn) int
}

type request struct {
	txn  *txn.Txn
	mode Mode
}

type lockEntry struct {
	mode    Mode
	holders []*txn.Txn
	// waiters holds *request in arrival order.
	waiters *doublylinkedlist.List
}

// lockTable is the bookkeeping shared by both lock managers.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
	waits map[*txn.Txn]int
	ready *queue.Queue
}

func newLockTable(ready *queue.Queue) lockTable {
	return lockTable{
		locks: make(map[string]*lockEntry),
		waits: make(map[*txn.Txn]int),
		ready: ready,
	}
}

func (lt *lockTable) acquire(t *txn.Txn, key string, mode Mode) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	e, ok := lt.locks[key]
	if !ok {
		e = &lockEntry{waiters: doublylinkedlist.New()}
		lt.locks[key] = e
	}
	// Nobody may overtake a queued request, otherwise a waiting writer could starve.
	if e.waiters.Empty() && (len(e.holders) == 0 || (e.mode == Shared && mode == Shared)) {
		e.mode = mode
		e.holders = append(e.holders, t)
		return true
	}
	e.waiters.Add(&request{txn: t, mode: mode})
	lt.waits[t]++
	return false
}

func (lt *lockTable) release(t *txn.Txn, key string) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	e, ok := lt.locks[key]
	if !ok {
		return
	}
	if !e.removeHolder(t) && e.removeWaiter(t) {
		lt.waits[t]--
		if lt.waits[t] <= 0 {
			delete(lt.waits, t)
		}
	}

	for _, granted := range e.grant() {
		lt.waits[granted]--
		if lt.waits[granted] <= 0 {
			delete(lt.waits, granted)
			lt.ready.Push(granted)
		}
	}
	if len(e.holders) == 0 && e.waiters.Empty() {
		delete(lt.locks, key)
	}
}

func (e *lockEntry) removeHolder(t *txn.Txn) bool {
	for i, holder := range e.holders {
		if holder == t {
			e.holders = append(e.holders[:i], e.holders[i+1:]...)
			if len(e.holders) == 0 {
				e.mode = Unlocked
			}
			return true
		}
	}
	return false
}

func (e *lockEntry) removeWaiter(t *txn.Txn) bool {
	it := e.waiters.Iterator()
	for it.Next() {
		if it.Value().(*request).txn == t {
			e.waiters.Remove(it.Index())
			return true
		}
	}
	return false
}

// grant moves requests from the head of the wait queue to the holders while they are compatible: either one
// exclusive request, or a run of shared requests.
func (e *lockEntry) grant() []*txn.Txn {
	var granted []*txn.Txn
	for !e.waiters.Empty() {
		head, _ := e.waiters.Get(0)
		req := head.(*request)
		if len(e.holders) > 0 && !(e.mode == Shared && req.mode == Shared) {
			break
		}
		e.waiters.Remove(0)
		e.mode = req.mode
		e.holders = append(e.holders, req.txn)
		granted = append(granted, req.txn)
	}
	return granted
}

func (lt *lockTable) status(key string) (Mode, []*txn.Txn) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	e, ok := lt.locks[key]
	if !ok || len(e.holders) == 0 {
		return Unlocked, nil
	}
	holders := make([]*txn.Txn, len(e.holders))
	copy(holders, e.holders)
	return e.mode, holders
}

func (lt *lockTable) pending(t *txn.Txn) int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.waits[t]
}

// ExclusiveLockManager treats every request as exclusive, so a key has at most one holder of any kind.
type ExclusiveLockManager struct {
	table lockTable
}

func NewExclusiveLockManager(ready *queue.Queue) *ExclusiveLockManager {
	return &ExclusiveLockManager{table: newLockTable(ready)}
}

func (lm *ExclusiveLockManager) ReadLock(t *txn.Txn, key string) bool {
	return lm.table.acquire(t, key, Exclusive)
}

func (lm *ExclusiveLockManager) WriteLock(t *txn.Txn, key string) bool {
	return lm.table.acquire(t, key, Exclusive)
}

func (lm *ExclusiveLockManager) Release(t *txn.Txn, key string) {
	lm.table.release(t, key)
}

func (lm *ExclusiveLockManager) Status(key string) (Mode, []*txn.Txn) {
	return lm.table.status(key)
}

func (lm *ExclusiveLockManager) Pending(t *txn.Txn) int {
	return lm.table.pending(t)
}

// RWLockManager grants shared locks to readers and exclusive locks to writers. A shared request is granted at
// once only if the key is unlocked or shared and nobody is queued ahead of it.
type RWLockManager struct {
	table lockTable
}

func NewRWLockManager(ready *queue.Queue) *RWLockManager {
	return &RWLockManager{table: newLockTable(ready)}
}

func (lm *RWLockManager) ReadLock(t *txn.Txn, key string) bool {
	return lm.table.acquire(t, key, Shared)
}

func (lm *RWLockManager) WriteLock(t *txn.Txn, key string) bool {
	return lm.table.acquire(t, key, Exclusive)
}

func (lm *RWLockManager) Release(t *txn.Txn, key string) {
	lm.table.release(t, key)
}

func (lm *RWLockManager) Status(key string) (Mode, []*txn.Txn) {
	return lm.table.status(key)
}

func (lm *RWLockManager) Pending(t *txn.Txn) int {
	return lm.table.pending(t)
}
