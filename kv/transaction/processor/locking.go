package processor

import (
	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"
	"github.com/ngaut/log"
)

// lockingStep is one iteration of strict two-phase locking: admit one request, finalize every completed
// transaction and dispatch every transaction holding all of its locks.
func (p *TxnProcessor) lockingStep() bool {
	busy := false
	if t, ok := popTxn(p.requests); ok {
		busy = true
		p.requestLocks(t)
	}

	for {
		t, ok := popTxn(p.completed)
		if !ok {
			break
		}
		busy = true
		p.commitOrAbort(t)
		p.releaseLocks(t)
		p.finish(t)
	}

	for {
		t, ok := popTxn(p.ready)
		if !ok {
			break
		}
		busy = true
		p.pool.Submit(func() { p.executeTxn(t) })
	}
	return busy
}

// requestLocks asks for every lock of t. Keys in both sets are locked once, in write mode.
//
// All requests of a transaction are queued within one scheduler iteration, so every lock queue orders
// transactions the same way and parked transactions cannot deadlock. A blocked transaction with a single key
// in its read and write sets together gives up its request and goes back to the request queue instead.
func (p *TxnProcessor) requestLocks(t *txn.Txn) {
	blocked := 0
	for _, key := range t.ReadSet {
		if t.WriteSet.Contains(key) {
			continue
		}
		if !p.lm.ReadLock(t, key) {
			blocked++
		}
	}
	for _, key := range t.WriteSet {
		if !p.lm.WriteLock(t, key) {
			blocked++
		}
	}

	if blocked == 0 {
		p.ready.Push(t)
		return
	}
	if len(t.ReadSet)+len(t.WriteSet) == 1 {
		p.lm.Release(t, t.Keys()[0])
		p.restart(t)
		return
	}
	log.Debugf("txn %d parked waiting for %d locks", t.ID, blocked)
	parkedCounter.WithLabelValues(p.mode.String()).Inc()
}

// releaseLocks gives up the read locks of t, then its write locks.
func (p *TxnProcessor) releaseLocks(t *txn.Txn) {
	for _, key := range t.ReadSet {
		if !t.WriteSet.Contains(key) {
			p.lm.Release(t, key)
		}
	}
	for _, key := range t.WriteSet {
		p.lm.Release(t, key)
	}
}
