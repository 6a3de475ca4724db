package processor

import (
	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"
	"github.com/ngaut/log"
)

// mvccStep dispatches one request. Reads, validation and commit happen on the worker.
func (p *TxnProcessor) mvccStep() bool {
	t, ok := popTxn(p.requests)
	if !ok {
		return false
	}
	p.pool.Submit(func() { p.executeMVCC(t) })
	return true
}

// executeMVCC runs t under multi-version timestamp ordering with t.ID as its timestamp. Reads see the newest
// version not newer than t and record t as a reader of it. A write is rejected when a transaction newer than t
// has already read the version t would overwrite.
func (p *TxnProcessor) executeMVCC(t *txn.Txn) {
	for _, key := range t.Keys() {
		if value, ok := p.mvcc.Read(key, t.ID); ok {
			t.Reads[key] = value
		}
	}
	t.Run()
	checkCompleted(t)

	if t.Status == txn.CompletedAbort {
		t.Status = txn.Aborted
		p.finish(t)
		return
	}

	// WriteSet is sorted, so concurrent committers lock keys in the same order.
	for _, key := range t.WriteSet {
		p.mvcc.Lock(key)
	}
	valid := true
	for _, key := range t.WriteSet {
		if !p.mvcc.CheckWrite(key, t.ID) {
			valid = false
			break
		}
	}
	if valid {
		for key, value := range t.Writes {
			p.mvcc.Write(key, value, t.ID)
		}
	}
	for _, key := range t.WriteSet {
		p.mvcc.Unlock(key)
	}

	if !valid {
		log.Debugf("txn %d failed mvcc write check", t.ID)
		p.restart(t)
		return
	}
	t.Status = txn.Committed
	p.finish(t)
}
