package processor

import "github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"

// occStep dispatches one request and validates every completed transaction serially.
func (p *TxnProcessor) occStep() bool {
	busy := false
	if t, ok := popTxn(p.requests); ok {
		busy = true
		p.pool.Submit(func() { p.executeTxn(t) })
	}

	for {
		t, ok := popTxn(p.completed)
		if !ok {
			break
		}
		busy = true
		checkCompleted(t)
		if !p.validate(t) {
			p.restart(t)
			continue
		}
		p.commitOrAbort(t)
		p.finish(t)
	}
	return busy
}

// validate reports whether no key of t was written after its read phase began.
func (p *TxnProcessor) validate(t *txn.Txn) bool {
	for _, key := range t.Keys() {
		if p.storage.Timestamp(key) > t.StartTime {
			return false
		}
	}
	return true
}
