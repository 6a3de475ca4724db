package processor

import "github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"

// parallelOCCStep dispatches one request. Validation and commit happen on the worker.
func (p *TxnProcessor) parallelOCCStep() bool {
	t, ok := popTxn(p.requests)
	if !ok {
		return false
	}
	p.pool.Submit(func() { p.executeParallelOCC(t) })
	return true
}

func (p *TxnProcessor) executeParallelOCC(t *txn.Txn) {
	p.readPhase(t)
	t.Run()
	checkCompleted(t)

	if !p.activeSet.admit(t, p.validate) {
		p.restart(t)
		return
	}
	if t.Status == txn.CompletedAbort {
		t.Status = txn.Aborted
		p.finish(t)
		return
	}
	p.applyWrites(t)
	p.activeSet.remove(t)
	t.Status = txn.Committed
	p.finish(t)
}
