package processor

// serialStep runs at most one transaction to completion on the scheduler goroutine.
func (p *TxnProcessor) serialStep() bool {
	t, ok := popTxn(p.requests)
	if !ok {
		return false
	}
	p.readPhase(t)
	t.Run()
	p.commitOrAbort(t)
	p.finish(t)
	return true
}
