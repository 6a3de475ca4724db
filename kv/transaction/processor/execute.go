package processor

import (
	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"
	"github.com/ngaut/log"
)

// readPhase stamps the start time and copies every key the transaction touches into t.Reads.
func (p *TxnProcessor) readPhase(t *txn.Txn) {
	t.StartTime = p.storage.Now()
	for _, key := range t.Keys() {
		if value, ok := p.storage.Read(key); ok {
			t.Reads[key] = value
		}
	}
}

// executeTxn is the worker side of the locking and OCC protocols. The scheduler finalizes t once it shows up
// on the completed queue.
func (p *TxnProcessor) executeTxn(t *txn.Txn) {
	p.readPhase(t)
	t.Run()
	p.completed.Push(t)
}

func (p *TxnProcessor) applyWrites(t *txn.Txn) {
	for key, value := range t.Writes {
		p.storage.Write(key, value, t.ID)
	}
}

// checkCompleted kills the process if the program of t did not end with Commit or Abort.
func checkCompleted(t *txn.Txn) {
	if t.Status != txn.CompletedCommit && t.Status != txn.CompletedAbort {
		log.Fatalf("completed txn %d has invalid status %v", t.ID, t.Status)
	}
}

// commitOrAbort moves a completed transaction to its terminal state, installing its writes if it commits.
func (p *TxnProcessor) commitOrAbort(t *txn.Txn) {
	checkCompleted(t)
	if t.Status == txn.CompletedCommit {
		p.applyWrites(t)
		t.Status = txn.Committed
		return
	}
	t.Status = txn.Aborted
}
