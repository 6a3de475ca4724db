package processor

import (
	"sync"
	"time"

	"github.com/minghui-liu/cmcs624-fall20/kv/config"
	"github.com/minghui-liu/cmcs624-fall20/kv/storage"
	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/lockmgr"
	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"
	"github.com/minghui-liu/cmcs624-fall20/kv/util/queue"
	"github.com/minghui-liu/cmcs624-fall20/kv/util/worker"
	"github.com/ngaut/log"
	"go.uber.org/atomic"
)

// TxnProcessor accepts transactions from clients and runs them under one concurrency control protocol.
//
// A single scheduler goroutine owns the protocol state. It polls the request queue, hands read phases and
// business logic to a worker pool, and finalizes transactions. Every wait on the scheduler goroutine is a
// non-blocking poll followed by a short sleep, so it never blocks indefinitely.
type TxnProcessor struct {
	mode config.CCMode
	conf *config.Config

	// mu makes id minting and enqueueing one atomic step.
	mu     sync.Mutex
	nextID uint64

	requests  *queue.Queue
	results   *queue.Queue
	completed *queue.Queue
	ready     *queue.Queue

	lm        lockmgr.LockManager
	storage   storage.Storage
	mvcc      storage.MVCCStorage
	activeSet *activeSet
	pool      *worker.Pool

	committed *atomic.Uint64
	aborted   *atomic.Uint64
	restarted *atomic.Uint64

	closeCh  chan struct{}
	schedWg  sync.WaitGroup
	workerWg sync.WaitGroup
}

// Stats counts finished attempts since the processor started.
type Stats struct {
	Committed uint64
	Aborted   uint64
	// Restarted counts attempts which were retried with a new id: blocked single-key transactions under
	// locking, and validation failures under OCC, parallel OCC and MVCC.
	Restarted uint64
}

// New creates a processor for mode with the default configuration and workers goroutines.
func New(mode config.CCMode, workers int) (*TxnProcessor, error) {
	conf := config.NewDefaultConfig()
	conf.Mode = mode.String()
	conf.WorkerCount = workers
	return NewTxnProcessor(conf)
}

// NewTxnProcessor creates a processor from conf and starts its scheduler and workers.
func NewTxnProcessor(conf *config.Config) (*TxnProcessor, error) {
	p, err := newTxnProcessor(conf)
	if err != nil {
		return nil, err
	}
	p.start()
	return p, nil
}

func newTxnProcessor(conf *config.Config) (*TxnProcessor, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	mode, err := conf.CCMode()
	if err != nil {
		return nil, err
	}

	p := &TxnProcessor{
		mode:      mode,
		conf:      conf,
		nextID:    1,
		requests:  queue.NewQueue(),
		results:   queue.NewQueue(),
		completed: queue.NewQueue(),
		ready:     queue.NewQueue(),
		committed: atomic.NewUint64(0),
		aborted:   atomic.NewUint64(0),
		restarted: atomic.NewUint64(0),
		closeCh:   make(chan struct{}),
	}
	switch mode {
	case config.LockingExclusiveOnly:
		p.lm = lockmgr.NewExclusiveLockManager(p.ready)
	case config.Locking:
		p.lm = lockmgr.NewRWLockManager(p.ready)
	case config.ParallelOCC:
		p.activeSet = newActiveSet()
	}
	if mode == config.MVCC {
		p.mvcc = storage.NewMVCCStore(conf.StorageShards)
	} else {
		p.storage = storage.NewMemStorage(conf.StorageShards)
	}

	p.pool = worker.NewPool("txn-"+mode.String(), conf.WorkerCount, &p.workerWg)
	return p, nil
}

func (p *TxnProcessor) start() {
	p.pool.Start()
	p.schedWg.Add(1)
	go p.runScheduler()
	log.Infof("txn processor started, mode %v, workers %d", p.mode, p.pool.Size())
}

// NewTxnRequest assigns txn a fresh id and queues it for scheduling. This is the only place ids are minted;
// protocol restarts come through here as well.
func (p *TxnProcessor) NewTxnRequest(t *txn.Txn) {
	p.mu.Lock()
	t.ID = p.nextID
	p.nextID++
	p.requests.Push(t)
	p.mu.Unlock()
}

// GetTxnResult waits until a finished transaction is available and returns it. Results are not necessarily
// returned in submission order.
func (p *TxnProcessor) GetTxnResult() *txn.Txn {
	for {
		if t, ok := p.TryGetTxnResult(); ok {
			return t
		}
		time.Sleep(p.conf.ResultPollInterval.Duration)
	}
}

// TryGetTxnResult returns a finished transaction if one is available.
func (p *TxnProcessor) TryGetTxnResult() (*txn.Txn, bool) {
	item, ok := p.results.TryPop()
	if !ok {
		return nil, false
	}
	return item.(*txn.Txn), true
}

func (p *TxnProcessor) Mode() config.CCMode {
	return p.mode
}

func (p *TxnProcessor) Stats() Stats {
	return Stats{
		Committed: p.committed.Load(),
		Aborted:   p.aborted.Load(),
		Restarted: p.restarted.Load(),
	}
}

// Get returns the newest committed value of key.
func (p *TxnProcessor) Get(key string) ([]byte, bool) {
	if p.mvcc != nil {
		return p.mvcc.Get(key)
	}
	return p.storage.Read(key)
}

// Preload initializes every key with value. It should be called before transactions are submitted.
func (p *TxnProcessor) Preload(keys []string, value []byte) {
	if p.mvcc != nil {
		p.mvcc.Preload(keys, value)
		return
	}
	p.storage.Preload(keys, value)
}

// Close stops the scheduler and then the workers. Transactions still in flight are abandoned.
func (p *TxnProcessor) Close() {
	close(p.closeCh)
	p.schedWg.Wait()
	p.pool.Stop()
	p.workerWg.Wait()
	log.Infof("txn processor stopped, mode %v, stats %+v", p.mode, p.Stats())
}

func (p *TxnProcessor) runScheduler() {
	defer p.schedWg.Done()

	var step func() bool
	switch p.mode {
	case config.Serial:
		step = p.serialStep
	case config.Locking, config.LockingExclusiveOnly:
		step = p.lockingStep
	case config.OCC:
		step = p.occStep
	case config.ParallelOCC:
		step = p.parallelOCCStep
	case config.MVCC:
		step = p.mvccStep
	}

	for {
		select {
		case <-p.closeCh:
			return
		default:
		}
		if !step() {
			time.Sleep(p.conf.SchedulerIdleBackoff.Duration)
		}
	}
}

// popTxn pops the next transaction from q.
func popTxn(q *queue.Queue) (*txn.Txn, bool) {
	item, ok := q.TryPop()
	if !ok {
		return nil, false
	}
	return item.(*txn.Txn), true
}

// restart discards the attempt and resubmits t with a new id.
func (p *TxnProcessor) restart(t *txn.Txn) {
	log.Debugf("restart txn %d, mode %v", t.ID, p.mode)
	t.Reset()
	p.restarted.Inc()
	txnCounter.WithLabelValues(p.mode.String(), "restarted").Inc()
	p.NewTxnRequest(t)
}

// finish hands a transaction in a terminal state back to the client.
func (p *TxnProcessor) finish(t *txn.Txn) {
	if t.Status == txn.Committed {
		p.committed.Inc()
		txnCounter.WithLabelValues(p.mode.String(), "committed").Inc()
	} else {
		p.aborted.Inc()
		txnCounter.WithLabelValues(p.mode.String(), "aborted").Inc()
	}
	p.results.Push(t)
}
