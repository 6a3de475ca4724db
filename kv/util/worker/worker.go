package worker

import (
	"sync"

	"github.com/minghui-liu/cmcs624-fall20/kv/util/queue"
	"github.com/ngaut/log"
)

type Task func()

// Pool runs submitted tasks on a fixed number of goroutines. Submit never blocks: tasks wait in an unbounded
// queue until a goroutine is free.
type Pool struct {
	name    string
	size    int
	tasks   *queue.Queue
	notify  chan struct{}
	closeCh chan struct{}
	wg      *sync.WaitGroup
}

func NewPool(name string, size int, wg *sync.WaitGroup) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		name:    name,
		size:    size,
		tasks:   queue.NewQueue(),
		notify:  make(chan struct{}, 1),
		closeCh: make(chan struct{}),
		wg:      wg,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run()
		}()
	}
	log.Debugf("worker pool %s started with %d workers", p.name, p.size)
}

func (p *Pool) run() {
	for {
		if t, ok := p.tasks.TryPop(); ok {
			// Pass the baton so that a backlog is drained by every idle worker, not just this one.
			if p.tasks.Len() > 0 {
				p.wakeOne()
			}
			t.(Task)()
			continue
		}
		select {
		case <-p.notify:
		case <-p.closeCh:
			return
		}
	}
}

func (p *Pool) wakeOne() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Submit queues t for execution.
func (p *Pool) Submit(t Task) {
	p.tasks.Push(t)
	p.wakeOne()
}

func (p *Pool) Size() int {
	return p.size
}

// Stop asks every worker to exit once its current task is done. Tasks still queued are dropped.
func (p *Pool) Stop() {
	close(p.closeCh)
}
