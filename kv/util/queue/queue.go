package queue

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// Queue is an unbounded FIFO which is safe for any number of producers and consumers. Neither Push nor TryPop
// ever waits for another party, so a scheduler loop can poll it without blocking.
type Queue struct {
	mu    sync.Mutex
	items *linkedlistqueue.Queue
}

func NewQueue() *Queue {
	return &Queue{items: linkedlistqueue.New()}
}

// Push appends item to the tail of the queue. It always succeeds.
func (q *Queue) Push(item interface{}) {
	q.mu.Lock()
	q.items.Enqueue(item)
	q.mu.Unlock()
}

// TryPop removes the item at the head of the queue. ok is false if the queue was empty.
func (q *Queue) TryPop() (item interface{}, ok bool) {
	q.mu.Lock()
	item, ok = q.items.Dequeue()
	q.mu.Unlock()
	return
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size()
}
