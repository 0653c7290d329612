package workpool

import "sync"

// BlockingQueue is an unbounded FIFO queue whose Take blocks until an item
// is available or the queue is closed.
type BlockingQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

func NewBlockingQueue[T any]() *BlockingQueue[T] {
	q := &BlockingQueue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends item. It returns false, leaving the queue untouched, once the
// queue is closed.
func (q *BlockingQueue[T]) Put(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return true
}

// Take removes the oldest item, blocking while the queue is empty.
// The second return value is false once the queue is closed and empty.
func (q *BlockingQueue[T]) Take() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	first := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return first, true
}

// Close rejects further Puts, wakes every waiter and returns the items that
// were still queued.
func (q *BlockingQueue[T]) Close() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	drained := q.items
	q.items = nil
	q.cond.Broadcast()
	return drained
}

func (q *BlockingQueue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
