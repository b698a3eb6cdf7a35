package session

import "sync"

// Queue is the per-session FIFO feeding the analysis worker. Pushes never
// block, so message ingestion is decoupled from in-flight analysis. Pop
// blocks until an item arrives or the queue is closed and fully drained.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []int
	closed bool

	stopOnce sync.Once
	done     chan struct{}
}

func newQueue() *Queue {
	q := &Queue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a message id. It reports false once the queue has been
// closed by teardown; the caller logs and drops the item.
func (q *Queue) Push(id int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, id)
	q.cond.Signal()
	return true
}

// Pop blocks until an item is available. ok is false only after Close, once
// every previously pushed item has been handed out.
func (q *Queue) Pop() (id int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return 0, false
	}
	id = q.items[0]
	q.items = q.items[1:]
	return id, true
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further pushes. Items already queued stay poppable so the
// worker can drain them. Reports false if the queue was already closed.
func (q *Queue) Close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.closed = true
	q.cond.Broadcast()
	return true
}

// MarkStopped is called by the worker after its final Pop, signalling that
// the queue has been drained.
func (q *Queue) MarkStopped() {
	q.stopOnce.Do(func() { close(q.done) })
}

// Done is closed once the worker has drained the queue and exited.
func (q *Queue) Done() <-chan struct{} { return q.done }
