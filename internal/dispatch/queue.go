// Package dispatch provides a serial executor: tasks posted with Async run
// one at a time, in order, on a single goroutine owned by the Queue.
package dispatch

import "sync"

type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	closed  bool
	stopped chan struct{}
}

func NewQueue() *Queue {
	q := &Queue{stopped: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Async schedules f and returns without running it. Tasks posted after
// Close are discarded.
func (q *Queue) Async(f func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.tasks = append(q.tasks, f)
	q.cond.Signal()
}

// Sync blocks until every task posted before the call has run. It must not
// be called from a task.
func (q *Queue) Sync() {
	done := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.stopped
		return
	}
	q.tasks = append(q.tasks, func() { close(done) })
	q.cond.Signal()
	q.mu.Unlock()
	<-done
}

// Close drains the tasks already posted and stops the worker.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Signal()
	}
	q.mu.Unlock()
	<-q.stopped
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		task()
	}
}
