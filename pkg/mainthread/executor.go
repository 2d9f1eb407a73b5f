package mainthread

import (
	"sync"

	"github.com/gammazero/deque"
	"github.com/sirupsen/logrus"
)

// Executor runs closures on the designated (engine) thread.
// Closures posted by a single goroutine are executed in the order they were posted.
type Executor interface {
	Post(task func())
}

// Loop is an executor backed by a single goroutine that drains an unbounded FIFO queue.
// Posting never blocks, which is required since the callers are the
// internal goroutines of the WebRTC stack.
type Loop struct {
	logger *logrus.Entry

	mutex   sync.Mutex
	queue   deque.Deque[func()]
	stopped bool

	wakeup chan struct{}
	done   chan struct{}
}

// Starts a new loop.
func NewLoop(logger *logrus.Entry) *Loop {
	loop := &Loop{
		logger: logger,
		wakeup: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	go loop.run()

	return loop
}

// Schedules the task. Tasks posted after `Stop` are dropped.
func (l *Loop) Post(task func()) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.stopped {
		l.logger.Warn("dropping the task, the loop is stopped")
		return
	}

	l.queue.PushBack(task)

	// The wakeup channel is closed under the same lock, so the send can't panic.
	select {
	case l.wakeup <- struct{}{}:
	default:
	}
}

// Blocks until every task posted before the call has been executed.
// Returns immediately if the loop is stopped. Must not be called from a task,
// the barrier would be queued behind the running task and never be reached.
func (l *Loop) Sync() {
	barrier := make(chan struct{})
	l.Post(func() { close(barrier) })

	select {
	case <-barrier:
	case <-l.done:
	}
}

// Stops the loop. The tasks that are still queued are discarded.
// Returns once the loop goroutine has exited, so it must not be called from a task either.
func (l *Loop) Stop() {
	l.mutex.Lock()
	if !l.stopped {
		l.stopped = true
		close(l.wakeup)
	}
	l.mutex.Unlock()

	<-l.done
}

// Pops the next task, `nil` if the queue is empty.
func (l *Loop) next() (task func(), stopped bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.stopped {
		if dropped := l.queue.Len(); dropped > 0 {
			l.logger.WithField("dropped", dropped).Warn("loop stopped with pending tasks")
			l.queue.Clear()
		}
		return nil, true
	}

	if l.queue.Len() == 0 {
		return nil, false
	}

	return l.queue.PopFront(), false
}

func (l *Loop) run() {
	defer close(l.done)

	for range l.wakeup {
		for {
			task, stopped := l.next()
			if stopped {
				return
			}
			if task == nil {
				break
			}
			task()
		}
	}

	// The wakeup channel is closed by `Stop`, drop whatever is left.
	l.next()
}
