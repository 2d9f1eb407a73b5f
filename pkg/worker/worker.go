package worker

import (
	"errors"
	"sync"
	"time"
)

// Errors that may occur when sending tasks to a worker.
var (
	ErrWorkerClosed  = errors.New("worker is closed")
	ErrWorkerTooBusy = errors.New("worker is already overloaded")
)

// Configuration for the worker.
type Config[T any] struct {
	// The size of the bounded channel.
	ChannelSize int
	// Timeout after which `OnTimeout` is called. Zero disables the timeout.
	Timeout time.Duration
	// A closure that is called once `Timeout` is reached.
	OnTimeout func()
	// A closure that is executed upon reception of a task.
	OnTask func(T)
}

// Worker owns a goroutine that processes tasks one by one.
// We need to wrap the channel in a struct so that we can close it from the outside and
// check by the sender if the channel is closed (there is no elegant way to do it in Go).
type Worker[T any] struct {
	channel chan<- T
	mutex   sync.Mutex
	closed  bool
	done    <-chan struct{}
}

// Stop the worker unless already stopped. Tasks that are already queued are still processed.
func (w *Worker[T]) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.closed {
		close(w.channel)
		w.closed = true
	}
}

// A channel that is closed once the worker goroutine exits.
func (w *Worker[T]) Done() <-chan struct{} {
	return w.done
}

// Send a task to the worker without blocking.
func (w *Worker[T]) Send(task T) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return ErrWorkerClosed
	}

	select {
	case w.channel <- task:
		return nil
	default:
		return ErrWorkerTooBusy
	}
}

// Starts a worker that executes `c.OnTask` for every task sent and `c.OnTimeout` if
// no tasks have been received for `c.Timeout`. The worker stops once `Stop` is called
// and the queued tasks are processed.
func StartWorker[T any](c Config[T]) *Worker[T] {
	incoming := make(chan T, c.ChannelSize)
	done := make(chan struct{})

	go func() {
		defer close(done)

		var timer *time.Timer
		var timeout <-chan time.Time
		if c.Timeout > 0 {
			timer = time.NewTimer(c.Timeout)
			defer timer.Stop()
			timeout = timer.C
		}

		for {
			select {
			case task, ok := <-incoming:
				if !ok {
					return
				}
				c.OnTask(task)
			case <-timeout:
				if c.OnTimeout != nil {
					c.OnTimeout()
				}
			}

			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(c.Timeout)
			}
		}
	}()

	return &Worker[T]{channel: incoming, done: done}
}
