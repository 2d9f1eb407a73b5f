package common

import (
	"sync"
	"time"
)

// Watchdog calls `onTimeout` each time no notification has been received for `timeout`.
// Used to detect remote tracks that stopped delivering media without ending.
type Watchdog struct {
	timeout   time.Duration
	onTimeout func()

	mutex  sync.Mutex
	closed bool
	notify chan struct{}
	stop   chan struct{}
}

func NewWatchdog(timeout time.Duration, onTimeout func()) *Watchdog {
	return &Watchdog{
		timeout:   timeout,
		onTimeout: onTimeout,
		notify:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
}

// Starts the watchdog goroutine. The returned channel is closed once the goroutine terminates,
// i.e. after `Close` has been called.
func (w *Watchdog) Start() <-chan struct{} {
	terminated := make(chan struct{})

	go func() {
		defer close(terminated)

		timer := time.NewTimer(w.timeout)
		defer timer.Stop()

		for {
			select {
			case <-w.stop:
				return
			case <-w.notify:
				if !timer.Stop() {
					<-timer.C
				}
			case <-timer.C:
				w.onTimeout()
			}
			timer.Reset(w.timeout)
		}
	}()

	return terminated
}

// Informs the watchdog that the watched activity is alive. Never blocks.
// Returns `false` if the watchdog is already closed.
func (w *Watchdog) Notify() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return false
	}

	// A pending notification is as good as a new one.
	select {
	case w.notify <- struct{}{}:
	default:
	}

	return true
}

// Stops the watchdog. Safe to call multiple times and before `Start`.
func (w *Watchdog) Close() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.closed {
		w.closed = true
		close(w.stop)
	}
}
