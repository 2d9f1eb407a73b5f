package mainthread

import (
	"sync"

	"github.com/gammazero/deque"
)

// Manual captures posted closures and runs them only when asked to.
// Useful to check the ordering of notifications without real goroutines.
type Manual struct {
	mutex sync.Mutex
	queue deque.Deque[func()]
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Post(task func()) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.queue.PushBack(task)
}

// Number of closures waiting to be executed.
func (m *Manual) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.queue.Len()
}

// Runs the queued closures in FIFO order, including the ones that are posted
// while running. Returns the number of executed closures.
func (m *Manual) RunPending() int {
	executed := 0
	for {
		m.mutex.Lock()
		if m.queue.Len() == 0 {
			m.mutex.Unlock()
			return executed
		}
		task := m.queue.PopFront()
		m.mutex.Unlock()

		task()
		executed++
	}
}
