package peer

import (
	"sync"

	"github.com/nix-port/rtcbridge/pkg/rtc"
	"golang.org/x/exp/slices"
)

// Observers registered on a remote track or stream.
type observerList struct {
	mutex     sync.Mutex
	observers []rtc.Observer
}

func (l *observerList) RegisterObserver(observer rtc.Observer) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.observers = append(l.observers, observer)
}

func (l *observerList) UnregisterObserver(observer rtc.Observer) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if index := slices.Index(l.observers, observer); index != -1 {
		l.observers = slices.Delete(l.observers, index, index+1)
	}
}

// Informs every observer that something changed. Must not be called with the lock of the
// owner held since the observers may query the owner right away.
func (l *observerList) notifyChanged() {
	l.mutex.Lock()
	observers := slices.Clone(l.observers)
	l.mutex.Unlock()

	for _, observer := range observers {
		observer.OnChanged()
	}
}
