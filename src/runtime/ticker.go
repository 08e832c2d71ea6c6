package runtime

import (
	"sync"
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// Ticker injects the same value at a fixed interval. It stops when the event
// loop is torn down or when Shutdown is called, whichever comes first.
type Ticker struct {
	timerFactory timerFactory
	injector     *Injector
	interval     time.Duration
	value        interface{}

	shutdownCh   chan struct{} //receives instruction to exit Run loop
	shutdownOnce sync.Once
}

// NewTicker creates a Ticker backed by time.After. Run must be called to start
// it.
func NewTicker(inj *Injector, interval time.Duration, v interface{}) *Ticker {
	return newTicker(inj, interval, v, time.After)
}

func newTicker(inj *Injector, interval time.Duration, v interface{}, factory timerFactory) *Ticker {
	return &Ticker{
		timerFactory: factory,
		injector:     inj,
		interval:     interval,
		value:        v,
		shutdownCh:   make(chan struct{}),
	}
}

// Run blocks until the ticker stops. A tick is only rearmed after the previous
// value has been queued, so a slow node never sees a burst of stale ticks.
func (t *Ticker) Run() {
	timer := t.timerFactory(t.interval)
	for {
		select {
		case <-timer:
			if !t.injector.Inject(t.value) {
				return
			}
			timer = t.timerFactory(t.interval)
		case <-t.injector.Done():
			return
		case <-t.shutdownCh:
			return
		}
	}
}

// Shutdown stops the Run loop. It can be called more than once.
func (t *Ticker) Shutdown() {
	t.shutdownOnce.Do(func() {
		close(t.shutdownCh)
	})
}
