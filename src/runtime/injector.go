package runtime

import "time"

// Injector lets background producers add events to the stream consumed by the
// node. It is safe for concurrent use.
type Injector struct {
	events chan<- Event
	done   <-chan struct{}
}

// NewInjector returns an Injector sending into events until done is closed.
func NewInjector(events chan<- Event, done <-chan struct{}) *Injector {
	return &Injector{
		events: events,
		done:   done,
	}
}

// Inject queues v as an InjectedEvent. It blocks while the event queue is full,
// and returns false, without sending, once the event loop has stopped.
func (i *Injector) Inject(v interface{}) bool {
	select {
	case <-i.done:
		return false
	default:
	}

	select {
	case i.events <- NewInjectedEvent(v):
		return true
	case <-i.done:
		return false
	}
}

// Done is closed when the event loop stops consuming events.
func (i *Injector) Done() <-chan struct{} {
	return i.done
}

// Every starts a Ticker injecting v at the given interval.
func (i *Injector) Every(interval time.Duration, v interface{}) *Ticker {
	t := NewTicker(i, interval, v)
	go t.Run()
	return t
}
