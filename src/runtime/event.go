package runtime

import "github.com/mosaicnetworks/glomers/src/proto"

// EventKind tells what an Event carries.
type EventKind uint8

const (
	// MessageEvent carries a message decoded from the input.
	MessageEvent EventKind = iota
	// InjectedEvent carries a value produced by an injector.
	InjectedEvent
	// EOFEvent is the last event, sent once the input is exhausted.
	EOFEvent
)

// String ...
func (k EventKind) String() string {
	switch k {
	case MessageEvent:
		return "message"
	case InjectedEvent:
		return "injected"
	case EOFEvent:
		return "eof"
	default:
		return "unknown"
	}
}

// Event is the unit of work handed to Node.Step.
type Event struct {
	Kind     EventKind
	Message  *proto.Message
	Injected interface{}

	// set by the input reader when a line could not be decoded
	err error
}

// NewMessageEvent wraps an inbound message.
func NewMessageEvent(m *proto.Message) Event {
	return Event{Kind: MessageEvent, Message: m}
}

// NewInjectedEvent wraps a value produced by an injector.
func NewInjectedEvent(v interface{}) Event {
	return Event{Kind: InjectedEvent, Injected: v}
}

// NewEOFEvent returns the terminal event.
func NewEOFEvent() Event {
	return Event{Kind: EOFEvent}
}
