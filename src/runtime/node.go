package runtime

import "github.com/mosaicnetworks/glomers/src/proto"

// Sender is where a node writes its outbound messages.
type Sender interface {
	Send(m *proto.Message) error
}

// Node is implemented by every node variant. Step is only ever called from the
// event loop goroutine, one event at a time, so implementations need no
// locking.
type Node interface {
	Step(ev Event, out Sender) error
}

// Factory builds a Node once the handshake is complete. msgID is the first
// message id the node should use. Background producers are registered through
// inj. Any initial state a variant needs is captured by the Factory itself.
type Factory func(init *proto.Init, msgID uint64, inj *Injector) (Node, error)
