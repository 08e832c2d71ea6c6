// Package echo implements the simplest node: it answers every echo request with
// the same string.
package echo

import (
	"github.com/mosaicnetworks/glomers/src/common"
	"github.com/mosaicnetworks/glomers/src/proto"
	"github.com/mosaicnetworks/glomers/src/runtime"
	"github.com/sirupsen/logrus"
)

// Echo asks the node to send back Echo.
type Echo struct {
	Echo string `codec:"echo"`
}

// Type implements proto.Payload.
func (Echo) Type() string { return "echo" }

// EchoOk is the answer to Echo.
type EchoOk struct {
	Echo string `codec:"echo"`
}

// Type implements proto.Payload.
func (EchoOk) Type() string { return "echo_ok" }

// Payloads lists the message types understood by echo nodes.
var Payloads = proto.NewRegistry(
	func() proto.Payload { return &Echo{} },
	func() proto.Payload { return &EchoOk{} },
)

// Node is an echo node.
type Node struct {
	msgID  uint64
	logger *logrus.Entry
}

// NewFactory returns the runtime.Factory of echo nodes.
func NewFactory(logger *logrus.Entry) runtime.Factory {
	return func(init *proto.Init, msgID uint64, _ *runtime.Injector) (runtime.Node, error) {
		return &Node{
			msgID:  msgID,
			logger: logger.WithField("node", init.NodeID),
		}, nil
	}
}

// Step implements runtime.Node.
func (n *Node) Step(ev runtime.Event, out runtime.Sender) error {
	switch ev.Kind {
	case runtime.EOFEvent:
		return nil
	case runtime.InjectedEvent:
		return common.NewNodeErr(common.InvariantErr, "echo step", nil)
	}

	msg := ev.Message
	switch p := msg.Body.Payload.(type) {
	case *Echo:
		n.logger.WithField("from", msg.Src).Debug("Echo")
		return out.Send(msg.IntoReply(&n.msgID, &EchoOk{Echo: p.Echo}))
	}

	return nil
}
