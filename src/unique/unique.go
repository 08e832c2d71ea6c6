// Package unique implements a node that hands out cluster-wide unique ids
// without any coordination.
//
// An id is the node id followed by the message id the reply is sent with. Node
// ids are unique in the cluster and message ids are never reused by a node, so
// two ids can never collide.
package unique

import (
	"fmt"

	"github.com/mosaicnetworks/glomers/src/common"
	"github.com/mosaicnetworks/glomers/src/proto"
	"github.com/mosaicnetworks/glomers/src/runtime"
	"github.com/sirupsen/logrus"
)

// Generate asks for a new id.
type Generate struct{}

// Type implements proto.Payload.
func (Generate) Type() string { return "generate" }

// GenerateOk carries a fresh id. The field is called id on the wire.
type GenerateOk struct {
	GUID string `codec:"id"`
}

// Type implements proto.Payload.
func (GenerateOk) Type() string { return "generate_ok" }

// Payloads lists the message types understood by unique-id nodes.
var Payloads = proto.NewRegistry(
	func() proto.Payload { return &Generate{} },
	func() proto.Payload { return &GenerateOk{} },
)

// Node is a unique-id node.
type Node struct {
	id     string
	msgID  uint64
	logger *logrus.Entry
}

// NewFactory returns the runtime.Factory of unique-id nodes.
func NewFactory(logger *logrus.Entry) runtime.Factory {
	return func(init *proto.Init, msgID uint64, _ *runtime.Injector) (runtime.Node, error) {
		return &Node{
			id:     init.NodeID,
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
		return common.NewNodeErr(common.InvariantErr, "unique step", nil)
	}

	msg := ev.Message
	switch msg.Body.Payload.(type) {
	case *Generate:
		guid := fmt.Sprintf("%s-%d", n.id, n.msgID)
		n.logger.WithField("id", guid).Debug("Generate")
		return out.Send(msg.IntoReply(&n.msgID, &GenerateOk{GUID: guid}))
	}

	return nil
}
