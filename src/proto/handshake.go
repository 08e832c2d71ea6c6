package proto

// Init is the first message a node receives. It names the node and lists every
// node in the cluster.
type Init struct {
	NodeID  string   `codec:"node_id"`
	NodeIDs []string `codec:"node_ids"`
}

// Type implements Payload.
func (Init) Type() string { return "init" }

// InitOk acknowledges Init.
type InitOk struct{}

// Type implements Payload.
func (InitOk) Type() string { return "init_ok" }

// HandshakePayloads is the registry used to decode the first line of input.
var HandshakePayloads = NewRegistry(
	func() Payload { return &Init{} },
	func() Payload { return &InitOk{} },
)
