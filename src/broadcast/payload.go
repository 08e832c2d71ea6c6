package broadcast

import "github.com/mosaicnetworks/glomers/src/proto"

// Broadcast asks a node to store Message.
type Broadcast struct {
	Message uint64 `codec:"message"`
}

// BroadcastOk acknowledges Broadcast.
type BroadcastOk struct{}

// Read asks a node for every value it holds.
type Read struct{}

// ReadOk answers Read.
type ReadOk struct {
	Messages []uint64 `codec:"messages"`
}

// Topology gives the neighbors of every node.
type Topology struct {
	Topology map[string][]string `codec:"topology"`
}

// TopologyOk acknowledges Topology.
type TopologyOk struct{}

// Gossip pushes values to a neighbor.
type Gossip struct {
	Messages []uint64 `codec:"messages"`
}

// GossipOk acknowledges Gossip, and pushes back the values the sender was
// missing.
type GossipOk struct {
	Messages []uint64 `codec:"messages"`
}

func (Broadcast) Type() string   { return "broadcast" }
func (BroadcastOk) Type() string { return "broadcast_ok" }
func (Read) Type() string        { return "read" }
func (ReadOk) Type() string      { return "read_ok" }
func (Topology) Type() string    { return "topology" }
func (TopologyOk) Type() string  { return "topology_ok" }
func (Gossip) Type() string      { return "gossip" }
func (GossipOk) Type() string    { return "gossip_ok" }

// Payloads lists the message types understood by broadcast nodes.
var Payloads = proto.NewRegistry(
	func() proto.Payload { return &Broadcast{} },
	func() proto.Payload { return &BroadcastOk{} },
	func() proto.Payload { return &Read{} },
	func() proto.Payload { return &ReadOk{} },
	func() proto.Payload { return &Topology{} },
	func() proto.Payload { return &TopologyOk{} },
	func() proto.Payload { return &Gossip{} },
	func() proto.Payload { return &GossipOk{} },
)
