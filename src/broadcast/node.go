package broadcast

import (
	"errors"
	"fmt"
	"time"

	"github.com/mosaicnetworks/glomers/src/common"
	"github.com/mosaicnetworks/glomers/src/proto"
	"github.com/mosaicnetworks/glomers/src/runtime"
	"github.com/mosaicnetworks/glomers/src/telemetry"
	"github.com/sirupsen/logrus"
)

// GossipTick is injected periodically to start a gossip round.
type GossipTick struct{}

// round is the latest unacknowledged gossip sent to a neighbor.
type round struct {
	msgID uint64
	delta Set
}

// Node is a broadcast node. All its state is owned by the event loop.
type Node struct {
	id    string
	msgID uint64

	// messages is every value this node has accepted.
	messages Set
	// neighborhood is the list of peers this node gossips with, in topology
	// order. Every entry has a known set.
	neighborhood []string
	// known[n] is a lower bound of the values n holds.
	known    map[string]Set
	inFlight map[string]*round

	ticker *runtime.Ticker
	logger *logrus.Entry
}

// NewFactory returns the runtime.Factory of broadcast nodes, gossiping every
// interval.
func NewFactory(interval time.Duration, logger *logrus.Entry) runtime.Factory {
	return func(init *proto.Init, msgID uint64, inj *runtime.Injector) (runtime.Node, error) {
		if interval <= 0 {
			return nil, common.NewNodeErr(common.ConfigErr, "broadcast",
				fmt.Errorf("gossip interval must be positive, got %v", interval))
		}

		n := newNode(init.NodeID, msgID, logger)
		n.ticker = inj.Every(interval, GossipTick{})

		n.logger.WithField("interval", interval).Debug("Gossip ticker started")

		return n, nil
	}
}

func newNode(id string, msgID uint64, logger *logrus.Entry) *Node {
	return &Node{
		id:       id,
		msgID:    msgID,
		messages: NewSet(),
		known:    make(map[string]Set),
		inFlight: make(map[string]*round),
		logger:   logger.WithField("node", id),
	}
}

// Step implements runtime.Node.
func (n *Node) Step(ev runtime.Event, out runtime.Sender) error {
	switch ev.Kind {
	case runtime.EOFEvent:
		if n.ticker != nil {
			n.ticker.Shutdown()
		}
		n.logger.WithFields(logrus.Fields{
			"messages":  len(n.messages),
			"in_flight": len(n.inFlight),
		}).Debug("EOF")
		return nil
	case runtime.InjectedEvent:
		if _, ok := ev.Injected.(GossipTick); !ok {
			return common.NewNodeErr(common.InvariantErr, "broadcast step",
				fmt.Errorf("unexpected injected value %T", ev.Injected))
		}
		n.gossip(out)
		return nil
	}

	return n.handle(ev.Message, out)
}

func (n *Node) handle(msg *proto.Message, out runtime.Sender) error {
	switch p := msg.Body.Payload.(type) {
	case *Topology:
		return n.onTopology(msg, p, out)
	case *Broadcast:
		n.messages.Add(p.Message)
		n.updateGauges()
		return out.Send(msg.IntoReply(&n.msgID, &BroadcastOk{}))
	case *Read:
		return out.Send(msg.IntoReply(&n.msgID, &ReadOk{Messages: n.messages.Sorted()}))
	case *Gossip:
		return n.onGossip(msg, p, out)
	case *GossipOk:
		return n.onGossipOk(msg, p)
	}

	// BroadcastOk, ReadOk, TopologyOk and anything from the handshake
	return nil
}

// onTopology replaces the neighborhood with topology[n.id]. What is known about
// neighbors that are kept survives, state about the others is dropped.
func (n *Node) onTopology(msg *proto.Message, p *Topology, out runtime.Sender) error {
	peers, ok := p.Topology[n.id]
	if !ok {
		return common.NewNodeErr(common.ConfigErr, "topology",
			fmt.Errorf("no topology given for node %s", n.id))
	}

	neighborhood := make([]string, 0, len(peers))
	known := make(map[string]Set, len(peers))
	for _, peer := range peers {
		if peer == n.id {
			continue
		}
		if _, dup := known[peer]; dup {
			continue
		}
		neighborhood = append(neighborhood, peer)
		if k, ok := n.known[peer]; ok {
			known[peer] = k
		} else {
			known[peer] = NewSet()
		}
	}

	for peer := range n.inFlight {
		if _, ok := known[peer]; !ok {
			delete(n.inFlight, peer)
		}
	}

	n.neighborhood = neighborhood
	n.known = known
	n.updateGauges()

	n.logger.WithField("neighbors", neighborhood).Debug("Topology")

	return out.Send(msg.IntoReply(&n.msgID, &TopologyOk{}))
}

// gossip sends every neighbor the values it is not known to hold. Send errors
// are only counted: the next tick recomputes the same delta.
func (n *Node) gossip(out runtime.Sender) {
	for _, peer := range n.neighborhood {
		delta := n.messages.Minus(n.known[peer])
		if len(delta) == 0 {
			continue
		}

		id := n.msgID
		n.msgID++
		n.inFlight[peer] = &round{msgID: id, delta: delta}

		err := out.Send(&proto.Message{
			Src: n.id,
			Dst: peer,
			Body: proto.Body{
				MsgID:   proto.ID(id),
				Payload: &Gossip{Messages: delta.Sorted()},
			},
		})
		if err != nil {
			telemetry.GossipSendFailures.WithLabelValues(n.id).Inc()
			n.logger.WithError(err).WithField("peer", peer).Debug("Gossip send failed")
			continue
		}

		telemetry.GossipRounds.WithLabelValues(n.id).Inc()
	}

	n.updateGauges()
}

func (n *Node) onGossip(msg *proto.Message, p *Gossip, out runtime.Sender) error {
	known, err := n.knownBy(msg.Src, "gossip")
	if err != nil {
		return err
	}

	known.AddAll(p.Messages)
	n.messages.AddAll(p.Messages)
	n.updateGauges()

	delta := n.messages.Minus(known)

	return out.Send(msg.IntoReply(&n.msgID, &GossipOk{Messages: delta.Sorted()}))
}

// onGossipOk merges the reverse delta carried by the ack, then closes the
// in-flight round if the ack answers it. An ack for an older round leaves the
// in-flight record alone.
func (n *Node) onGossipOk(msg *proto.Message, p *GossipOk) error {
	known, err := n.knownBy(msg.Src, "gossip_ok")
	if err != nil {
		return err
	}

	known.AddAll(p.Messages)
	n.messages.AddAll(p.Messages)

	r, ok := n.inFlight[msg.Src]
	if ok && msg.Body.InReplyTo != nil && *msg.Body.InReplyTo == r.msgID {
		delete(n.inFlight, msg.Src)
		known.Merge(r.delta)
	} else {
		telemetry.StaleAcks.WithLabelValues(n.id).Inc()
		n.logger.WithField("peer", msg.Src).Debug("Stale gossip_ok")
	}

	n.updateGauges()

	return nil
}

func (n *Node) knownBy(peer, op string) (Set, error) {
	known, ok := n.known[peer]
	if !ok {
		telemetry.UnknownPeers.WithLabelValues(n.id).Inc()
		return nil, common.NewNodeErr(common.InvariantErr, op+" from "+peer,
			errors.New("sender is not a neighbor"))
	}
	return known, nil
}

func (n *Node) updateGauges() {
	telemetry.KnownValues.WithLabelValues(n.id).Set(float64(len(n.messages)))
	telemetry.InFlightRounds.WithLabelValues(n.id).Set(float64(len(n.inFlight)))
}
