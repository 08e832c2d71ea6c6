package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mosaicnetworks/glomers/src/proto"
	"github.com/mosaicnetworks/glomers/src/runtime"
	"github.com/mosaicnetworks/glomers/src/telemetry"
	"github.com/sirupsen/logrus"
)

// ClientID is the source of every request made through Network.Call.
const ClientID = "c1"

const inboxSize = 1024

// ErrNodeStopped is returned by Call when the target node is no longer running.
var ErrNodeStopped = errors.New("node stopped")

// simNode is one runtime plugged into the Network.
type simNode struct {
	id      string
	runtime *runtime.Runtime

	inbox chan []byte
	inR   *io.PipeReader
	inW   *io.PipeWriter

	stopCh chan struct{}
	doneCh chan struct{}
	err    error
}

// Network runs a set of nodes in-process and plays the role of the harness:
// it routes the lines written by a node to the input of the destination node,
// and delivers lines addressed to anything else to the pending Call they
// answer.
//
// Messages between nodes are dropped with probability loss, or when the input
// queue of the destination is full. Requests made with Call are never dropped.
type Network struct {
	sync.RWMutex
	nodes map[string]*simNode
	ids   []string

	registry *proto.Registry
	logger   *logrus.Entry

	rngLock sync.Mutex
	rng     *rand.Rand
	loss    float64

	pendingLock sync.Mutex
	pending     map[uint64]chan *proto.Message
	clientMsgID uint64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewNetwork creates a Network of nodes with the given ids. reg lists the
// payload types of the node variant. seed makes loss decisions reproducible.
func NewNetwork(ids []string, reg *proto.Registry, loss float64, seed int64, logger *logrus.Entry) *Network {
	n := &Network{
		nodes:    make(map[string]*simNode, len(ids)),
		registry: proto.HandshakePayloads.Merge(reg),
		logger:   logger,
		rng:      rand.New(rand.NewSource(seed)),
		loss:     loss,
		pending:  make(map[uint64]chan *proto.Message),
	}

	for _, id := range ids {
		inR, inW := io.Pipe()
		sn := &simNode{
			id:     id,
			inbox:  make(chan []byte, inboxSize),
			inR:    inR,
			inW:    inW,
			stopCh: make(chan struct{}),
			doneCh: make(chan struct{}),
		}
		sn.runtime = runtime.NewRuntime(inR, &router{net: n, from: id}, reg, logger.WithField("sim", id))
		n.nodes[id] = sn
		n.ids = append(n.ids, id)
	}
	sort.Strings(n.ids)

	return n
}

// IDs returns the sorted ids of the nodes.
func (n *Network) IDs() []string {
	return append([]string(nil), n.ids...)
}

// Start runs every node with factory and completes their handshakes.
func (n *Network) Start(ctx context.Context, factory runtime.Factory) error {
	for _, sn := range n.nodes {
		n.wg.Add(2)
		go n.run(sn, factory)
		go n.feed(sn)
	}

	for _, id := range n.ids {
		reply, err := n.Call(ctx, id, &proto.Init{NodeID: id, NodeIDs: n.IDs()})
		if err != nil {
			return fmt.Errorf("init %s: %w", id, err)
		}
		if _, ok := reply.Body.Payload.(*proto.InitOk); !ok {
			return fmt.Errorf("init %s: unexpected reply %s", id, reply.Type())
		}
	}

	n.logger.WithField("nodes", n.ids).Debug("Network started")

	return nil
}

func (n *Network) run(sn *simNode, factory runtime.Factory) {
	defer n.wg.Done()

	sn.err = sn.runtime.Run(factory)
	if sn.err != nil {
		n.logger.WithField("node", sn.id).WithError(sn.err).Error("Node stopped")
	}

	// unblock feed if it is writing
	sn.inR.Close()
	close(sn.doneCh)
}

// feed copies the inbox of a node into its input, and closes the input when the
// network stops.
func (n *Network) feed(sn *simNode) {
	defer n.wg.Done()

	for {
		select {
		case line := <-sn.inbox:
			if _, err := sn.inW.Write(line); err != nil {
				return
			}
		case <-sn.stopCh:
			sn.inW.Close()
			return
		}
	}
}

// Call sends a request from ClientID to node dst and waits for the reply.
func (n *Network) Call(ctx context.Context, dst string, p proto.Payload) (*proto.Message, error) {
	n.RLock()
	sn, ok := n.nodes[dst]
	n.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown node %s", dst)
	}

	id := atomic.AddUint64(&n.clientMsgID, 1)
	respCh := make(chan *proto.Message, 1)

	n.pendingLock.Lock()
	n.pending[id] = respCh
	n.pendingLock.Unlock()

	defer func() {
		n.pendingLock.Lock()
		delete(n.pending, id)
		n.pendingLock.Unlock()
	}()

	line, err := proto.Encode(&proto.Message{
		Src:  ClientID,
		Dst:  dst,
		Body: proto.Body{MsgID: proto.ID(id), Payload: p},
	})
	if err != nil {
		return nil, err
	}

	select {
	case sn.inbox <- append(line, '\n'):
	case <-sn.doneCh:
		return nil, n.stopped(sn)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case reply := <-respCh:
		return reply, nil
	case <-sn.doneCh:
		return nil, n.stopped(sn)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *Network) stopped(sn *simNode) error {
	if sn.err != nil {
		return fmt.Errorf("%s: %w: %v", sn.id, ErrNodeStopped, sn.err)
	}
	return fmt.Errorf("%s: %w", sn.id, ErrNodeStopped)
}

// Close ends the input of every node and waits for them to stop. It returns
// the errors of the nodes that failed.
func (n *Network) Close() error {
	n.closeOnce.Do(func() {
		for _, sn := range n.nodes {
			close(sn.stopCh)
		}
	})

	n.wg.Wait()

	var errs []error
	for _, id := range n.ids {
		if err := n.nodes[id].err; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (n *Network) route(from string, line []byte) {
	src, dst, err := proto.Route(line)
	if err != nil {
		n.logger.WithField("node", from).WithError(err).Warn("Unroutable output")
		return
	}

	n.RLock()
	target, ok := n.nodes[dst]
	n.RUnlock()

	if !ok {
		n.deliver(line)
		return
	}

	if n.lose() {
		telemetry.DroppedLinks.WithLabelValues("loss").Inc()
		n.logger.WithFields(logrus.Fields{"src": src, "dst": dst}).Debug("Dropped")
		return
	}

	select {
	case target.inbox <- line:
	default:
		telemetry.DroppedLinks.WithLabelValues("overflow").Inc()
	}
}

// deliver hands a reply to the Call waiting for it. Replies nobody waits for
// are discarded.
func (n *Network) deliver(line []byte) {
	msg, err := proto.Decode(line, n.registry)
	if err != nil {
		n.logger.WithError(err).Warn("Undecodable reply")
		return
	}
	if msg.Body.InReplyTo == nil {
		return
	}

	n.pendingLock.Lock()
	respCh, ok := n.pending[*msg.Body.InReplyTo]
	n.pendingLock.Unlock()

	if !ok {
		telemetry.DroppedLinks.WithLabelValues("orphan").Inc()
		return
	}

	select {
	case respCh <- msg:
	default:
	}
}

func (n *Network) lose() bool {
	if n.loss <= 0 {
		return false
	}
	n.rngLock.Lock()
	defer n.rngLock.Unlock()
	return n.rng.Float64() < n.loss
}

// router is the output of a simulated node. runtime.Output writes exactly one
// line per call.
type router struct {
	net  *Network
	from string
}

func (r *router) Write(p []byte) (int, error) {
	r.net.route(r.from, append([]byte(nil), p...))
	return len(p), nil
}
