package runtime

import (
	"bufio"
	"errors"
	"io"

	"github.com/mosaicnetworks/glomers/src/common"
	"github.com/mosaicnetworks/glomers/src/proto"
	"github.com/mosaicnetworks/glomers/src/telemetry"
	"github.com/sirupsen/logrus"
)

const (
	// maxLineSize bounds the size of a single input message.
	maxLineSize = 4 * 1024 * 1024

	eventQueueSize = 64
)

// Runtime owns the event loop of one node.
type Runtime struct {
	in       io.Reader
	out      *Output
	registry *proto.Registry
	logger   *logrus.Entry

	events chan Event
	done   chan struct{}
}

// NewRuntime creates a Runtime reading messages from in and writing replies to
// out. reg lists the payload types of the node variant. The handshake types
// are always understood.
func NewRuntime(in io.Reader, out io.Writer, reg *proto.Registry, logger *logrus.Entry) *Runtime {
	return &Runtime{
		in:       in,
		out:      NewOutput(out),
		registry: proto.HandshakePayloads.Merge(reg),
		logger:   logger,
		events:   make(chan Event, eventQueueSize),
		done:     make(chan struct{}),
	}
}

// Run performs the handshake, builds the node with factory and processes events
// until the input is exhausted or a fatal error occurs. It returns nil after the
// node has handled the EOF event. A Runtime can only be run once.
func (r *Runtime) Run(factory Factory) error {
	defer close(r.done)

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	init, err := r.handshake(scanner)
	if err != nil {
		r.logger.WithError(err).Error("Handshake")
		return err
	}

	r.logger = r.logger.WithField("node", init.NodeID)
	r.out.setNode(init.NodeID)

	r.logger.WithFields(logrus.Fields{
		"nodes": init.NodeIDs,
	}).Debug("Handshake complete")

	node, err := factory(init, 1, NewInjector(r.events, r.done))
	if err != nil {
		r.logger.WithError(err).Error("Building node")
		return err
	}

	go r.readInput(scanner)

	return r.loop(init.NodeID, node)
}

func (r *Runtime) loop(id string, node Node) error {
	for ev := range r.events {
		if ev.err != nil {
			err := common.NewNodeErr(common.SerializationErr, "read input", ev.err)
			r.logger.WithError(err).Error("Reading input")
			return err
		}

		telemetry.EventsTotal.WithLabelValues(id, ev.Kind.String()).Inc()
		if ev.Kind == MessageEvent {
			telemetry.MessagesReceived.WithLabelValues(id, ev.Message.Type()).Inc()
		}

		if err := node.Step(ev, r.out); err != nil {
			if !common.IsFatal(err) {
				r.logger.WithError(err).Debug("Step")
			} else {
				r.logger.WithError(err).Error("Step")
				return err
			}
		}

		if ev.Kind == EOFEvent {
			r.logger.Debug("Input closed")
			return nil
		}
	}
	return nil
}

// handshake reads the init message and answers it. init_ok takes message id 0,
// which is why the node counter starts at 1.
func (r *Runtime) handshake(scanner *bufio.Scanner) (*proto.Init, error) {
	if !scanner.Scan() {
		cause := scanner.Err()
		if cause == nil {
			cause = io.ErrUnexpectedEOF
		}
		return nil, common.NewNodeErr(common.ConfigErr, "handshake", cause)
	}

	msg, err := proto.Decode(scanner.Bytes(), proto.HandshakePayloads)
	if err != nil {
		return nil, common.NewNodeErr(common.SerializationErr, "handshake", err)
	}

	init, ok := msg.Body.Payload.(*proto.Init)
	if !ok {
		return nil, common.NewNodeErr(common.ConfigErr, "handshake",
			errors.New("first message should be init, got "+msg.Type()))
	}

	var counter uint64
	if err := r.out.Send(msg.IntoReply(&counter, &proto.InitOk{})); err != nil {
		return nil, err
	}

	return init, nil
}

// readInput turns every line of input into an event. It stops at the first
// decoding error, at the end of the input, or when the loop is gone.
func (r *Runtime) readInput(scanner *bufio.Scanner) {
	for scanner.Scan() {
		msg, err := proto.Decode(scanner.Bytes(), r.registry)
		if err != nil {
			r.emit(Event{err: err})
			return
		}
		if !r.emit(NewMessageEvent(msg)) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		r.emit(Event{err: err})
		return
	}

	r.emit(NewEOFEvent())
}

func (r *Runtime) emit(ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}
