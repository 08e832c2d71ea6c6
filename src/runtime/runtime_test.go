package runtime

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mosaicnetworks/glomers/src/common"
	"github.com/mosaicnetworks/glomers/src/proto"
)

type echo struct {
	Echo string `codec:"echo"`
}

func (echo) Type() string { return "echo" }

type echoOk struct {
	Echo string `codec:"echo"`
}

func (echoOk) Type() string { return "echo_ok" }

var testPayloads = proto.NewRegistry(
	func() proto.Payload { return &echo{} },
	func() proto.Payload { return &echoOk{} },
)

const initLine = `{"src":"c0","dest":"n1","body":{"type":"init","msg_id":1,"node_id":"n1","node_ids":["n1","n2"]}}`

// recordingNode answers echo requests and remembers every event it sees.
type recordingNode struct {
	msgID  uint64
	events []Event
	fail   func(Event) error
}

func (n *recordingNode) Step(ev Event, out Sender) error {
	n.events = append(n.events, ev)

	if n.fail != nil {
		if err := n.fail(ev); err != nil {
			return err
		}
	}

	if ev.Kind != MessageEvent {
		return nil
	}

	if p, ok := ev.Message.Body.Payload.(*echo); ok {
		return out.Send(ev.Message.IntoReply(&n.msgID, &echoOk{Echo: p.Echo}))
	}

	return nil
}

func (n *recordingNode) kinds() []EventKind {
	kinds := make([]EventKind, len(n.events))
	for i, ev := range n.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func factoryFor(n *recordingNode) Factory {
	return func(init *proto.Init, msgID uint64, inj *Injector) (Node, error) {
		n.msgID = msgID
		return n, nil
	}
}

func decodeOutput(t *testing.T, out *bytes.Buffer) []*proto.Message {
	t.Helper()

	reg := testPayloads.Merge(proto.HandshakePayloads)

	var msgs []*proto.Message
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		msg, err := proto.Decode(scanner.Bytes(), reg)
		if err != nil {
			t.Fatalf("output line %q: %v", scanner.Text(), err)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestRunHandshakeAndEcho(t *testing.T) {
	in := strings.NewReader(initLine + "\n" +
		`{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":7,"echo":"hello"}}` + "\n")
	out := &bytes.Buffer{}

	node := &recordingNode{}
	r := NewRuntime(in, out, testPayloads, common.NewTestEntry(t, "runtime"))
	if err := r.Run(factoryFor(node)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := decodeOutput(t, out)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 output messages, got %d", len(msgs))
	}

	initOk := msgs[0]
	if initOk.Type() != "init_ok" {
		t.Fatalf("first output should be init_ok, got %s", initOk.Type())
	}
	if initOk.Src != "n1" || initOk.Dst != "c0" {
		t.Fatalf("init_ok routed %s -> %s", initOk.Src, initOk.Dst)
	}
	if initOk.Body.MsgID == nil || *initOk.Body.MsgID != 0 {
		t.Fatalf("init_ok should carry msg_id 0")
	}
	if initOk.Body.InReplyTo == nil || *initOk.Body.InReplyTo != 1 {
		t.Fatalf("init_ok should reply to 1")
	}

	reply := msgs[1]
	if reply.Type() != "echo_ok" || reply.Body.Payload.(*echoOk).Echo != "hello" {
		t.Fatalf("unexpected reply %#v", reply.Body.Payload)
	}
	if *reply.Body.MsgID != 1 || *reply.Body.InReplyTo != 7 {
		t.Fatalf("echo_ok should have msg_id 1 and in_reply_to 7, got %d %d",
			*reply.Body.MsgID, *reply.Body.InReplyTo)
	}

	kinds := node.kinds()
	if len(kinds) != 2 || kinds[0] != MessageEvent || kinds[1] != EOFEvent {
		t.Fatalf("expected message then eof, got %v", kinds)
	}
}

func TestRunOutputIsOneLinePerMessage(t *testing.T) {
	in := strings.NewReader(initLine + "\n" +
		`{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":2,"echo":"a\nb"}}` + "\n")
	out := &bytes.Buffer{}

	r := NewRuntime(in, out, testPayloads, common.NewTestEntry(t, "runtime"))
	if err := r.Run(factoryFor(&recordingNode{})); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out.String())
	}
	if !strings.HasSuffix(out.String(), "\n") {
		t.Fatalf("output should end with a newline")
	}
}

func TestRunRejectsMissingInit(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"not init": `{"src":"c1","dest":"n1","body":{"type":"init_ok","in_reply_to":1}}` + "\n",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRuntime(strings.NewReader(input), &bytes.Buffer{}, testPayloads, common.NewTestEntry(t, "runtime"))
			err := r.Run(factoryFor(&recordingNode{}))
			if !common.IsNodeErr(err, common.ConfigErr) {
				t.Fatalf("expected a ConfigErr, got %v", err)
			}
		})
	}
}

func TestRunMalformedInputIsFatal(t *testing.T) {
	in := strings.NewReader(initLine + "\n" + "{not json\n")

	node := &recordingNode{}
	r := NewRuntime(in, &bytes.Buffer{}, testPayloads, common.NewTestEntry(t, "runtime"))
	err := r.Run(factoryFor(node))
	if !common.IsNodeErr(err, common.SerializationErr) {
		t.Fatalf("expected a SerializationErr, got %v", err)
	}
	if len(node.events) != 0 {
		t.Fatalf("node should not have seen any event, saw %v", node.kinds())
	}
}

func TestRunUnknownTypeIsFatal(t *testing.T) {
	in := strings.NewReader(initLine + "\n" +
		`{"src":"c1","dest":"n1","body":{"type":"frobnicate","msg_id":2}}` + "\n")

	r := NewRuntime(in, &bytes.Buffer{}, testPayloads, common.NewTestEntry(t, "runtime"))
	err := r.Run(factoryFor(&recordingNode{}))
	if !common.IsNodeErr(err, common.SerializationErr) {
		t.Fatalf("expected a SerializationErr, got %v", err)
	}
}

func TestRunErrorPolicy(t *testing.T) {
	input := initLine + "\n" +
		`{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":2,"echo":"one"}}` + "\n" +
		`{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":3,"echo":"two"}}` + "\n"

	t.Run("transient errors are skipped", func(t *testing.T) {
		node := &recordingNode{
			fail: func(ev Event) error {
				if ev.Kind == MessageEvent {
					return common.NewNodeErr(common.TransientErr, "echo", nil)
				}
				return nil
			},
		}
		r := NewRuntime(strings.NewReader(input), &bytes.Buffer{}, testPayloads, common.NewTestEntry(t, "runtime"))
		if err := r.Run(factoryFor(node)); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(node.events) != 3 {
			t.Fatalf("expected 3 events, got %v", node.kinds())
		}
	})

	t.Run("fatal errors stop the loop", func(t *testing.T) {
		boom := common.NewNodeErr(common.InvariantErr, "echo", errors.New("boom"))
		node := &recordingNode{
			fail: func(ev Event) error {
				if ev.Kind == MessageEvent {
					return boom
				}
				return nil
			},
		}
		r := NewRuntime(strings.NewReader(input), &bytes.Buffer{}, testPayloads, common.NewTestEntry(t, "runtime"))
		if err := r.Run(factoryFor(node)); !errors.Is(err, boom) {
			t.Fatalf("expected %v, got %v", boom, err)
		}
		if len(node.events) != 1 {
			t.Fatalf("loop should stop at the first event, got %v", node.kinds())
		}
	})
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestRunBrokenOutput(t *testing.T) {
	r := NewRuntime(strings.NewReader(initLine+"\n"), brokenWriter{}, testPayloads, common.NewTestEntry(t, "runtime"))
	err := r.Run(factoryFor(&recordingNode{}))
	if !common.IsNodeErr(err, common.SerializationErr) {
		t.Fatalf("expected a SerializationErr, got %v", err)
	}
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("error should wrap the write failure, got %v", err)
	}
}

func TestRunInjectedEvents(t *testing.T) {
	inR, inW := io.Pipe()
	out := &bytes.Buffer{}

	seen := make(chan struct{})
	var injector *Injector

	node := &recordingNode{
		fail: func(ev Event) error {
			if ev.Kind == InjectedEvent && ev.Injected == "tick" {
				close(seen)
			}
			return nil
		},
	}

	factory := func(init *proto.Init, msgID uint64, inj *Injector) (Node, error) {
		injector = inj
		go inj.Inject("tick")
		return node, nil
	}

	errCh := make(chan error, 1)
	r := NewRuntime(inR, out, testPayloads, common.NewTestEntry(t, "runtime"))
	go func() {
		errCh <- r.Run(factory)
	}()

	if _, err := inW.Write([]byte(initLine + "\n")); err != nil {
		t.Fatal(err)
	}

	<-seen
	inW.Close()

	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}

	kinds := node.kinds()
	if kinds[len(kinds)-1] != EOFEvent {
		t.Fatalf("last event should be eof, got %v", kinds)
	}

	if injector.Inject("late") {
		t.Fatalf("Inject should fail once the loop has stopped")
	}
}
