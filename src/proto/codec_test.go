package proto

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

type numbers struct {
	Values []uint64 `codec:"values"`
}

func (numbers) Type() string { return "numbers" }

type graph struct {
	Edges map[string][]string `codec:"edges"`
}

func (graph) Type() string { return "graph" }

var testPayloads = NewRegistry(
	func() Payload { return &ping{} },
	func() Payload { return &pong{} },
	func() Payload { return &numbers{} },
	func() Payload { return &graph{} },
)

func TestEncodeIsStable(t *testing.T) {
	msg := &Message{
		Src: "n1",
		Dst: "n2",
		Body: Body{
			MsgID: ID(1),
			Payload: &graph{Edges: map[string][]string{
				"n3": {"n1"},
				"n1": {"n2", "n3"},
				"n2": {"n1"},
			}},
		},
	}

	first, err := Encode(msg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Encode(msg)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding is not stable:\n%s\n%s", first, again)
		}
	}

	if bytes.IndexByte(first, '\n') >= 0 {
		t.Fatalf("encoded message must fit on one line: %q", first)
	}
}

func TestEncodeFields(t *testing.T) {
	msg := &Message{
		Src:  "n1",
		Dst:  "c1",
		Body: Body{InReplyTo: ID(9), Payload: &numbers{Values: []uint64{}}},
	}

	line, err := Encode(msg)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{`"src":"n1"`, `"dest":"c1"`, `"type":"numbers"`, `"in_reply_to":9`, `"values":[]`} {
		if !bytes.Contains(line, []byte(want)) {
			t.Errorf("%s should contain %s", line, want)
		}
	}
	if bytes.Contains(line, []byte("msg_id")) {
		t.Errorf("%s should not carry a msg_id", line)
	}
}

func TestEncodeWithoutPayload(t *testing.T) {
	if _, err := Encode(&Message{Src: "n1", Dst: "n2"}); err == nil {
		t.Fatalf("encoding a message without payload should fail")
	}
}

func TestDecode(t *testing.T) {
	line := []byte(`{"id":3,"src":"c1","dest":"n1","body":{"type":"numbers","msg_id":42,"values":[3,1,2]}}`)

	msg, err := Decode(line, testPayloads)
	if err != nil {
		t.Fatal(err)
	}

	if msg.Src != "c1" || msg.Dst != "n1" {
		t.Fatalf("wrong envelope: %+v", msg)
	}
	if msg.Body.MsgID == nil || *msg.Body.MsgID != 42 {
		t.Fatalf("msg_id should be 42")
	}
	if msg.Body.InReplyTo != nil {
		t.Fatalf("in_reply_to should be absent")
	}

	p, ok := msg.Body.Payload.(*numbers)
	if !ok {
		t.Fatalf("payload should be *numbers, got %T", msg.Body.Payload)
	}
	if !reflect.DeepEqual(p.Values, []uint64{3, 1, 2}) {
		t.Fatalf("wrong values %v", p.Values)
	}
}

func TestDecodeNestedMap(t *testing.T) {
	line := []byte(`{"src":"c1","dest":"n1","body":{"type":"graph","msg_id":1,"edges":{"n1":["n2"],"n2":["n1","n3"]}}}`)

	msg, err := Decode(line, testPayloads)
	if err != nil {
		t.Fatal(err)
	}

	g := msg.Body.Payload.(*graph)
	want := map[string][]string{"n1": {"n2"}, "n2": {"n1", "n3"}}
	if !reflect.DeepEqual(g.Edges, want) {
		t.Fatalf("edges: got %v, want %v", g.Edges, want)
	}
}

func TestDecodeAcceptsDst(t *testing.T) {
	line := []byte(`{"src":"n2","dst":"n1","body":{"type":"ping","text":"x"}}`)

	msg, err := Decode(line, testPayloads)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Dst != "n1" {
		t.Fatalf("dst should be accepted as the destination, got %q", msg.Dst)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"not json":          `hello`,
		"no body":           `{"src":"c1","dest":"n1"}`,
		"unknown type":      `{"src":"c1","dest":"n1","body":{"type":"cas"}}`,
		"no type":           `{"src":"c1","dest":"n1","body":{"msg_id":1}}`,
		"fractional value":  `{"src":"c1","dest":"n1","body":{"type":"numbers","values":[1,2.5]}}`,
		"fractional msg_id": `{"src":"c1","dest":"n1","body":{"type":"ping","msg_id":1.5}}`,
	}

	for name, line := range cases {
		if _, err := Decode([]byte(line), testPayloads); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestDecodeWholeFloats(t *testing.T) {
	line := `{"src":"c1","dest":"n1","body":{"type":"numbers","msg_id":3.0,"values":[1.0,2]}}`

	msg, err := Decode([]byte(line), testPayloads)
	if err != nil {
		t.Fatal(err)
	}
	if *msg.Body.MsgID != 3 {
		t.Fatalf("msg_id should be 3, got %d", *msg.Body.MsgID)
	}
	if got := msg.Body.Payload.(*numbers).Values; !reflect.DeepEqual(got, []uint64{1, 2}) {
		t.Fatalf("values should be [1 2], got %v", got)
	}
}

func TestDecodeUnknownTypeListsKnownTypes(t *testing.T) {
	_, err := Decode([]byte(`{"src":"c1","dest":"n1","body":{"type":"cas"}}`), testPayloads)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "[graph numbers ping pong]") {
		t.Fatalf("error should list the known types: %v", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	msg := &Message{
		Src:  "n1",
		Dst:  "n2",
		Body: Body{MsgID: ID(5), InReplyTo: ID(4), Payload: &ping{Text: "hello"}},
	}

	line, err := Encode(msg)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decode(line, testPayloads)
	if err != nil {
		t.Fatal(err)
	}

	msg.Body.Payload = &ping{Text: "hello"}
	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("got %+v, want %+v", got, msg)
	}
}

func TestRoute(t *testing.T) {
	src, dst, err := Route([]byte(`{"src":"n3","dest":"n4","body":{"type":"whatever"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if src != "n3" || dst != "n4" {
		t.Fatalf("got %s -> %s", src, dst)
	}
}

func TestRegistryMerge(t *testing.T) {
	a := NewRegistry(func() Payload { return &ping{} })
	b := NewRegistry(func() Payload { return &pong{} })

	merged := a.Merge(b, HandshakePayloads)

	want := []string{"init", "init_ok", "ping", "pong"}
	if !reflect.DeepEqual(merged.Types(), want) {
		t.Fatalf("got %v, want %v", merged.Types(), want)
	}
	if len(a.Types()) != 1 {
		t.Fatalf("merge should not modify the receiver")
	}
}
