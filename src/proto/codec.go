package proto

import (
	"fmt"
	"math"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/ugorji/go/codec"
)

// Keys of the body fields owned by the envelope rather than the payload.
const (
	typeKey      = "type"
	msgIDKey     = "msg_id"
	inReplyToKey = "in_reply_to"
)

var jsonHandle = newJSONHandle()

func newJSONHandle() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	jh.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return jh
}

// wireMessage is the outbound shape of a Message. The body is flattened into a
// map so that payload fields sit next to type, msg_id and in_reply_to.
type wireMessage struct {
	Src  string                 `codec:"src"`
	Dest string                 `codec:"dest"`
	Body map[string]interface{} `codec:"body"`
}

// wireInbound also accepts "dst" for the destination, as some harnesses and
// hand-written fixtures use it.
type wireInbound struct {
	Src  string                 `codec:"src"`
	Dest string                 `codec:"dest"`
	Dst  string                 `codec:"dst"`
	Body map[string]interface{} `codec:"body"`
}

type bodyHeader struct {
	Type      string  `codec:"type"`
	MsgID     *uint64 `codec:"msg_id"`
	InReplyTo *uint64 `codec:"in_reply_to"`
}

// Encode returns the single-line JSON representation of m, without the
// trailing newline.
func Encode(m *Message) ([]byte, error) {
	if m.Body.Payload == nil {
		return nil, fmt.Errorf("message from %s to %s has no payload", m.Src, m.Dst)
	}

	body, err := payloadFields(m.Body.Payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", m.Body.Payload.Type(), err)
	}

	body[typeKey] = m.Body.Payload.Type()
	if m.Body.MsgID != nil {
		body[msgIDKey] = *m.Body.MsgID
	}
	if m.Body.InReplyTo != nil {
		body[inReplyToKey] = *m.Body.InReplyTo
	}

	var out []byte
	enc := codec.NewEncoderBytes(&out, jsonHandle)
	if err := enc.Encode(&wireMessage{Src: m.Src, Dest: m.Dst, Body: body}); err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}

	return out, nil
}

// Decode parses one line into a Message, using reg to resolve the payload
// type.
func Decode(line []byte, reg *Registry) (*Message, error) {
	var wire wireInbound
	dec := codec.NewDecoderBytes(line, jsonHandle)
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}

	if wire.Body == nil {
		return nil, fmt.Errorf("message from %q has no body", wire.Src)
	}

	var header bodyHeader
	if err := decodeFields(wire.Body, &header); err != nil {
		return nil, fmt.Errorf("decoding body header: %w", err)
	}

	payload, err := reg.New(header.Type)
	if err != nil {
		return nil, err
	}

	if err := decodeFields(wire.Body, payload); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", header.Type, err)
	}

	dst := wire.Dest
	if dst == "" {
		dst = wire.Dst
	}

	return &Message{
		Src: wire.Src,
		Dst: dst,
		Body: Body{
			MsgID:     header.MsgID,
			InReplyTo: header.InReplyTo,
			Payload:   payload,
		},
	}, nil
}

// Route extracts the source and destination of an encoded message without
// decoding its payload.
func Route(line []byte) (src, dst string, err error) {
	var wire wireInbound
	dec := codec.NewDecoderBytes(line, jsonHandle)
	if err := dec.Decode(&wire); err != nil {
		return "", "", fmt.Errorf("decoding message: %w", err)
	}
	dst = wire.Dest
	if dst == "" {
		dst = wire.Dst
	}
	return wire.Src, dst, nil
}

// payloadFields round-trips p through the codec to obtain its fields as a map
// keyed by wire name.
func payloadFields(p Payload) (map[string]interface{}, error) {
	var raw []byte
	if err := codec.NewEncoderBytes(&raw, jsonHandle).Encode(p); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if err := codec.NewDecoderBytes(raw, jsonHandle).Decode(&fields); err != nil {
		return nil, err
	}

	return fields, nil
}

func decodeFields(fields map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: rejectFractions,
		TagName:    "codec",
		Result:     out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}

// rejectFractions stops mapstructure from truncating a JSON number like 1.5
// into an integer field.
var rejectFractions mapstructure.DecodeHookFuncType = func(from, to reflect.Type, data interface{}) (interface{}, error) {
	f, ok := data.(float64)
	if !ok {
		return data, nil
	}

	for to.Kind() == reflect.Ptr {
		to = to.Elem()
	}

	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
	}

	return data, nil
}
