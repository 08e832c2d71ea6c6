package proto

// Payload is implemented by every message body variant. Type returns the
// snake_case tag written in the body's "type" field.
type Payload interface {
	Type() string
}

// Body is the part of a message that is interpreted by nodes.
type Body struct {
	// MsgID is set on messages that expect a reply. It is unique per sender.
	MsgID *uint64
	// InReplyTo echoes the MsgID of the request being answered.
	InReplyTo *uint64
	Payload   Payload
}

// Message is the envelope routed by the harness. Messages are never mutated
// once they have been handed to an output sink.
type Message struct {
	Src  string
	Dst  string
	Body Body
}

// ID returns a pointer to a copy of id, for use in Body.MsgID and
// Body.InReplyTo.
func ID(id uint64) *uint64 {
	return &id
}

// IntoReply builds the reply to m with the given payload. Source and
// destination are swapped and InReplyTo is set to m's MsgID. If counter is not
// nil, the reply gets MsgID = *counter and the counter is incremented exactly
// once. A nil counter leaves the reply without a MsgID.
func (m *Message) IntoReply(counter *uint64, payload Payload) *Message {
	reply := &Message{
		Src: m.Dst,
		Dst: m.Src,
		Body: Body{
			Payload: payload,
		},
	}

	if m.Body.MsgID != nil {
		reply.Body.InReplyTo = ID(*m.Body.MsgID)
	}

	if counter != nil {
		reply.Body.MsgID = ID(*counter)
		*counter++
	}

	return reply
}

// Type returns the type tag of the payload, or the empty string.
func (m *Message) Type() string {
	if m.Body.Payload == nil {
		return ""
	}
	return m.Body.Payload.Type()
}
