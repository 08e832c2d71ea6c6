// Package proto defines the messages exchanged between a node and the harness
// that plays the role of the network.
//
// Every message is a single JSON object on a single line:
//
//	{"src":"c1","dest":"n1","body":{"type":"broadcast","msg_id":4,"message":12}}
//
// The body carries an optional msg_id, an optional in_reply_to, a type tag and
// the fields of the payload identified by that tag. Payloads are plain structs
// implementing Payload; each node variant declares the closed set it speaks in
// a Registry, which is what Decode uses to turn a type tag back into a value.
//
// Encoding is canonical: map keys are sorted, so the same logical message
// always produces the same bytes.
package proto
