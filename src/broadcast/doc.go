// Package broadcast implements a gossip based broadcast node.
//
// Clients hand values to any node with a broadcast message and read back the
// set of values a node holds with a read message. A broadcast is acknowledged
// as soon as the receiving node has stored the value. Propagation is left to a
// periodic anti-entropy round:
//
//   - every node tracks, per neighbor, the values that neighbor is known to
//     hold
//   - on each tick it sends every neighbor the values it holds that the
//     neighbor is not known to hold, and remembers that round as in flight
//   - the receiver merges the values and answers with the values it holds that
//     the sender is not known to hold
//   - an answer to the latest round marks its values as known by the neighbor,
//     while an answer to an older round only contributes its own values
//
// Lost or duplicated messages are harmless. Set differences are recomputed at
// every tick, so anything that did not make it is sent again, and merging the
// same values twice changes nothing.
package broadcast
