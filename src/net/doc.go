// Package net simulates the harness a cluster of nodes runs against.
//
// A Network starts one runtime per node, in the same process, and connects
// their inputs and outputs with pipes. Lines a node writes to another node are
// routed to that node's input, subject to random loss. Lines addressed to
// anything else are replies to requests made with Network.Call.
//
// The topology helpers build the neighbor maps sent to broadcast nodes.
package net
