// Package runtime runs one node of a simulated cluster.
//
// A node talks to the harness over two byte streams. Every line of the input is
// one JSON message, and every message the node emits is written as one line of
// the output. The Runtime performs the init handshake, builds the Node with the
// Factory it is given, and then feeds it one Event at a time from a single
// goroutine:
//
//    stdin reader --------\
//                          +--> events --> Node.Step --> Output --> stdout
//    injectors (Ticker) --/
//
// Node state is only ever touched by the loop goroutine. Background producers
// register through an Injector and communicate with the node exclusively by
// injecting values into the event stream. Once the loop has returned, Inject
// reports false and producers are expected to exit.
//
// Errors returned by Step are classified with the common.NodeErr types. A
// TransientErr is logged and the loop keeps going. Anything else stops Run.
package runtime
