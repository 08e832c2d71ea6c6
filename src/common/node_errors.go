package common

import (
	"errors"
	"fmt"
)

// NodeErrType classifies the failures a node can run into while processing an
// event. The runtime decides whether to keep going based on this type.
type NodeErrType uint32

const (
	// ConfigErr is a configuration error, like a topology that does not
	// mention this node. The node cannot make progress and must abort.
	ConfigErr NodeErrType = iota
	// InvariantErr is a protocol invariant violation, like gossip received
	// from a node that was never registered as a neighbor.
	InvariantErr
	// TransientErr is a failure that the protocol recovers from on its own,
	// typically on the next gossip round.
	TransientErr
	// SerializationErr covers messages that cannot be decoded or encoded, and
	// a broken output sink.
	SerializationErr
)

// String ...
func (t NodeErrType) String() string {
	switch t {
	case ConfigErr:
		return "Config"
	case InvariantErr:
		return "Invariant"
	case TransientErr:
		return "Transient"
	case SerializationErr:
		return "Serialization"
	default:
		return "Unknown"
	}
}

// NodeErr ...
type NodeErr struct {
	errType NodeErrType
	op      string
	cause   error
}

// NewNodeErr ...
func NewNodeErr(errType NodeErrType, op string, cause error) NodeErr {
	return NodeErr{
		errType: errType,
		op:      op,
		cause:   cause,
	}
}

// Error ...
func (e NodeErr) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s, %s", e.op, e.errType)
	}
	return fmt.Sprintf("%s, %s: %v", e.op, e.errType, e.cause)
}

// Unwrap returns the underlying error, if any.
func (e NodeErr) Unwrap() error {
	return e.cause
}

// Type ...
func (e NodeErr) Type() NodeErrType {
	return e.errType
}

// IsNodeErr checks that an error is, or wraps, a NodeErr and that its type
// matches the provided NodeErrType.
func IsNodeErr(err error, t NodeErrType) bool {
	var nodeErr NodeErr
	return errors.As(err, &nodeErr) && nodeErr.errType == t
}

// IsFatal reports whether err should stop the node. Anything that is not a
// TransientErr is fatal, including errors that are not NodeErrs at all.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !IsNodeErr(err, TransientErr)
}
