package runtime

import (
	"io"
	"sync"

	"github.com/mosaicnetworks/glomers/src/common"
	"github.com/mosaicnetworks/glomers/src/proto"
	"github.com/mosaicnetworks/glomers/src/telemetry"
)

// Output serializes messages onto a writer, one line per message.
type Output struct {
	sync.Mutex

	w    io.Writer
	node string
}

// NewOutput ...
func NewOutput(w io.Writer) *Output {
	return &Output{w: w}
}

// Send encodes m and writes it, followed by a newline, in a single Write call.
// Encoding and write failures are SerializationErrs.
func (o *Output) Send(m *proto.Message) error {
	line, err := proto.Encode(m)
	if err != nil {
		return common.NewNodeErr(common.SerializationErr, "encode "+m.Type(), err)
	}
	line = append(line, '\n')

	o.Lock()
	defer o.Unlock()

	if _, err := o.w.Write(line); err != nil {
		return common.NewNodeErr(common.SerializationErr, "write "+m.Type(), err)
	}

	telemetry.MessagesSent.WithLabelValues(o.node, m.Type()).Inc()

	return nil
}

func (o *Output) setNode(id string) {
	o.Lock()
	defer o.Unlock()
	o.node = id
}
