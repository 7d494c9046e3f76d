package diagnostics

import (
	"bytes"
	"strconv"

	"github.com/ornl-qci/eldispacho/pkg/action"
)

// message is one unit of diagnostic output: an action topic, an emission
// time in microseconds, and a caller-supplied payload that is already
// valid JSON. Envelope generation is deferred to generate() so messages
// that are dropped (queue torn down before drain) never pay the
// marshaling cost.
type message struct {
	topic action.Action
	time  int64
	data  []byte
}

// generate builds the wire envelope: {"topic":"<name>","time":<micros>,"data":<raw>}.
// data is spliced in unescaped, matching the original's raw byte-buffer
// construction rather than round-tripping through a JSON encoder.
func (m *message) generate() []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"topic":"`)
	buf.WriteString(m.topic.String())
	buf.WriteString(`","time":`)
	buf.WriteString(strconv.FormatInt(m.time, 10))
	buf.WriteString(`,"data":`)
	if len(m.data) == 0 {
		buf.WriteString("null")
	} else {
		buf.Write(m.data)
	}
	buf.WriteString(`}`)
	return buf.Bytes()
}
