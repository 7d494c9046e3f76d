package processor

import "github.com/ornl-qci/eldispacho/pkg/action"

// InterpretedRequest is one unit of work the dispatch workers consume: an
// action tag, the topology node it originated from, a component selector
// (e.g. "receiver" for configure_node targeting an endpoint, "routing" for
// a switch), and up to three string parameters (dialect, circuit, line
// delimiter) carried generically so a single queue item type serves every
// action kind.
type InterpretedRequest struct {
	Type      action.Action
	FromID    uint64
	Component string
	Params    [3]string
	TxTime    uint64
}

// Param returns the parameter at index, or "" if out of range.
func (r InterpretedRequest) Param(index int) string {
	if index < 0 || index >= len(r.Params) {
		return ""
	}
	return r.Params[index]
}

// PushMessage is an outgoing result destined for the egress publisher,
// keyed by the node that produced it so subscribers can demultiplex by
// topic the way the original keyed push messages by a raw topic integer.
type PushMessage struct {
	NodeID    uint64
	Result    uint64
	Timestamp uint64
}

// JSON renders the result body: {"result":<value>}. Kept minimal and
// hand-built rather than going through encoding/json for a single scalar
// field, matching the original's direct buffer construction.
func (p PushMessage) JSON() []byte {
	return []byte(`{"result":` + uitoa(p.Result) + `}`)
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
