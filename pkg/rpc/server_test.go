package rpc

import (
	"bufio"
	"encoding/json"
	"math/bits"
	"net"
	"testing"
	"time"

	"github.com/ornl-qci/eldispacho/pkg/clock"
	"github.com/ornl-qci/eldispacho/pkg/diagnostics"
	"github.com/ornl-qci/eldispacho/pkg/processor"
	"github.com/ornl-qci/eldispacho/pkg/topology"
	"github.com/ornl-qci/eldispacho/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireNodeID encodes a node id the way every request's parameter 0 is
// documented to arrive: a big-endian 32-bit unsigned integer, which
// paramNodeID then un-swaps back to the host-order id via ntohl.
func wireNodeID(id uint32) uint32 {
	return bits.ReverseBytes32(id)
}

func newTestServer(t *testing.T) (*Server, *processor.Processor, *topology.System) {
	t.Helper()

	sys, err := topology.Parse([]byte(`{
		"nodes": [
			{"id": 1, "model": "client"},
			{"id": 2, "model": "client"}
		],
		"connections": [{"endpoints": [1, 2]}]
	}`))
	require.NoError(t, err)

	proc := processor.New(diagnostics.NewDummy(), sys, clock.NewSimulationClock(), "127.0.0.1:0")
	broker := transport.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	s := NewServer(proc, diagnostics.NewDummy(), broker)
	require.NoError(t, s.Listen("127.0.0.1:0", "127.0.0.1:0", 1, 2))
	t.Cleanup(s.Stop)

	return s, proc, sys
}

func rawRequest(t *testing.T, method string, params ...interface{}) []byte {
	t.Helper()
	encodedParams := make([]json.RawMessage, len(params))
	for i, p := range params {
		b, err := json.Marshal(p)
		require.NoError(t, err)
		encodedParams[i] = b
	}
	raw, err := json.Marshal(Request{Method: method, Parameters: encodedParams})
	require.NoError(t, err)
	return raw
}

func TestSubmitConfigureNodeQueuesWork(t *testing.T) {
	s, proc, _ := newTestServer(t)

	raw := rawRequest(t, "configure_node", wireNodeID(2), "receiver", "chp", "M 0", "\n")
	resp, err := s.Submit(raw, SubmitTimeout)
	require.NoError(t, err)
	assert.Equal(t, true, resp.Result)

	deadline := time.After(time.Second)
	for proc.Incoming().Size() == 0 {
		select {
		case <-deadline:
			t.Fatal("item never reached incoming buffer")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestSubmitUnknownMethod(t *testing.T) {
	s, _, _ := newTestServer(t)

	raw := rawRequest(t, "not_a_method")
	_, err := s.Submit(raw, SubmitTimeout)
	assert.Error(t, err)
}

func TestSubmitConfigureQswitch(t *testing.T) {
	sys, err := topology.Parse([]byte(`{
		"nodes": [
			{"id": 1, "model": "client"},
			{"id": 2, "model": "client"},
			{"id": 3, "model": "client"},
			{"id": 4, "model": "circulator_switch", "portCount": 3, "ports": [1, 2, 3]}
		],
		"connections": []
	}`))
	require.NoError(t, err)

	proc := processor.New(diagnostics.NewDummy(), sys, clock.NewSimulationClock(), "127.0.0.1:0")
	broker := transport.NewBroker()
	broker.Start()
	defer broker.Stop()

	s := NewServer(proc, diagnostics.NewDummy(), broker)
	require.NoError(t, s.Listen("127.0.0.1:0", "127.0.0.1:0", 1, 1))
	defer s.Stop()

	raw := rawRequest(t, "configure_qswitch", wireNodeID(4), "cw")
	resp, err := s.Submit(raw, SubmitTimeout)
	require.NoError(t, err)
	assert.Equal(t, true, resp.Result)
}

func TestRxWorkerPublishesOutgoingResults(t *testing.T) {
	s, proc, _ := newTestServer(t)

	sub := func() transport.Subscriber {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.broker.Subscribe(8)
	}()

	proc.Outgoing().Push(processor.PushMessage{NodeID: 2, Result: 5, Timestamp: 1})

	select {
	case f := <-sub:
		assert.Equal(t, "2", f.Topic)
		assert.Contains(t, string(f.Body), `"result":5`)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for egress publication")
	}
}

func TestTxNetworkRoundTrip(t *testing.T) {
	s, _, _ := newTestServer(t)

	conn, err := net.Dial("tcp", s.txListener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	raw := rawRequest(t, "configure_node", wireNodeID(2), "receiver", "chp", "M 0", "\n")
	_, err = conn.Write(append(raw, '\n'))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	assert.Equal(t, true, resp.Result)
}

func TestRxNetworkSubscription(t *testing.T) {
	s, proc, _ := newTestServer(t)

	conn, err := net.Dial("tcp", s.rxListener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let the accept loop register the subscriber
	proc.Outgoing().Push(processor.PushMessage{NodeID: 1, Result: 7, Timestamp: 1})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var frame transport.Frame
	require.NoError(t, json.Unmarshal(line, &frame))
	assert.Equal(t, "1", frame.Topic)
}
