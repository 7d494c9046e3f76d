package processor

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/ornl-qci/eldispacho/pkg/action"
	"github.com/ornl-qci/eldispacho/pkg/clock"
	"github.com/ornl-qci/eldispacho/pkg/diagnostics"
	"github.com/ornl-qci/eldispacho/pkg/simulator"
	"github.com/ornl-qci/eldispacho/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFakeSimulator(t *testing.T, respond func(simulator.Request) simulator.Response) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadBytes('\n')
					if err != nil {
						return
					}
					var req simulator.Request
					if err := json.Unmarshal(line, &req); err != nil {
						return
					}
					encoded, _ := json.Marshal(respond(req))
					encoded = append(encoded, '\n')
					if _, err := conn.Write(encoded); err != nil {
						return
					}
				}
			}()
		}
	}()

	return ln.Addr().String()
}

func twoClientSystem(t *testing.T) *topology.System {
	t.Helper()
	sys, err := topology.Parse([]byte(`{
		"nodes": [
			{"id": 1, "model": "client"},
			{"id": 2, "model": "client"}
		],
		"connections": [{"endpoints": [1, 2]}]
	}`))
	require.NoError(t, err)
	return sys
}

func TestPreprocessUnknownNode(t *testing.T) {
	sys := twoClientSystem(t)
	p := New(diagnostics.NewDummy(), sys, clock.NewSimulationClock(), "127.0.0.1:0")

	_, err := p.Preprocess(action.Tx, 99, "", [3]string{})
	assert.Error(t, err)
}

func TestDispatchConfigureReceiver(t *testing.T) {
	sys := twoClientSystem(t)
	p := New(diagnostics.NewDummy(), sys, clock.NewSimulationClock(), "127.0.0.1:0")

	item, err := p.Preprocess(action.ConfigureNode, 2, "receiver", [3]string{"chp", "M 0", "\n"})
	require.NoError(t, err)

	p.dispatchConfigure(item)

	node, err := sys.FindNode(2)
	require.NoError(t, err)
	receiver, ok := node.Receiver()
	require.True(t, ok)
	assert.True(t, receiver.IsConfigured())
	assert.Equal(t, "chp", receiver.Dialect)
}

func TestDispatchConfigureSwitchRouting(t *testing.T) {
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

	p := New(diagnostics.NewDummy(), sys, clock.NewSimulationClock(), "127.0.0.1:0")

	item, err := p.Preprocess(action.ConfigureQswitch, 4, "routing", [3]string{"", "cw", ""})
	require.NoError(t, err)
	p.dispatchConfigure(item)

	endpoint, err := sys.Traverse(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), endpoint)
}

func TestDispatchTxComputesAndPushes(t *testing.T) {
	addr := startFakeSimulator(t, func(req simulator.Request) simulator.Response {
		if req.Method == "create_system" {
			return simulator.Response{Result: float64(1)}
		}
		if req.Method == "compute_result" {
			return simulator.Response{Result: "101"}
		}
		return simulator.Response{Error: true}
	})

	sys := twoClientSystem(t)
	p := New(diagnostics.NewDummy(), sys, clock.NewSimulationClock(), addr)

	receiverItem, err := p.Preprocess(action.ConfigureNode, 2, "receiver", [3]string{"chp", "M 0", "\n"})
	require.NoError(t, err)
	p.dispatchConfigure(receiverItem)

	require.NoError(t, p.Start(1))
	defer p.Stop()

	client, err := p.simPool.Get(0)
	require.NoError(t, err)

	txItem, err := p.Preprocess(action.Tx, 1, "", [3]string{"", "X 0", ""})
	require.NoError(t, err)
	p.dispatchTx(txItem, client)

	deadline := time.After(time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for outgoing push message")
		default:
		}
		if msg, ok := p.Outgoing().Pop(); ok {
			assert.Equal(t, uint64(2), msg.NodeID)
			assert.Equal(t, uint64(5), msg.Result)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDispatchTxDropsWithoutReceiver(t *testing.T) {
	sys := twoClientSystem(t)
	p := New(diagnostics.NewDummy(), sys, clock.NewSimulationClock(), "127.0.0.1:0")

	txItem, err := p.Preprocess(action.Tx, 1, "", [3]string{"", "X 0", ""})
	require.NoError(t, err)
	p.dispatchTx(txItem, nil)

	assert.Equal(t, 0, p.Outgoing().Size())
}

func TestParseBinary(t *testing.T) {
	v, err := parseBinary("101")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)

	_, err = parseBinary("12x")
	assert.Error(t, err)
}
