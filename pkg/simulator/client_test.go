package simulator

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startFakeServer accepts one connection and replies to every request with
// the Response that respond returns for it.
func startFakeServer(t *testing.T, respond func(Request) Response) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				return
			}
			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				return
			}

			resp := respond(req)
			encoded, _ := json.Marshal(resp)
			encoded = append(encoded, '\n')
			if _, err := conn.Write(encoded); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func TestClientCallRoundTrip(t *testing.T) {
	addr := startFakeServer(t, func(req Request) Response {
		assert.Equal(t, "compute_result", req.Method)
		return Response{Result: "101"}
	})

	client, err := NewClient(addr, time.Second, time.Second)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Call(Request{Method: "compute_result", Parameters: []interface{}{1}})
	require.NoError(t, err)
	assert.Equal(t, "101", resp.Result)
}

func TestClientCallError(t *testing.T) {
	addr := startFakeServer(t, func(req Request) Response {
		return Response{Error: true}
	})

	client, err := NewClient(addr, time.Second, time.Second)
	require.NoError(t, err)
	defer client.Close()

	_, err = ComputeResult(client, 1, Unit{Dialect: "chp", Description: "X 0", Delimiter: '\n'})
	assert.Error(t, err)
}

func TestClientReceiveTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	client, err := NewClient(ln.Addr().String(), time.Millisecond, 50*time.Millisecond)
	require.NoError(t, err)
	defer client.Close()

	go func() {
		conn, _ := ln.Accept()
		if conn != nil {
			defer conn.Close()
			time.Sleep(200 * time.Millisecond)
		}
	}()

	_, err = client.Call(Request{Method: "get_uniform_integer", Parameters: []interface{}{0, 1}})
	assert.Error(t, err)
}
