package simulator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

const (
	// DefaultSendTimeout is applied to the simulator request round-trip
	// unless overridden.
	DefaultSendTimeout = 200 * time.Millisecond
	// DefaultReceiveTimeout of zero means indefinite, matching the
	// original's "no timeout" default on the receive side.
	DefaultReceiveTimeout = 0
)

// Request is the wire envelope sent to the simulator: a method name plus a
// positional parameter list.
type Request struct {
	Method     string        `json:"method"`
	Parameters []interface{} `json:"parameters"`
}

// Response is the wire envelope received from the simulator.
type Response struct {
	Result interface{} `json:"result"`
	Error  bool        `json:"error,omitempty"`
}

// Client is a request/reply peer connected to the simulator backend. One
// Client is bound to exactly one compute worker for the worker's lifetime.
type Client struct {
	endpoint       string
	sendTimeout    time.Duration
	receiveTimeout time.Duration

	conn   net.Conn
	reader *bufio.Reader
}

// NewClient dials endpoint and configures send/receive timeouts. A
// sendTimeout or receiveTimeout of zero means no deadline.
func NewClient(endpoint string, sendTimeout, receiveTimeout time.Duration) (*Client, error) {
	conn, err := net.Dial("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("simulator: dial %s: %w", endpoint, err)
	}

	return &Client{
		endpoint:       endpoint,
		sendTimeout:    sendTimeout,
		receiveTimeout: receiveTimeout,
		conn:           conn,
		reader:         bufio.NewReader(conn),
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends req and decodes the simulator's reply. A timeout on either
// side of the round-trip surfaces as a transport error; there is no
// automatic retry.
func (c *Client) Call(req Request) (Response, error) {
	if c.sendTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.sendTimeout)); err != nil {
			return Response{}, fmt.Errorf("simulator: set write deadline: %w", err)
		}
	}

	encoded, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("simulator: encode request: %w", err)
	}
	encoded = append(encoded, '\n')

	if _, err := c.conn.Write(encoded); err != nil {
		return Response{}, fmt.Errorf("simulator: send request: %w", err)
	}

	if c.receiveTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.receiveTimeout)); err != nil {
			return Response{}, fmt.Errorf("simulator: set read deadline: %w", err)
		}
	} else {
		if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
			return Response{}, fmt.Errorf("simulator: clear read deadline: %w", err)
		}
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("simulator: receive response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("simulator: decode response: %w", err)
	}

	return resp, nil
}
