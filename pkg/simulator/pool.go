package simulator

import (
	"fmt"
	"time"
)

// MaxPoolSize bounds the number of simulator clients a single processor may
// hold, one per compute worker.
const MaxPoolSize = 4

// Pool is a fixed-capacity collection of simulator clients, one per compute
// worker. Workers bind their client for the worker's entire lifetime.
type Pool struct {
	clients []*Client
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{clients: make([]*Client, 0, MaxPoolSize)}
}

// Add dials endpoint and appends a new client to the pool, passing
// sendTimeout/recvTimeout to NewClient unchanged (zero means no deadline;
// callers wanting the defaults pass DefaultSendTimeout /
// DefaultReceiveTimeout).
func (p *Pool) Add(endpoint string, sendTimeout, recvTimeout time.Duration) error {
	if len(p.clients) >= MaxPoolSize {
		return fmt.Errorf("simulator: pool already at capacity %d", MaxPoolSize)
	}

	client, err := NewClient(endpoint, sendTimeout, recvTimeout)
	if err != nil {
		return err
	}

	p.clients = append(p.clients, client)
	return nil
}

// Pop removes and closes the most recently added client.
func (p *Pool) Pop() error {
	if len(p.clients) == 0 {
		return fmt.Errorf("simulator: pool is empty")
	}

	last := p.clients[len(p.clients)-1]
	p.clients = p.clients[:len(p.clients)-1]
	return last.Close()
}

// Get returns the client at index i.
func (p *Pool) Get(i int) (*Client, error) {
	if i < 0 || i >= len(p.clients) {
		return nil, fmt.Errorf("simulator: pool index %d out of range (size %d)", i, len(p.clients))
	}
	return p.clients[i], nil
}

// Size returns the current number of clients in the pool.
func (p *Pool) Size() int {
	return len(p.clients)
}

// Resize grows or shrinks the pool to exactly n clients, dialing endpoint
// for new entries and closing surplus ones.
func (p *Pool) Resize(n int, endpoint string, sendTimeout, recvTimeout time.Duration) error {
	if n > MaxPoolSize {
		return fmt.Errorf("simulator: requested pool size %d exceeds max %d", n, MaxPoolSize)
	}

	for p.Size() < n {
		if err := p.Add(endpoint, sendTimeout, recvTimeout); err != nil {
			return err
		}
	}
	for p.Size() > n {
		if err := p.Pop(); err != nil {
			return err
		}
	}
	return nil
}
