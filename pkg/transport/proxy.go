// Package transport provides the in-process analogues of the steerable
// proxy and publish/subscribe broker that, in the original design, sit on
// top of a messaging library's router/dealer and pub/sub sockets. This
// system only requires in-process transport, so both are implemented with
// channels and goroutines rather than any wire protocol; the broker fans
// frames out to many independent listeners through a buffered
// per-subscriber channel and drops a frame for a subscriber whose channel
// is full.
package transport

// SteerableProxy relays values from In to Out, decoupling producers from
// consumers the way a router-to-dealer proxy decouples client connections
// from worker threads. It is torn down by Terminate, which corresponds to
// the original's "TERMINATE" control-socket message: Run returns as soon as
// it is blocked, and a value it has taken from In but not yet handed to Out
// is dropped.
type SteerableProxy[T any] struct {
	in      chan T
	out     chan T
	control chan struct{}
}

// NewSteerableProxy returns a proxy with the given channel buffer depth.
func NewSteerableProxy[T any](buffer int) *SteerableProxy[T] {
	return &SteerableProxy[T]{
		in:      make(chan T, buffer),
		out:     make(chan T, buffer),
		control: make(chan struct{}),
	}
}

// In is the producer-facing side of the proxy.
func (p *SteerableProxy[T]) In() chan<- T { return p.in }

// Out is the consumer-facing side of the proxy; worker goroutines range
// over it directly, which gives the same fan-out a dealer socket gives to
// its connected replies.
func (p *SteerableProxy[T]) Out() <-chan T { return p.out }

// Run relays values from In to Out until Terminate is called. It must run
// on its own goroutine.
func (p *SteerableProxy[T]) Run() {
	for {
		select {
		case v := <-p.in:
			select {
			case p.out <- v:
			case <-p.control:
				return
			}
		case <-p.control:
			return
		}
	}
}

// Terminate signals Run to stop. Safe to call once.
func (p *SteerableProxy[T]) Terminate() {
	close(p.control)
}
