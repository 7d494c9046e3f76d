// Package diagnostics publishes structured trace data about every node
// configuration, tx/rx, and simulator round trip the processor performs.
// A Publisher is either realized (backed by a transport.Broker that
// fans envelopes out under a fixed topic) or a dummy no-op, matching the
// original's two-constructor logger: a real eldispacho deployment always
// has somewhere to publish to, but tests and throwaway runs should not
// need to wire one up.
package diagnostics

import (
	"sync"
	"time"

	"github.com/ornl-qci/eldispacho/pkg/action"
	"github.com/ornl-qci/eldispacho/pkg/clock"
	"github.com/ornl-qci/eldispacho/pkg/log"
	"github.com/ornl-qci/eldispacho/pkg/metrics"
	"github.com/ornl-qci/eldispacho/pkg/queue"
	"github.com/ornl-qci/eldispacho/pkg/transport"
)

const (
	// SendWaitFor is how long the worker waits for the queue to cross
	// SendThreshold before draining whatever it has anyway.
	SendWaitFor = 200 * time.Millisecond
	// SendThreshold is the queue depth that triggers an immediate drain.
	SendThreshold = 256
	// SendFailThreshold is the number of consecutive empty drains after
	// which the worker logs, at debug level, that there is no
	// diagnostics traffic.
	SendFailThreshold = 5
	// Topic is the broker topic every diagnostic envelope is published
	// under; subscribers select on content, not topic, since all
	// diagnostic output shares one channel.
	Topic = "diagnostics"
)

// Publisher batches and publishes diagnostic messages. The zero value is
// not usable; construct with New or NewDummy.
type Publisher struct {
	realized bool
	broker   *transport.Broker
	buf      *queue.Buffer[*message]
	clk      *clock.WallClock
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New returns a realized Publisher that publishes onto broker.
func New(broker *transport.Broker) *Publisher {
	buf := queue.New[*message]()
	buf.SetPushWaitThreshold(SendThreshold)
	return &Publisher{
		realized: true,
		broker:   broker,
		buf:      buf,
		clk:      clock.NewWallClock(),
		stopCh:   make(chan struct{}),
	}
}

// NewDummy returns a Publisher whose Put is a no-op, for callers that
// were not configured with a logging endpoint.
func NewDummy() *Publisher {
	return &Publisher{realized: false}
}

// Start launches the drain worker. No-op on a dummy Publisher.
func (p *Publisher) Start() {
	if !p.realized {
		return
	}
	p.wg.Add(1)
	go p.work()
}

// Stop halts the drain worker and flushes whatever remains queued.
// No-op on a dummy Publisher.
func (p *Publisher) Stop() {
	if !p.realized {
		return
	}
	close(p.stopCh)
	p.wg.Wait()
	p.flush(p.buf.Drain())
}

// Put enqueues a diagnostic message. data must already be valid JSON (or
// empty). Put never blocks the caller on publication; it only appends to
// the internal buffer.
func (p *Publisher) Put(topic action.Action, data []byte) {
	if !p.realized {
		return
	}
	p.buf.Push(&message{
		topic: topic,
		time:  int64(p.clk.Now()),
		data:  data,
	})
}

func (p *Publisher) work() {
	defer p.wg.Done()
	failCount := 0
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		hit := p.buf.WaitUntilThreshold(SendWaitFor)
		msgs := p.buf.Drain()
		if len(msgs) == 0 {
			failCount++
			if failCount == SendFailThreshold {
				log.WithComponent("diagnostics").Debug().Msg("no diagnostics traffic")
			}
			continue
		}
		failCount = 0
		_ = hit
		p.flush(msgs)
	}
}

func (p *Publisher) flush(msgs []*message) {
	for _, m := range msgs {
		p.broker.Publish(transport.Frame{
			Topic: Topic,
			Body:  m.generate(),
		})
		metrics.DiagnosticsPublishedTotal.Inc()
	}
}
