package metrics

import "time"

// QueueSizer reports the current depth of a work buffer. It is satisfied
// by *queue.Buffer[T] for any T without this package needing to import
// pkg/queue or pkg/processor directly.
type QueueSizer interface {
	Size() int
}

// Collector periodically samples queue depths and node counts into the
// gauges above, since those are point-in-time values rather than events
// that can be pushed as they happen. It depends only on narrow interfaces
// so pkg/processor and pkg/topology can in turn depend on pkg/metrics
// without an import cycle.
type Collector struct {
	incoming  QueueSizer
	outgoing  QueueSizer
	walkKinds func(fn func(kind string))
	stopCh    chan struct{}
}

// NewCollector returns a Collector sampling incoming/outgoing queue depth
// and invoking walkKinds once per tick to tally node counts by kind name
// ("endpoint", "switch", "null").
func NewCollector(incoming, outgoing QueueSizer, walkKinds func(fn func(kind string))) *Collector {
	return &Collector{
		incoming:  incoming,
		outgoing:  outgoing,
		walkKinds: walkKinds,
		stopCh:    make(chan struct{}),
	}
}

// Start samples once immediately and then on a 15-second interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts sampling.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	IncomingQueueDepth.Set(float64(c.incoming.Size()))
	OutgoingQueueDepth.Set(float64(c.outgoing.Size()))

	counts := map[string]int{}
	c.walkKinds(func(kind string) {
		counts[kind]++
	})
	NodesTotal.WithLabelValues("endpoint").Set(float64(counts["endpoint"]))
	NodesTotal.WithLabelValues("switch").Set(float64(counts["switch"]))
	NodesTotal.WithLabelValues("null").Set(float64(counts["null"]))
}
