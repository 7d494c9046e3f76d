// Package processor is the dispatch core: it drains interpreted requests
// from an incoming buffer, applies configuration changes or traverses the
// topology and calls out to the simulator for a transmission, and pushes
// results onto an outgoing buffer for the egress publisher to pick up.
package processor

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ornl-qci/eldispacho/pkg/action"
	"github.com/ornl-qci/eldispacho/pkg/clock"
	"github.com/ornl-qci/eldispacho/pkg/diagnostics"
	"github.com/ornl-qci/eldispacho/pkg/log"
	"github.com/ornl-qci/eldispacho/pkg/metrics"
	"github.com/ornl-qci/eldispacho/pkg/queue"
	"github.com/ornl-qci/eldispacho/pkg/simulator"
	"github.com/ornl-qci/eldispacho/pkg/topology"
)

const (
	// MaxThreads bounds the worker pool, matching PROCESSOR_MAX_THREADS.
	MaxThreads = 4
	// WorkWait is how long a worker waits for the incoming buffer to
	// cross its push-wait threshold before draining whatever it has.
	WorkWait = 15 * time.Millisecond
	// chpState is the default simulator state type created at startup,
	// used by every compute_result call until the system supports more
	// than one concurrently.
	chpState = "chp_state"
	// systemID is the one simulator system this dispatcher drives.
	systemID = 1
)

// Processor owns the topology, the simulator connection pool, and the
// work buffers that connect the ingress surface to the simulator.
type Processor struct {
	diag *diagnostics.Publisher
	sys  *topology.System
	sim  *clock.SimulationClock

	simEndpoint string
	simPool     *simulator.Pool

	incoming *queue.Buffer[InterpretedRequest]
	outgoing *queue.Buffer[PushMessage]

	mu          sync.Mutex
	running     bool
	threadCount int
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// New constructs a Processor bound to sys, publishing diagnostics through
// diag, dialing the simulator at simEndpoint once per worker thread.
func New(diag *diagnostics.Publisher, sys *topology.System, sim *clock.SimulationClock, simEndpoint string) *Processor {
	incoming := queue.New[InterpretedRequest]()
	incoming.SetPushWaitThreshold(1)

	outgoing := queue.New[PushMessage]()
	outgoing.SetPushWaitThreshold(1)

	return &Processor{
		diag:        diag,
		sys:         sys,
		sim:         sim,
		simEndpoint: simEndpoint,
		simPool:     simulator.NewPool(),
		incoming:    incoming,
		outgoing:    outgoing,
	}
}

// Incoming returns the buffer the ingress surface pushes work onto.
func (p *Processor) Incoming() *queue.Buffer[InterpretedRequest] { return p.incoming }

// Outgoing returns the buffer the egress surface drains results from.
func (p *Processor) Outgoing() *queue.Buffer[PushMessage] { return p.outgoing }

// Preprocess validates that fromID names a topology node and builds the
// work item the worker pool will later act on. The simulation clock
// stamps the request at the moment it is accepted, not when it is
// eventually serviced.
func (p *Processor) Preprocess(t action.Action, fromID uint64, component string, params [3]string) (InterpretedRequest, error) {
	if _, err := p.sys.FindNode(fromID); err != nil {
		return InterpretedRequest{}, err
	}
	return InterpretedRequest{
		Type:      t,
		FromID:    fromID,
		Component: component,
		Params:    params,
		TxTime:    p.sim.Now(),
	}, nil
}

// Start launches threadCount worker goroutines, each with its own
// simulator connection, and creates the default simulator system.
func (p *Processor) Start(threadCount int) error {
	if threadCount > MaxThreads {
		return fmt.Errorf("processor: thread count %d exceeds max %d", threadCount, MaxThreads)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	if err := p.simPool.Resize(threadCount, p.simEndpoint, simulator.DefaultSendTimeout, simulator.DefaultReceiveTimeout); err != nil {
		return fmt.Errorf("processor: sizing simulator pool: %w", err)
	}
	metrics.SimulatorPoolSize.Set(float64(threadCount))

	p.stopCh = make(chan struct{})
	p.threadCount = threadCount

	for i := 0; i < threadCount; i++ {
		client, err := p.simPool.Get(i)
		if err != nil {
			return err
		}
		p.wg.Add(1)
		go p.work(i, client)
	}

	p.running = true

	if threadCount > 0 {
		first, err := p.simPool.Get(0)
		if err != nil {
			return err
		}
		if _, err := simulator.CreateSystem(first, chpState); err != nil {
			log.WithComponent("processor").Error().Err(err).Msg("failed to create simulator system")
			return err
		}
	}

	return nil
}

// Stop halts every worker and waits for them to return.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *Processor) work(id int, client *simulator.Client) {
	defer p.wg.Done()

	emptyCount := 0
	const emptyCountThreshold = 2

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		hit := p.incoming.WaitUntilThreshold(WorkWait)
		if !hit {
			emptyCount++
			if emptyCount < emptyCountThreshold {
				continue
			}
		}
		emptyCount = 0

		for p.incoming.Size() != 0 {
			item, ok := p.incoming.Pop()
			if !ok {
				break
			}
			p.dispatch(item, client)
		}
	}
}

func (p *Processor) dispatch(item InterpretedRequest, client *simulator.Client) {
	switch item.Type {
	case action.ConfigureNode, action.ConfigureQswitch:
		p.dispatchConfigure(item)
	case action.Tx:
		p.dispatchTx(item, client)
	default:
		log.WithComponent("processor").Warn().Str("action", item.Type.String()).Msg("unknown action")
	}
}

func (p *Processor) dispatchConfigure(item InterpretedRequest) {
	node, err := p.sys.FindNode(item.FromID)
	if err != nil {
		log.WithNodeID(item.FromID).Error().Err(err).Msg("configure: node not found")
		return
	}

	switch node.Kind() {
	case topology.KindEndpoint:
		switch item.Component {
		case "receiver":
			delimiter := byte('\n')
			if d := item.Param(2); d != "" {
				delimiter = d[0]
			}
			unit, err := simulator.NewUnit(item.Param(0), item.Param(1), delimiter)
			if err != nil {
				log.WithNodeID(item.FromID).Error().Err(err).Msg("configure: building receiver unit")
				return
			}
			if err := node.SetReceiver(unit); err != nil {
				log.WithNodeID(item.FromID).Error().Err(err).Msg("configure: setting receiver")
			}
		case "transmitter":
			// Transmitters carry no independent configuration; the tx
			// path reads the circuit straight out of the request.
		default:
			log.WithNodeID(item.FromID).Warn().Str("component", item.Component).Msg("configure: unknown component")
		}
	case topology.KindSwitch:
		if item.Component != "routing" {
			log.WithNodeID(item.FromID).Warn().Str("component", item.Component).Msg("configure: unknown component")
			return
		}
		if err := node.SetStateFromString(item.Param(1)); err != nil {
			log.WithNodeID(item.FromID).Error().Err(err).Msg("configure: setting switch state")
		}
	case topology.KindNull:
		// Null endpoints have nothing to configure.
	}
}

func (p *Processor) dispatchTx(item InterpretedRequest, client *simulator.Client) {
	endpointID, err := p.sys.Traverse(item.FromID)
	if err != nil {
		log.WithNodeID(item.FromID).Error().Err(err).Msg("tx: traversal failed")
		metrics.TxDroppedTotal.WithLabelValues("trap").Inc()
		return
	}

	endNode, err := p.sys.FindNode(endpointID)
	if err != nil {
		log.WithNodeID(endpointID).Error().Err(err).Msg("tx: resolved endpoint missing")
		return
	}
	if endNode.Kind() == topology.KindNull {
		metrics.TxDroppedTotal.WithLabelValues("null_endpoint").Inc()
		return
	}

	receiver, ok := endNode.Receiver()
	if !ok || !receiver.IsConfigured() {
		log.WithNodeID(endpointID).Warn().Msg("tx: no detector configured, dropping")
		metrics.TxDroppedTotal.WithLabelValues("no_detector").Inc()
		return
	}

	circuit := item.Param(1) + "\n" + receiver.Description
	unit := simulator.Unit{
		Dialect:     receiver.Dialect,
		Description: circuit,
		Delimiter:   receiver.Delimiter,
	}

	if encoded, err := json.Marshal(circuit); err == nil {
		p.diag.Put(action.SimulatorRequest, encoded)
	}

	timer := metrics.NewTimer()
	measurement, err := simulator.ComputeResult(client, systemID, unit)
	timer.ObserveDurationVec(metrics.SimulatorCallDuration, "compute_result")
	if err != nil {
		log.WithNodeID(endpointID).Error().Err(err).Msg("tx: compute_result failed")
		return
	}
	if encoded, err := json.Marshal(measurement); err == nil {
		p.diag.Put(action.SimulatorResponse, encoded)
	}

	result, err := parseBinary(measurement)
	if err != nil {
		log.WithNodeID(endpointID).Error().Err(err).Str("measurement", measurement).Msg("tx: unparseable measurement")
		return
	}

	p.outgoing.Push(PushMessage{NodeID: endNode.ID(), Result: result, Timestamp: item.TxTime})
}

// parseBinary interprets a simulator measurement bitstring ("101") as an
// unsigned integer, mirroring strtol(measurement, nullptr, 2).
func parseBinary(s string) (uint64, error) {
	var v uint64
	for _, r := range s {
		switch r {
		case '0':
			v <<= 1
		case '1':
			v = v<<1 | 1
		default:
			return 0, fmt.Errorf("processor: invalid binary digit %q", r)
		}
	}
	return v, nil
}
