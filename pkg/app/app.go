// Package app wires the dispatcher's components together in the order
// the original top-level binary did: diagnostics first (everything else
// can log to it), then the topology, then the processor, then the
// client-facing RPC surface. Shutdown runs the reverse order.
package app

import (
	"fmt"
	"os"

	"github.com/ornl-qci/eldispacho/pkg/clock"
	"github.com/ornl-qci/eldispacho/pkg/diagnostics"
	"github.com/ornl-qci/eldispacho/pkg/metrics"
	"github.com/ornl-qci/eldispacho/pkg/processor"
	"github.com/ornl-qci/eldispacho/pkg/rpc"
	"github.com/ornl-qci/eldispacho/pkg/topology"
	"github.com/ornl-qci/eldispacho/pkg/transport"
)

// Config collects every setting the CLI layer gathers before startup.
type Config struct {
	// Topology is either a path to a topology document or the document
	// itself, detected by the presence of a leading '{'.
	Topology string
	// DiagnosticsEnabled turns on the realized diagnostics publisher;
	// otherwise a no-op publisher is used.
	DiagnosticsEnabled bool

	RxEndpoint   string
	RxThreads    int
	TxEndpoint   string
	TxThreads    int
	SimEndpoint  string
	SimThreads   int
}

// App owns every long-lived component and the order they start and stop
// in.
type App struct {
	diag   *diagnostics.Publisher
	broker *transport.Broker
	sys    *topology.System
	proc   *processor.Processor
	rpc    *rpc.Server
	coll   *metrics.Collector
}

// New reads and parses the topology, then constructs every component
// without starting any of them.
func New(cfg Config) (*App, error) {
	doc, err := loadTopology(cfg.Topology)
	if err != nil {
		return nil, fmt.Errorf("app: loading topology: %w", err)
	}

	sys, err := topology.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("app: parsing topology: %w", err)
	}

	broker := transport.NewBroker()

	var diag *diagnostics.Publisher
	if cfg.DiagnosticsEnabled {
		diag = diagnostics.New(broker)
	} else {
		diag = diagnostics.NewDummy()
	}

	proc := processor.New(diag, sys, clock.NewSimulationClock(), cfg.SimEndpoint)
	server := rpc.NewServer(proc, diag, broker)
	coll := metrics.NewCollector(proc.Incoming(), proc.Outgoing(), func(fn func(kind string)) {
		sys.Walk(func(n *topology.Node) {
			fn(n.Kind().String())
		})
	})

	return &App{
		diag:   diag,
		broker: broker,
		sys:    sys,
		proc:   proc,
		rpc:    server,
		coll:   coll,
	}, nil
}

// Start brings components up in dependency order: diagnostics, then the
// processor's simulator workers, then the RPC surface.
func (a *App) Start(cfg Config) error {
	a.broker.Start()
	a.diag.Start()

	if err := a.proc.Start(cfg.SimThreads); err != nil {
		return fmt.Errorf("app: starting processor: %w", err)
	}

	if err := a.rpc.Listen(cfg.RxEndpoint, cfg.TxEndpoint, cfg.RxThreads, cfg.TxThreads); err != nil {
		return fmt.Errorf("app: starting rpc surface: %w", err)
	}

	a.coll.Start()

	metrics.RegisterComponent("diagnostics", true, "")
	metrics.RegisterComponent("processor", true, "")
	metrics.RegisterComponent("rpc", true, "")

	return nil
}

// Stop tears components down in the reverse of Start's order.
func (a *App) Stop() {
	metrics.UpdateComponent("rpc", false, "shutting down")
	metrics.UpdateComponent("processor", false, "shutting down")
	metrics.UpdateComponent("diagnostics", false, "shutting down")

	a.coll.Stop()
	a.rpc.Stop()
	a.proc.Stop()
	a.diag.Stop()
	a.broker.Stop()
}

// loadTopology reads doc either as a literal JSON document (when it
// starts with '{') or as a path to a file containing one.
func loadTopology(doc string) ([]byte, error) {
	trimmed := doc
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t' || trimmed[0] == '\n') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return []byte(doc), nil
	}
	return os.ReadFile(doc)
}
