// Command eldispachod is the dispatcher daemon: it parses a topology,
// starts the processor and its simulator connections, and serves the
// ingress/egress RPC surface until signaled to stop.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ornl-qci/eldispacho/pkg/app"
	"github.com/ornl-qci/eldispacho/pkg/log"
	"github.com/ornl-qci/eldispacho/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

var (
	topologyFlag   string
	loggerFlag     bool
	rxEndpointFlag string
	rxThreadsFlag  int
	txEndpointFlag string
	txThreadsFlag  int
	simEndpointFlag string
	simThreadsFlag int
	logLevelFlag   string
	logJSONFlag    bool
	metricsAddrFlag string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(-1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "eldispachod",
	Short:   "eldispacho dispatches RPC requests against a quantum-simulator backend",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVarP(&topologyFlag, "topology", "t", "", "topology document, or a path to one (required)")
	rootCmd.Flags().BoolVarP(&loggerFlag, "logger", "l", false, "enable the diagnostics publisher")
	rootCmd.Flags().StringVar(&rxEndpointFlag, "rs", "", "rx (publish) socket endpoint (required)")
	rootCmd.Flags().IntVar(&rxThreadsFlag, "rt", 1, "rx worker thread count")
	rootCmd.Flags().StringVar(&txEndpointFlag, "ts", "", "tx (request/reply) socket endpoint (required)")
	rootCmd.Flags().IntVar(&txThreadsFlag, "tt", 1, "tx worker thread count")
	rootCmd.Flags().StringVar(&simEndpointFlag, "s", "", "simulator endpoint (required)")
	rootCmd.Flags().IntVar(&simThreadsFlag, "st", 1, "simulator/processor worker thread count")
	rootCmd.Flags().StringVar(&logLevelFlag, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&logJSONFlag, "log-json", false, "output logs as JSON")
	rootCmd.Flags().StringVar(&metricsAddrFlag, "metrics", "", "address to serve Prometheus metrics on, empty disables")

	_ = rootCmd.MarkFlagRequired("topology")
	_ = rootCmd.MarkFlagRequired("rs")
	_ = rootCmd.MarkFlagRequired("ts")
	_ = rootCmd.MarkFlagRequired("s")
}

func run(cmd *cobra.Command, args []string) error {
	log.Init(log.Config{
		Level:      log.Level(logLevelFlag),
		JSONOutput: logJSONFlag,
	})

	cfg := app.Config{
		Topology:           topologyFlag,
		DiagnosticsEnabled: loggerFlag,
		RxEndpoint:         rxEndpointFlag,
		RxThreads:          rxThreadsFlag,
		TxEndpoint:         txEndpointFlag,
		TxThreads:          txThreadsFlag,
		SimEndpoint:        simEndpointFlag,
		SimThreads:         simThreadsFlag,
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	if err := a.Start(cfg); err != nil {
		return err
	}

	if metricsAddrFlag != "" {
		go serveMetrics(metricsAddrFlag)
	}

	log.WithComponent("app").Info().
		Str("tx", cfg.TxEndpoint).
		Str("rx", cfg.RxEndpoint).
		Msg("eldispachod started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.WithComponent("app").Info().Msg("shutting down")
	a.Stop()

	return nil
}

func serveMetrics(addr string) {
	metrics.SetVersion(Version)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithComponent("app").Error().Err(err).Msg("metrics server stopped")
	}
}
