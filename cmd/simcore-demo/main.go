package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/edgesim/pkg/compute"
	"github.com/cuemby/edgesim/pkg/log"
	"github.com/cuemby/edgesim/pkg/simconfig"
	"github.com/cuemby/edgesim/pkg/simcontrol"
	"github.com/cuemby/edgesim/pkg/simmetrics"
	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/cuemby/edgesim/pkg/simview"
	"github.com/cuemby/edgesim/pkg/strategy"
)

// Version information (set via ldflags during build)
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "simcore-demo",
	Short:   "Drive a scripted request trace through an edge placement strategy",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("simcore-demo version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the built-in receiver/edge/cloud scenario through a strategy",
	Long: `Run replays a small fixed request trace (a handful of sessions for a
single service, originating at one receiver two hops from the cloud) through
one of the five registered strategies, printing each recorded event, the
number of sessions still open, the edge's VM distribution, and whether the
cloud executed any request.

This is a demonstration harness over the reference simview.StaticView and
simcontrol.Recorder doubles, not the production event-queue driver — it
exists to exercise a strategy's wiring end to end without a real topology
or routing backend.`,
	RunE: runScenario,
}

func init() {
	runCmd.Flags().String("config", "", "Path to a strategy YAML config (see pkg/simconfig)")
	runCmd.Flags().String("strategy", "COORDINATED", "Strategy to run when --config is not given")
	runCmd.Flags().Int("requests", 5, "Number of sessions to replay")
	runCmd.Flags().String("metrics-addr", "", "If set, serve Prometheus metrics on this address until the scenario finishes")
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		serveMetrics(addr)
	}

	requests, _ := cmd.Flags().GetInt("requests")

	view, edge, cloud := buildScenarioView()
	ctrl := simcontrol.NewRecorder(view)

	strat, ok := strategy.New(cfg.Strategy, view, ctrl, cfg.ReplacementInterval, cfg.Debug, cfg.P, cfg.NReplacements)
	if !ok {
		return fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}

	fmt.Printf("running %s over %d request(s): receiver=1 edge=2 cloud=3\n", cfg.Strategy, requests)
	for i := 0; i < requests; i++ {
		flowID := simtypes.NewFlowID()
		start := float64(i) * 3
		if err := strat.ProcessEvent(start, 1, 1, 0, flowID, start+10, 0, simtypes.StatusRequest); err != nil {
			return fmt.Errorf("request %d: %w", i, err)
		}
	}

	for _, e := range ctrl.Events() {
		fmt.Printf("t=%-6.2f %-10s node=%d service=%d flow=%s\n", e.Time, e.Kind, e.Node, e.Service, e.FlowID)
	}
	fmt.Printf("\nactive sessions at end: %d\n", ctrl.ActiveSessions())
	fmt.Printf("edge VM distribution: %v\n", edge.ServiceInstances)
	cloudReached := false
	for _, e := range ctrl.Events() {
		if e.Kind == "EXECUTE" && e.Node == cloud.Node {
			cloudReached = true
		}
	}
	fmt.Printf("cloud reached: %v\n", cloudReached)
	return nil
}

func loadConfig(cmd *cobra.Command) (simconfig.StrategyConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return simconfig.Load(path)
	}
	name, _ := cmd.Flags().GetString("strategy")
	return simconfig.Default(name), nil
}

func serveMetrics(addr string) {
	go func() {
		http.Handle("/metrics", simmetrics.Handler())
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Errorf("metrics server error", err)
		}
	}()
	fmt.Printf("metrics endpoint: http://%s/metrics\n", addr)
}

// buildScenarioView wires up a fixed three-node receiver/edge/cloud
// fixture: a receiver at 1, an edge compute spot at
// 2 one hop away, and the cloud origin at 3 one further hop out, serving a
// single one-time-unit service with a generous ten-time-unit deadline.
func buildScenarioView() (*simview.StaticView, *compute.ComputeSpot, *compute.ComputeSpot) {
	services := []simtypes.Service{{ID: 0, ServiceTime: 1, Deadline: 10}}
	edge := compute.New(2, false, 2, 2, 1)
	cloud := compute.New(3, true, 0, 0, 0)

	view := simview.NewStaticView().
		WithServices(services).
		WithContentSource(0, 3).
		WithPath(1, 2, []simtypes.NodeID{1, 2}, 1, 1).
		WithPath(2, 1, []simtypes.NodeID{2, 1}, 1, 1).
		WithPath(1, 3, []simtypes.NodeID{1, 2, 3}, 2, 1).
		WithPath(3, 1, []simtypes.NodeID{3, 2, 1}, 2, 1).
		WithPath(2, 3, []simtypes.NodeID{2, 3}, 1, 1).
		WithPath(3, 2, []simtypes.NodeID{3, 2}, 1, 1).
		WithComputeSpot(2, edge, 0).
		WithComputeSpot(3, cloud, 0).
		WithTopology([]simtypes.NodeID{1}, map[simtypes.NodeID]int{1: 2, 2: 1, 3: 0}, 2)

	return view, edge, cloud
}
