package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/netdev-tools/ctbench/internal/bench"
	"github.com/netdev-tools/ctbench/internal/conntrack"
	"github.com/netdev-tools/ctbench/internal/harness"
	"github.com/netdev-tools/ctbench/internal/logging"
	"github.com/netdev-tools/ctbench/internal/replay"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string
	// Match is a glob pattern filtering replay output by tracking state.
	Match string
}

var rootCmd = &cobra.Command{
	Use:           "ctbench",
	Short:         "Benchmark and replay harness for the connection-tracking table",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark <n_threads> <n_pkts> <batch_size> [change_connection]",
	Short: "Run concurrent workers against one shared tracking table and time the steady state",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(_ *cobra.Command, args []string) error {
		return runBenchmark(cmd, args)
	},
}

var pcapCmd = &cobra.Command{
	Use:   "pcap <file> [batch_size]",
	Short: "Replay a capture file against the tracking table and print each packet's state",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		return runPcap(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to the configuration file")
	pcapCmd.Flags().StringVar(&cmd.Match, "match", "", "Only print packets whose tracking state matches the glob pattern")
	rootCmd.AddCommand(benchmarkCmd, pcapCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func setup(cmd Cmd) (*harness.Config, *zap.SugaredLogger, error) {
	cfg, err := harness.LoadConfig(cmd.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}

func runBenchmark(cmd Cmd, args []string) error {
	params, err := parseBenchmarkArgs(args)
	if err != nil {
		return err
	}

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	c, err := bench.NewCoordinator(
		params,
		bench.WithLog(log),
		bench.WithTableConfig(cfg.Conntrack),
	)
	if err != nil {
		return err
	}

	res, err := c.Run(context.Background())
	if err != nil {
		return fmt.Errorf("failed to run benchmark: %w", err)
	}

	fmt.Printf("conntrack:  %5d ms\n", res.Elapsed.Milliseconds())
	return nil
}

func parseBenchmarkArgs(args []string) (bench.Params, error) {
	var params bench.Params

	nThreads, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return params, fmt.Errorf("invalid n_threads %q: %w", args[0], err)
	}
	nPkts, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return params, fmt.Errorf("invalid n_pkts %q: %w", args[1], err)
	}
	batchSize, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		return params, fmt.Errorf("invalid batch_size %q: %w", args[2], err)
	}

	params = bench.Params{
		NumThreads:    int(nThreads),
		PktsPerThread: int(nPkts),
		BatchSize:     int(batchSize),
	}

	if len(args) > 3 {
		change, err := strconv.ParseUint(args[3], 0, 32)
		if err != nil {
			return params, fmt.Errorf("invalid change_connection %q: %w", args[3], err)
		}
		params.ChangeConnection = change != 0
	}

	return params, params.Validate()
}

func runPcap(cmd Cmd, args []string) error {
	batchSize := 1
	if len(args) > 1 {
		v, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid batch_size %q: %w", args[1], err)
		}
		batchSize = int(v)
	}

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := []replay.DriverOption{
		replay.WithConfig(cfg.Replay),
		replay.WithBatchSize(batchSize),
		replay.WithLog(log),
	}
	if cmd.Match != "" {
		g, err := glob.Compile(cmd.Match)
		if err != nil {
			return fmt.Errorf("invalid match pattern %q: %w", cmd.Match, err)
		}
		opts = append(opts, replay.WithMatch(g))
	}

	table := conntrack.New(cfg.Conntrack, log)
	defer table.Close()

	d, err := replay.NewDriver(table, opts...)
	if err != nil {
		return err
	}

	return d.Replay(args[0])
}
