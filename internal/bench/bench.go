package bench

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/netdev-tools/ctbench/internal/conntrack"
	"github.com/netdev-tools/ctbench/internal/packet"
)

// Params describes one benchmark run.
type Params struct {
	// NumThreads is the number of concurrent workers hammering the table.
	NumThreads int
	// PktsPerThread is the packet quota each worker submits.
	PktsPerThread int
	// BatchSize is the number of packets per table submission.
	BatchSize int
	// ChangeConnection makes every packet within a worker's batch target a
	// distinct connection instead of all packets sharing one.
	ChangeConnection bool
}

// Validate checks the parameters, returning a descriptive error on the first
// violation.
func (p Params) Validate() error {
	if p.NumThreads < 1 {
		return fmt.Errorf("n_threads must be at least one")
	}
	if p.PktsPerThread < 0 {
		return fmt.Errorf("n_pkts must not be negative")
	}
	if p.BatchSize < 1 || p.BatchSize > packet.MaxBurst {
		return fmt.Errorf("batch_size must be between 1 and %d", packet.MaxBurst)
	}
	return nil
}

// Result is the outcome of a benchmark run.
type Result struct {
	// Elapsed is the wall-clock duration of the timed window, bounding the
	// interval in which all workers were inside their submission loops.
	Elapsed time.Duration
	// Connections is the number of connections tracked by the table when
	// the run finished.
	Connections int
}

type options struct {
	Log      *zap.SugaredLogger
	TableCfg conntrack.Config
}

func newOptions() *options {
	return &options{
		Log:      zap.NewNop().Sugar(),
		TableCfg: conntrack.DefaultConfig(),
	}
}

// Option configures the benchmark coordinator.
type Option func(*options)

// WithLog sets the logger for the coordinator.
func WithLog(log *zap.SugaredLogger) Option {
	return func(o *options) { o.Log = log }
}

// WithTableConfig sets the configuration of the shared tracking table.
func WithTableConfig(cfg conntrack.Config) Option {
	return func(o *options) { o.TableCfg = cfg }
}

// Coordinator runs a multi-worker benchmark against one shared tracking
// table, timing only the steady-state submission window.
type Coordinator struct {
	params   Params
	tableCfg conntrack.Config
	log      *zap.SugaredLogger
}

// NewCoordinator validates params and creates a coordinator.
func NewCoordinator(params Params, opts ...Option) (*Coordinator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Coordinator{
		params:   params,
		tableCfg: o.TableCfg,
		log:      o.Log,
	}, nil
}

// Run executes one benchmark run to completion.
//
// Each worker builds its own batch first; batch construction and parsing are
// excluded from the timed window. Once every worker and the coordinator reach
// the first barrier the clock starts; it stops when all of them reach the
// second barrier, after every worker has drained its quota. The same batch is
// resubmitted ceil(PktsPerThread/BatchSize) times per worker, so a quota that
// is not a multiple of the batch size rounds up to one more full submission.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	table := conntrack.New(c.tableCfg, c.log)
	defer table.Close()

	barrier := NewBarrier(c.params.NumThreads + 1)

	wg, ctx := errgroup.WithContext(ctx)
	for tid := 0; tid < c.params.NumThreads; tid++ {
		tid := tid
		wg.Go(func() error {
			return c.worker(ctx, table, barrier, uint16(tid))
		})
	}

	// All workers have their batches built once the first rendezvous
	// completes.
	if err := barrier.Await(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to arm workers: %w", waitErr(wg, err))
	}
	start := time.Now()

	if err := barrier.Await(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to complete run: %w", waitErr(wg, err))
	}
	elapsed := time.Since(start)

	if err := wg.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{
		Elapsed:     elapsed,
		Connections: table.Count(),
	}
	c.log.Infow("benchmark complete",
		"threads", c.params.NumThreads,
		"pkts_per_thread", c.params.PktsPerThread,
		"batch_size", c.params.BatchSize,
		"elapsed", res.Elapsed,
		"connections", res.Connections,
	)
	c.logRusage()

	return res, nil
}

func (c *Coordinator) worker(ctx context.Context, table *conntrack.Table, barrier *Barrier, tid uint16) error {
	batch, proto, err := packet.BuildBatch(c.params.BatchSize, c.params.ChangeConnection, tid)
	if err != nil {
		return fmt.Errorf("failed to build batch for worker %d: %w", tid, err)
	}
	defer batch.Free()

	if err := barrier.Await(ctx); err != nil {
		return err
	}
	for submitted := 0; submitted < c.params.PktsPerThread; submitted += c.params.BatchSize {
		table.Submit(batch, proto, true)
	}
	return barrier.Await(ctx)
}

// waitErr prefers the root cause from the worker group over the barrier's
// context error.
func waitErr(wg *errgroup.Group, err error) error {
	if werr := wg.Wait(); werr != nil {
		return werr
	}
	return err
}

func (c *Coordinator) logRusage() {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return
	}
	c.log.Debugw("resource usage",
		"utime", time.Duration(ru.Utime.Nano()),
		"stime", time.Duration(ru.Stime.Nano()),
		"maxrss_kb", ru.Maxrss,
	)
}
