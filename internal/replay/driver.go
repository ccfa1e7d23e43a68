package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gobwas/glob"
	"github.com/gopacket/gopacket/pcapgo"
	"go.uber.org/zap"

	"github.com/netdev-tools/ctbench/internal/packet"
)

// Driver replays a capture file against the tracking table in fixed-size
// chunks and reports the resulting tracking state of every packet.
type Driver struct {
	table     Submitter
	cfg       Config
	batchSize int
	match     glob.Glob
	out       io.Writer
	log       *zap.SugaredLogger
}

type driverOptions struct {
	Cfg       Config
	BatchSize int
	Match     glob.Glob
	Out       io.Writer
	Log       *zap.SugaredLogger
}

func newDriverOptions() *driverOptions {
	return &driverOptions{
		Cfg:       DefaultConfig(),
		BatchSize: 1,
		Out:       os.Stdout,
		Log:       zap.NewNop().Sugar(),
	}
}

// DriverOption configures the replay driver.
type DriverOption func(*driverOptions)

// WithConfig sets the replay configuration.
func WithConfig(cfg Config) DriverOption {
	return func(o *driverOptions) { o.Cfg = cfg }
}

// WithBatchSize sets the number of packets read per chunk.
func WithBatchSize(n int) DriverOption {
	return func(o *driverOptions) { o.BatchSize = n }
}

// WithMatch restricts output to packets whose rendered tracking state
// matches the pattern. Filtered packets still consume their global index.
func WithMatch(g glob.Glob) DriverOption {
	return func(o *driverOptions) { o.Match = g }
}

// WithOutput redirects the per-packet report.
func WithOutput(w io.Writer) DriverOption {
	return func(o *driverOptions) { o.Out = w }
}

// WithLog sets the logger for the driver.
func WithLog(log *zap.SugaredLogger) DriverOption {
	return func(o *driverOptions) { o.Log = log }
}

// NewDriver creates a replay driver submitting to the given table.
func NewDriver(table Submitter, opts ...DriverOption) (*Driver, error) {
	o := newDriverOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.BatchSize < 1 || o.BatchSize > packet.MaxBurst {
		return nil, fmt.Errorf("batch_size must be between 1 and %d", packet.MaxBurst)
	}

	return &Driver{
		table:     table,
		cfg:       o.Cfg,
		batchSize: o.BatchSize,
		match:     o.Match,
		out:       o.Out,
		log:       o.Log,
	}, nil
}

// Replay reads the capture at path in chunks of up to the configured batch
// size, runs each chunk through the tracking table, and prints one line per
// packet: its 1-based global index and the '|'-joined tracking-state flags.
// A capture that cannot be opened is a silent no-op. A read error mid-chunk
// still reports the packets already read, then stops.
func (d *Driver) Replay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		d.log.Debugw("skipping capture", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	r, err := pcapgo.NewReader(bufio.NewReaderSize(f, int(d.cfg.ReadBuffer.Bytes())))
	if err != nil {
		d.log.Debugw("skipping capture", "path", path, "error", err)
		return nil
	}

	total := 0
	for {
		batch := packet.NewBatch()
		var readErr error
		for i := 0; i < d.batchSize; i++ {
			data, _, err := r.ReadPacketData()
			if err != nil {
				readErr = err
				break
			}
			batch.Append(packet.New(data))
		}

		if readErr != nil && !errors.Is(readErr, io.EOF) {
			d.log.Warnw("capture read failed", "path", path, "error", readErr)
		}

		if batch.Count() == 0 {
			break
		}

		ExecuteGrouped(d.table, batch)

		for _, pkt := range batch.Packets() {
			total++
			state := pkt.CtState().String()
			if d.match != nil && !d.match.Match(state) {
				continue
			}
			fmt.Fprintf(d.out, "%d: %s\n", total, state)
		}
		batch.Free()

		if readErr != nil {
			break
		}
	}

	d.log.Debugw("replay complete", "path", path, "packets", total)
	return nil
}
