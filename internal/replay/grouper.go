package replay

import (
	"github.com/gopacket/gopacket/layers"

	"github.com/netdev-tools/ctbench/internal/packet"
)

// Submitter is the tracking-table operation the replay path depends on. The
// implementation must accept concurrent calls, though replay itself is
// single-threaded.
type Submitter interface {
	Submit(b *packet.Batch, proto layers.EthernetType, commit bool)
}

// ExecuteGrouped feeds a possibly mixed-protocol batch to the tracking table.
// The table requires every submission to be protocol-homogeneous, so the
// batch is partitioned into maximal runs of consecutive same-protocol packets
// and submitted one run at a time, in original order, with commit semantics.
// An empty batch performs no submissions.
func ExecuteGrouped(table Submitter, b *packet.Batch) {
	run := packet.NewBatch()
	var proto layers.EthernetType

	for _, pkt := range b.Packets() {
		// Parsing also derives the transport offsets the table needs.
		// An undecodable frame keeps a zero flow and still goes through
		// the table, which marks it invalid.
		_ = pkt.Parse()

		if run.Count() == 0 {
			proto = pkt.Flow().Proto
		} else if pkt.Flow().Proto != proto {
			table.Submit(run, proto, true)
			run.Reset()
			proto = pkt.Flow().Proto
		}
		run.Append(pkt)
	}

	if run.Count() > 0 {
		table.Submit(run, proto, true)
	}
}
