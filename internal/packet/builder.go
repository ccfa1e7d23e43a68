package packet

import (
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/gopacket/gopacket/layers"
)

// templateHex is an Ethernet/IPv4/UDP frame (10.1.1.1:1 -> 10.1.1.2:2) used
// as the template for all synthetically built packets.
const templateHex = "50540000000a50540000000908004500001c000000000011a4cd" +
	"0a0101010a0101020001000200080000"

var template = func() []byte {
	data, err := hex.DecodeString(templateHex)
	if err != nil {
		panic(err)
	}
	return data
}()

// BuildBatch constructs a batch of n packets from the template payload for
// worker tid. The source port of every packet is shifted by tid so that
// concurrent workers address disjoint connections. With vary set, each
// packet's destination port is additionally shifted by its index within the
// batch, so one batch spans n distinct connections instead of one.
//
// Returns the batch and the protocol identifier shared by all its packets.
// Requesting more than MaxBurst packets is a caller contract violation and
// panics.
func BuildBatch(n int, vary bool, tid uint16) (*Batch, layers.EthernetType, error) {
	if n > MaxBurst {
		panic(fmt.Sprintf("requested %d packets, batch capacity is %d", n, MaxBurst))
	}

	batch := NewBatch()
	var proto layers.EthernetType

	for i := 0; i < n; i++ {
		pkt := New(slices.Clone(template))
		if err := pkt.Parse(); err != nil {
			return nil, 0, fmt.Errorf("failed to parse template packet: %w", err)
		}

		flow := pkt.Flow()
		if err := pkt.SetSrcPort(flow.SrcPort + tid); err != nil {
			return nil, 0, fmt.Errorf("failed to rewrite source port: %w", err)
		}
		if vary {
			if err := pkt.SetDstPort(flow.DstPort + uint16(i)); err != nil {
				return nil, 0, fmt.Errorf("failed to rewrite destination port: %w", err)
			}
		}

		batch.Append(pkt)
		proto = flow.Proto
	}

	return batch, proto, nil
}
