package packet

import "fmt"

// MaxBurst is the maximum number of packets a single batch may hold, matching
// the burst size of the underlying dataplane.
const MaxBurst = 32

// Batch is an ordered, fixed-capacity group of packets. All packets submitted
// to the tracking table in one call must share the same protocol identifier;
// the batch itself does not enforce that, the replay grouper does for
// heterogeneous input.
type Batch struct {
	pkts  [MaxBurst]*Packet
	count int
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Append adds a packet to the batch. Appending past MaxBurst is a caller
// contract violation and panics.
func (b *Batch) Append(p *Packet) {
	if b.count >= MaxBurst {
		panic(fmt.Sprintf("batch overflow: capacity is %d packets", MaxBurst))
	}
	b.pkts[b.count] = p
	b.count++
}

// Count returns the number of packets in the batch.
func (b *Batch) Count() int { return b.count }

// At returns the i-th packet.
func (b *Batch) At(i int) *Packet { return b.pkts[i] }

// Packets returns the occupied slots in order.
func (b *Batch) Packets() []*Packet { return b.pkts[:b.count] }

// Reset empties the batch without dropping packet references in the occupied
// prefix; the caller keeps ownership of the packets.
func (b *Batch) Reset() { b.count = 0 }

// Free releases all packets held by the batch and empties it.
func (b *Batch) Free() {
	for i := 0; i < b.count; i++ {
		b.pkts[i] = nil
	}
	b.count = 0
}
