package bench

import (
	"context"
	"fmt"
	"sync"
)

// Barrier is a reusable counting rendezvous: every Await blocks until all
// registered participants have arrived, then all are released together and
// the barrier resets for the next phase.
type Barrier struct {
	mu      sync.Mutex
	parties int
	arrived int
	release chan struct{}
}

// NewBarrier creates a barrier for the given number of participants.
func NewBarrier(parties int) *Barrier {
	if parties < 1 {
		panic(fmt.Sprintf("barrier requires at least one participant, got %d", parties))
	}
	return &Barrier{
		parties: parties,
		release: make(chan struct{}),
	}
}

// Await blocks until all participants have arrived or the context is
// canceled. The last participant to arrive releases the others and does not
// block.
func (b *Barrier) Await(ctx context.Context) error {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.parties {
		close(b.release)
		b.arrived = 0
		b.release = make(chan struct{})
		b.mu.Unlock()
		return nil
	}
	release := b.release
	b.mu.Unlock()

	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
