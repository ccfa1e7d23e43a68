package conntrack

import (
	"math/rand"
	"net/netip"
	"sync"
	"time"

	"github.com/gopacket/gopacket/layers"
	"go.uber.org/zap"

	"github.com/netdev-tools/ctbench/internal/packet"
)

// tupleID identifies a connection in one direction.
type tupleID struct {
	srcAddr netip.Addr
	dstAddr netip.Addr
	srcPort uint16
	dstPort uint16
	proto   layers.IPProtocol
}

// reply returns the tuple of the opposite direction.
func (t tupleID) reply() tupleID {
	return tupleID{
		srcAddr: t.dstAddr,
		dstAddr: t.srcAddr,
		srcPort: t.dstPort,
		dstPort: t.srcPort,
		proto:   t.proto,
	}
}

func (t tupleID) less(o tupleID) bool {
	if c := t.srcAddr.Compare(o.srcAddr); c != 0 {
		return c < 0
	}
	if c := t.dstAddr.Compare(o.dstAddr); c != 0 {
		return c < 0
	}
	if t.srcPort != o.srcPort {
		return t.srcPort < o.srcPort
	}
	return t.dstPort < o.dstPort
}

// normalize maps both directions of a connection to one map key, so that a
// lookup takes a single bucket lock regardless of packet direction.
func (t tupleID) normalize() tupleID {
	if r := t.reply(); r.less(t) {
		return r
	}
	return t
}

// hash is FNV-1a over the tuple fields, mixed with a per-table seed.
func (t tupleID) hash(seed uint32) uint32 {
	const prime = 16777619
	h := uint32(2166136261) ^ seed
	mix := func(bs ...byte) {
		for _, b := range bs {
			h = (h ^ uint32(b)) * prime
		}
	}
	src := t.srcAddr.As16()
	dst := t.dstAddr.As16()
	mix(src[:]...)
	mix(dst[:]...)
	mix(byte(t.srcPort>>8), byte(t.srcPort), byte(t.dstPort>>8), byte(t.dstPort))
	mix(byte(t.proto))
	return h
}

// conn is one tracked connection.
type conn struct {
	// original is the tuple of the direction that created the entry.
	original tupleID
	lastSeen time.Time
}

type bucket struct {
	mu    sync.Mutex
	conns map[tupleID]*conn
}

// Table is a connection-tracking table. Submit is safe for concurrent use by
// multiple goroutines; the table keeps per-bucket locks so concurrent
// submitters on disjoint connections rarely contend.
type Table struct {
	cfg     Config
	seed    uint32
	buckets []bucket
	log     *zap.SugaredLogger
}

// New creates a table with the given configuration.
func New(cfg Config, log *zap.SugaredLogger) *Table {
	if cfg.Buckets <= 0 {
		cfg = DefaultConfig()
	}

	t := &Table{
		cfg:     cfg,
		seed:    rand.Uint32(),
		buckets: make([]bucket, cfg.Buckets),
		log:     log,
	}
	for i := range t.buckets {
		t.buckets[i].conns = map[tupleID]*conn{}
	}

	log.Debugw("initialized connection-tracking table",
		"buckets", cfg.Buckets,
		"timeout", time.Duration(cfg.Timeout)*time.Second,
	)
	return t
}

// Close releases the table. Must not be called concurrently with Submit.
func (t *Table) Close() {
	t.buckets = nil
	t.log.Debug("destroyed connection-tracking table")
}

// Submit processes one batch of packets sharing the protocol identifier
// proto and stamps each packet with its resulting tracking state. With
// commit set, new connections are persisted in the table; otherwise packets
// are only evaluated against existing entries.
func (t *Table) Submit(b *packet.Batch, proto layers.EthernetType, commit bool) {
	now := time.Now()
	for _, pkt := range b.Packets() {
		pkt.SetCtState(t.track(pkt, now, commit))
	}
}

func (t *Table) track(pkt *packet.Packet, now time.Time, commit bool) packet.CtState {
	flow := pkt.Flow()
	if !flow.HasL4 || !flow.SrcAddr.IsValid() {
		return packet.StateTracked | packet.StateInvalid
	}

	tuple := tupleID{
		srcAddr: flow.SrcAddr,
		dstAddr: flow.DstAddr,
		srcPort: flow.SrcPort,
		dstPort: flow.DstPort,
		proto:   flow.L4Proto,
	}
	// Both the map key and the bucket index must come from the normalized
	// tuple, or the two directions of one connection land in different
	// buckets.
	key := tuple.normalize()

	b := &t.buckets[key.hash(t.seed)%uint32(len(t.buckets))]
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.conns[key]; ok {
		if now.Sub(c.lastSeen) <= t.timeout() {
			c.lastSeen = now
			state := packet.StateTracked | packet.StateEstablished
			if tuple != c.original {
				state |= packet.StateReplyDir
			}
			return state
		}
		delete(b.conns, key)
	}

	if commit {
		b.conns[key] = &conn{original: tuple, lastSeen: now}
	}
	return packet.StateTracked | packet.StateNew
}

// Count returns the number of live tracked connections.
func (t *Table) Count() int {
	now := time.Now()
	total := 0
	for i := range t.buckets {
		b := &t.buckets[i]
		b.mu.Lock()
		for key, c := range b.conns {
			if now.Sub(c.lastSeen) > t.timeout() {
				delete(b.conns, key)
				continue
			}
			total++
		}
		b.mu.Unlock()
	}
	return total
}

func (t *Table) timeout() time.Duration {
	return time.Duration(t.cfg.Timeout) * time.Second
}
