package packet

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// Flow holds the header fields extracted from a packet that the harness and
// the tracking table care about.
type Flow struct {
	// Proto identifies the network protocol of the frame (IPv4, IPv6, ARP...).
	Proto layers.EthernetType
	// L4Proto is the transport protocol, valid only when HasL4 is set.
	L4Proto layers.IPProtocol
	SrcAddr netip.Addr
	DstAddr netip.Addr
	SrcPort uint16
	DstPort uint16
	// HasL4 reports whether the frame carries a parseable UDP or TCP header.
	HasL4 bool

	l4Offset int
}

// Packet is one mutable network frame plus its parsed metadata. A packet is
// owned by the batch holding it and is never shared across goroutines.
type Packet struct {
	data   []byte
	flow   Flow
	parsed bool
	state  CtState
}

// New wraps raw frame bytes. The packet owns the slice afterwards.
func New(data []byte) *Packet {
	return &Packet{data: data}
}

// Data returns the raw frame bytes.
func (p *Packet) Data() []byte { return p.data }

// Flow returns the parsed header fields. Valid only after Parse.
func (p *Packet) Flow() Flow { return p.flow }

// CtState returns the tracking state assigned by the last table submission.
func (p *Packet) CtState() CtState { return p.state }

// SetCtState records the tracking state for this packet.
func (p *Packet) SetCtState(s CtState) { p.state = s }

// Parse extracts the flow fields from the frame. It must be called before
// reading or rewriting transport ports. Frames without a transport header
// (e.g. ARP) parse successfully with Flow.HasL4 unset.
func (p *Packet) Parse() error {
	pkt := gopacket.NewPacket(p.data, layers.LayerTypeEthernet, gopacket.Default)

	eth, ok := pkt.LinkLayer().(*layers.Ethernet)
	if !ok {
		return fmt.Errorf("failed to parse ethernet header")
	}

	flow := Flow{Proto: eth.EthernetType}

	switch ip := pkt.NetworkLayer().(type) {
	case *layers.IPv4:
		flow.SrcAddr, _ = netip.AddrFromSlice(ip.SrcIP)
		flow.DstAddr, _ = netip.AddrFromSlice(ip.DstIP)
		flow.L4Proto = ip.Protocol
	case *layers.IPv6:
		flow.SrcAddr, _ = netip.AddrFromSlice(ip.SrcIP)
		flow.DstAddr, _ = netip.AddrFromSlice(ip.DstIP)
		flow.L4Proto = ip.NextHeader
	}

	if tl := pkt.TransportLayer(); tl != nil {
		switch l4 := tl.(type) {
		case *layers.UDP:
			flow.SrcPort = uint16(l4.SrcPort)
			flow.DstPort = uint16(l4.DstPort)
			flow.HasL4 = true
		case *layers.TCP:
			flow.SrcPort = uint16(l4.SrcPort)
			flow.DstPort = uint16(l4.DstPort)
			flow.HasL4 = true
		}
		if flow.HasL4 {
			// Sum the headers in front of the transport layer. An
			// Ethernet trailer on padded frames makes the frame
			// longer than the decoded layers, so the offset cannot
			// be derived from the frame length.
			off := 0
			for _, l := range pkt.Layers() {
				if gopacket.Layer(tl) == l {
					break
				}
				off += len(l.LayerContents())
			}
			flow.l4Offset = off
		}
	}

	p.flow = flow
	p.parsed = true
	return nil
}

// SetSrcPort rewrites the transport source port in place. Requires Parse.
func (p *Packet) SetSrcPort(port uint16) error {
	if err := p.checkL4(); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(p.data[p.flow.l4Offset:], port)
	p.flow.SrcPort = port
	return nil
}

// SetDstPort rewrites the transport destination port in place. Requires Parse.
func (p *Packet) SetDstPort(port uint16) error {
	if err := p.checkL4(); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(p.data[p.flow.l4Offset+2:], port)
	p.flow.DstPort = port
	return nil
}

func (p *Packet) checkL4() error {
	if !p.parsed {
		return fmt.Errorf("packet is not parsed")
	}
	if !p.flow.HasL4 {
		return fmt.Errorf("packet has no transport header")
	}
	return nil
}
