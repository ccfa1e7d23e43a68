package packet

import "strings"

// CtState is the connection-tracking state of a packet, set by the tracking
// table after submission. Flag values and names follow the conntrack
// convention used by dataplane tooling.
type CtState uint8

const (
	// StateNew marks a packet that started a new connection.
	StateNew CtState = 1 << iota
	// StateEstablished marks a packet that is part of an existing connection.
	StateEstablished
	// StateRelated marks a packet related to an existing connection.
	StateRelated
	// StateReplyDir marks a packet seen in the reply direction.
	StateReplyDir
	// StateInvalid marks a packet the tracker could not associate with a
	// connection.
	StateInvalid
	// StateTracked marks a packet that has passed through the tracker.
	StateTracked
	// StateSrcNAT marks a packet whose source address was translated.
	StateSrcNAT
	// StateDstNAT marks a packet whose destination address was translated.
	StateDstNAT
)

var stateNames = [...]string{"new", "est", "rel", "rpl", "inv", "trk", "snat", "dnat"}

// String renders the state as a '|'-joined set of symbolic flag names, in
// ascending bit order. The zero state renders as an empty string.
func (s CtState) String() string {
	names := make([]string, 0, len(stateNames))
	for bit, name := range stateNames {
		if s&(1<<bit) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}
