package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCtStateString(t *testing.T) {
	tests := []struct {
		name     string
		state    CtState
		expected string
	}{
		{
			name:     "zero state renders empty",
			state:    0,
			expected: "",
		},
		{
			name:     "new tracked packet",
			state:    StateNew | StateTracked,
			expected: "new|trk",
		},
		{
			name:     "established reply direction",
			state:    StateEstablished | StateReplyDir | StateTracked,
			expected: "est|rpl|trk",
		},
		{
			name:     "invalid packet",
			state:    StateInvalid | StateTracked,
			expected: "inv|trk",
		},
		{
			name:     "all flags in ascending bit order",
			state:    StateNew | StateEstablished | StateRelated | StateReplyDir | StateInvalid | StateTracked | StateSrcNAT | StateDstNAT,
			expected: "new|est|rel|rpl|inv|trk|snat|dnat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}
