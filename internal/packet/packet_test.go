package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrailingPaddingKeepsTransportOffset(t *testing.T) {
	// Pad the template up to the 60-byte ethernet minimum; the trailer
	// must not shift where the port rewrites land.
	data := make([]byte, 60)
	copy(data, template)

	pkt := New(data)
	require.NoError(t, pkt.Parse())
	require.True(t, pkt.Flow().HasL4)

	require.NoError(t, pkt.SetSrcPort(4242))
	require.NoError(t, pkt.SetDstPort(2424))

	reparsed := New(pkt.Data())
	require.NoError(t, reparsed.Parse())
	assert.Equal(t, uint16(4242), reparsed.Flow().SrcPort)
	assert.Equal(t, uint16(2424), reparsed.Flow().DstPort)

	// The padding itself stays untouched.
	for i, b := range pkt.Data()[len(template):] {
		assert.Zero(t, b, "padding byte %d", i)
	}
}

func TestSetPortRequiresParse(t *testing.T) {
	pkt := New(append([]byte{}, template...))
	require.Error(t, pkt.SetSrcPort(1))

	require.NoError(t, pkt.Parse())
	require.NoError(t, pkt.SetSrcPort(1))
}
