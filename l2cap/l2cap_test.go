package l2cap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildFrameRoundTrip(t *testing.T) {
	payload := []byte("hello ATT")
	full := BuildFrame(CIDATT, payload)

	f := frame(full)
	require.Equal(t, len(payload), f.length())
	require.Equal(t, CIDATT, f.cid())
	require.Equal(t, payload, f.payload())
}

func TestFragmentReassembleRoundTrip(t *testing.T) {
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	full := BuildFrame(CIDATT, payload)

	chunks := Fragment(full, 20)
	require.Greater(t, len(chunks), 1)

	var r Reassembler
	var out []byte
	var cid uint16
	for i, c := range chunks {
		llid := byte(llidContinuation)
		if i == 0 {
			llid = llidL2CAPStart
		}
		var complete bool
		var err error
		out, cid, complete, err = r.Feed(llid, c)
		require.NoError(t, err)
		if i < len(chunks)-1 {
			require.False(t, complete)
		} else {
			require.True(t, complete)
		}
	}

	require.Equal(t, CIDATT, cid)
	require.Equal(t, payload, out)
}

func TestReassemblerRejectsContinuationWithoutStart(t *testing.T) {
	var r Reassembler
	_, _, _, err := r.Feed(llidContinuation, []byte{1, 2, 3})
	require.ErrorIs(t, err, errNoStart)
}

func TestMinimumMTUFragmentsFiveWriteRequests(t *testing.T) {
	// spec §8: mtu=23 fragments a 100-byte text into 5 write requests of
	// 20-byte payloads (ATT's own write-request framing, exercised here at
	// the L2CAP fragment-size boundary of mtu-3=20 bytes per PDU).
	text := make([]byte, 100)
	chunks := Fragment(text, 20)
	require.Len(t, chunks, 5)
	for _, c := range chunks {
		require.Len(t, c, 20)
	}
}
