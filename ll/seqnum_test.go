package ll

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeqNumConnectHappyPath(t *testing.T) {
	var s SeqNum
	require.False(t, s.TxSN())
	require.False(t, s.RxNESN())

	// Peer's first response carries sn=0 (new, in-order) and nesn=1
	// (acknowledging our sn=0 transmission), per spec §8 scenario 6.
	accepted, acked := s.OnReceive(false, true)
	require.True(t, accepted)
	require.True(t, acked)
	require.True(t, s.TxSN())
	require.True(t, s.RxNESN())
}

func TestSeqNumDuplicateNotAccepted(t *testing.T) {
	var s SeqNum
	s.OnReceive(false, true) // rxNESN -> true, txSN -> true

	// Peer retransmits the same sn because it never saw our ack.
	accepted, acked := s.OnReceive(false, true)
	require.False(t, accepted)
	require.False(t, acked)
}

func TestSeqNumReset(t *testing.T) {
	var s SeqNum
	s.OnReceive(false, true)
	s.Reset()
	require.False(t, s.TxSN())
	require.False(t, s.RxNESN())
}
