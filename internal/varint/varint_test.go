package varint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportRoundTrip(t *testing.T) {
	cases := [][]int{
		{0},
		{1, -1, 63, -63, 1000, -1000},
		{-60, -55, -70, -90, -42},
		{},
	}
	for _, c := range cases {
		for _, kind := range []Kind{KindRSSI, KindFreqErrorHz} {
			buf := EncodeReport(kind, c)
			gotKind, dec, err := DecodeReport(buf)
			require.NoError(t, err)
			require.Equal(t, kind, gotKind)
			require.Equal(t, c, dec)
		}
	}
}

func TestDecodeReportEmptyBuffer(t *testing.T) {
	_, _, err := DecodeReport(nil)
	require.Error(t, err)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "rssi", KindRSSI.String())
	require.Equal(t, "freq_error_hz", KindFreqErrorHz.String())
	require.Contains(t, Kind(99).String(), "99")
}
