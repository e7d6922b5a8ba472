package ll

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC24MatchesBitSerialReference(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	init := uint32(0x555555)

	got := CRC24(data, init)
	want := crc24Bitserial(data, init)
	require.Equal(t, want, got)
}

func TestCRC24TableAndEmptyInput(t *testing.T) {
	require.Equal(t, uint32(0x555555), CRC24(nil, 0x555555))
}

func TestPutCRC24LEAppendsThreeBytesLSByteFirst(t *testing.T) {
	buf := PutCRC24LE(nil, 0x00010203)
	require.Len(t, buf, 3)
	require.Equal(t, byte(0x03), buf[0])
	require.Equal(t, byte(0x02), buf[1])
	require.Equal(t, byte(0x01), buf[2])
}
