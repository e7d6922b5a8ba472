package ll

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataPDURoundTrip(t *testing.T) {
	payload := []byte("hello world")
	buf := BuildDataPDU(LLIDL2CAPStart, true, false, false, payload)

	h, got, err := ParseDataPDU(buf)
	require.NoError(t, err)
	require.Equal(t, LLIDL2CAPStart, h.LLID())
	require.True(t, h.NESN())
	require.False(t, h.SN())
	require.False(t, h.MD())
	require.Equal(t, payload, got)
}

func TestParseDataPDUTruncated(t *testing.T) {
	_, _, err := ParseDataPDU([]byte{0x02})
	require.ErrorIs(t, err, ErrProtocol)

	h := NewDataHeader(LLIDContinuation, false, false, false, 10)
	_, _, err = ParseDataPDU([]byte{h[0], h[1], 1, 2, 3})
	require.ErrorIs(t, err, ErrProtocol)
}

func TestConnectIndRoundTrip(t *testing.T) {
	ci := ConnectInd{
		InitA:         NewPublicAddress([6]byte{1, 2, 3, 4, 5, 6}),
		AdvA:          NewPublicAddress([6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}),
		AccessAddress: 0x12345678,
		CRCInit:       0x555555,
		WinSize:       2,
		WinOffset:     1,
		Interval:      40,
		Latency:       0,
		Timeout:       200,
		ChannelMap:    AllChannels(),
		HopIncrement:  9,
		SCA:           3,
	}

	buf := ci.Marshal()
	require.Len(t, buf, 34)

	got, err := ParseConnectInd(buf)
	require.NoError(t, err)
	require.Equal(t, ci.InitA.Bytes, got.InitA.Bytes)
	require.Equal(t, ci.AdvA.Bytes, got.AdvA.Bytes)
	require.Equal(t, ci.AccessAddress, got.AccessAddress)
	require.Equal(t, ci.CRCInit, got.CRCInit)
	require.Equal(t, ci.WinSize, got.WinSize)
	require.Equal(t, ci.WinOffset, got.WinOffset)
	require.Equal(t, ci.Interval, got.Interval)
	require.Equal(t, ci.Latency, got.Latency)
	require.Equal(t, ci.Timeout, got.Timeout)
	require.Equal(t, ci.ChannelMap, got.ChannelMap)
	require.Equal(t, ci.HopIncrement, got.HopIncrement)
	require.Equal(t, ci.SCA, got.SCA)
	require.Equal(t, buf, got.Marshal())
}

func TestParseConnectIndRejectsWrongLength(t *testing.T) {
	_, err := ParseConnectInd(make([]byte, 10))
	require.ErrorIs(t, err, ErrProtocol)
}

func TestControlPDUBuilders(t *testing.T) {
	term := BuildTerminateInd(ReasonUserTerminated)
	require.Equal(t, []byte{OpcodeTerminateInd, byte(ReasonUserTerminated)}, term)

	rsp := BuildFeatureRsp()
	require.Equal(t, OpcodeFeatureRsp, rsp[0])
	require.Len(t, rsp, 9)

	unk := BuildUnknownRsp(0x55)
	require.Equal(t, []byte{OpcodeUnknownRsp, 0x55}, unk)
}
