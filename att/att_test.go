package att

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tve/blehost/internal/clock"
)

func newTestClient(t *testing.T) (*Client, *[][]byte) {
	t.Helper()
	var sent [][]byte
	src := clock.NewSource()
	c := NewClient(func(pdu []byte) error {
		sent = append(sent, append([]byte(nil), pdu...))
		return nil
	}, src)
	return c, &sent
}

func TestExchangeMTUNegotiatesSmaller(t *testing.T) {
	c, sent := newTestClient(t)
	require.NoError(t, c.ExchangeMTU(185))
	require.Len(t, *sent, 1)
	require.Equal(t, OpcodeExchangeMtuReq, (*sent)[0][0])

	rsp := []byte{OpcodeExchangeMtuRsp, 69, 0} // server proposes 69
	c.HandleFrame(rsp)
	resp, ok := c.TakeResponse()
	require.True(t, ok)
	require.Equal(t, rsp, resp)
	require.Equal(t, 69, c.MTU())
}

func TestWriteReqBusyUntilResponse(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.WriteReq(0x0003, []byte("hi")))
	require.True(t, c.Busy())
	require.ErrorIs(t, c.WriteReq(0x0003, []byte("again")), ErrBusy)

	c.HandleFrame([]byte{OpcodeWriteRsp})
	require.False(t, c.Busy())
	resp, ok := c.TakeResponse()
	require.True(t, ok)
	require.Equal(t, []byte{OpcodeWriteRsp}, resp)
}

func TestWriteCmdDoesNotConsumeTransactionSlot(t *testing.T) {
	c, sent := newTestClient(t)
	require.NoError(t, c.WriteReq(0x0003, []byte("pending")))
	require.True(t, c.Busy())
	require.NoError(t, c.WriteCmd(0x0004, []byte("cmd")))
	require.True(t, c.Busy(), "WriteCmd must not disturb the outstanding WriteReq")
	require.Len(t, *sent, 2)
}

func TestNotificationDoesNotConsumeTransactionSlot(t *testing.T) {
	c, _ := newTestClient(t)
	var got []byte
	c.SetNotificationHandler(notifyFunc(func(handle uint16, value []byte, ind bool) {
		got = value
	}))
	c.HandleFrame(append([]byte{OpcodeHandleValueNtf, 0x03, 0x00}, []byte("hello")...))
	require.Equal(t, []byte("hello"), got)
	require.False(t, c.Busy())
}

func TestIndicationSendsConfirmation(t *testing.T) {
	c, sent := newTestClient(t)
	c.SetNotificationHandler(notifyFunc(func(uint16, []byte, bool) {}))
	c.HandleFrame(append([]byte{OpcodeHandleValueInd, 0x03, 0x00}, []byte("x")...))
	require.Len(t, *sent, 1)
	require.Equal(t, []byte{OpcodeHandleValueCfm}, (*sent)[0])
}

func TestProcessTimesOutPendingRequest(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.Read(0x0001))
	require.False(t, c.Process(c.pendingDeadlineUS-1))
	require.True(t, c.Process(c.pendingDeadlineUS))
	require.False(t, c.Busy())
}

func TestTextFragmentationMatchesSpecVector(t *testing.T) {
	// spec §8 scenario 5: mtu=23, 26-byte text -> 20 then 6 bytes, >=20ms apart.
	c, sent := newTestClient(t)
	c.mtu = 23
	sender := NewTextSender(c)

	text := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	require.NoError(t, sender.Start(0x0003, text))

	now := uint64(1_000_000)
	done, err := sender.Process(now)
	require.NoError(t, err)
	require.False(t, done)
	require.Len(t, *sent, 1)
	require.Equal(t, "ABCDEFGHIJKLMNOPQRST", string((*sent)[0][3:]))

	c.HandleFrame([]byte{OpcodeWriteRsp})

	// Too soon: must not send fragment #2 before 20ms have elapsed.
	done, err = sender.Process(now + 1000)
	require.NoError(t, err)
	require.False(t, done)
	require.Len(t, *sent, 1)

	done, err = sender.Process(now + 20_000)
	require.NoError(t, err)
	require.False(t, done)
	require.Len(t, *sent, 2)
	require.Equal(t, "UVWXYZ", string((*sent)[1][3:]))

	c.HandleFrame([]byte{OpcodeWriteRsp})
	done, err = sender.Process(now + 40_000)
	require.NoError(t, err)
	require.True(t, done)
}

type notifyFunc func(handle uint16, value []byte, indication bool)

func (f notifyFunc) OnNotify(handle uint16, value []byte, indication bool) { f(handle, value, indication) }
