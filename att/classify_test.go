package att

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyFromReadByTypeKnownClassA(t *testing.T) {
	entry := make([]byte, 4)
	binary.LittleEndian.PutUint16(entry[0:2], 0x0001)
	binary.LittleEndian.PutUint16(entry[2:4], 0xFFE0)

	class, handles := ClassifyFromReadByType(4, entry)
	require.Equal(t, ClassA, class)
	require.Equal(t, uint16(0x0003), handles.TxChar)
}

func TestClassifyFromReadByTypeUnknownFallsBackToCustom(t *testing.T) {
	entry := make([]byte, 4)
	binary.LittleEndian.PutUint16(entry[0:2], 0x0001)
	binary.LittleEndian.PutUint16(entry[2:4], 0x1234)

	class, handles := ClassifyFromReadByType(4, entry)
	require.Equal(t, ClassCustom, class)
	require.Equal(t, defaultHandleSet, handles)
}

func TestIsErrorResponseDecodesPeerError(t *testing.T) {
	rsp := []byte{OpcodeErrorRsp, OpcodeWriteReq, 0x03, 0x00, 0x0E}
	pe, ok := IsErrorResponse(rsp)
	require.True(t, ok)
	require.Equal(t, OpcodeWriteReq, pe.Opcode)
	require.Equal(t, uint16(0x0003), pe.Handle)
	require.Equal(t, byte(0x0E), pe.ErrorCode)
}
