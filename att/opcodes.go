// Package att implements the Attribute Protocol client subset of spec §4.3:
// request/response correlation with a single outstanding transaction,
// MTU exchange, peer classification via a read-by-type sweep, notification/
// indication dispatch, and the fragmented text write used by the
// application layer.
package att

// ATT opcodes this client sends or recognizes (Bluetooth core spec, Vol 3
// Part F §3.4). Only the operations spec §4.3 actually names are
// implemented; any other opcode the peer sends while a request is
// outstanding is taken as that request's response (see Client.HandleFrame)
// and left to the caller to interpret.
const (
	OpcodeErrorRsp          byte = 0x01
	OpcodeExchangeMtuReq    byte = 0x02
	OpcodeExchangeMtuRsp    byte = 0x03
	OpcodeReadByTypeReq     byte = 0x08
	OpcodeReadByTypeRsp     byte = 0x09
	OpcodeReadReq           byte = 0x0A
	OpcodeReadRsp           byte = 0x0B
	OpcodeWriteReq          byte = 0x12
	OpcodeWriteRsp          byte = 0x13
	OpcodeWriteCmd          byte = 0x52
	OpcodeHandleValueNtf    byte = 0x1B
	OpcodeHandleValueInd    byte = 0x1D
	OpcodeHandleValueCfm    byte = 0x1E
)

// DefaultMTU is the ATT MTU in effect before a successful MTU exchange.
const DefaultMTU = 23

// MaxMTU is the largest ATT MTU the protocol allows (spec §3/§4.3).
const MaxMTU = 247

// PrimaryServiceUUID is the attribute type read during peer classification.
const PrimaryServiceUUID uint16 = 0x2800
