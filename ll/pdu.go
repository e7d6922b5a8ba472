package ll

import (
	"encoding/binary"
	"fmt"
)

// Advertising PDU types accepted for scan matching (spec §4.2).
const (
	PDUAdvInd       byte = 0x0
	PDUAdvDirectInd byte = 0x1
	PDUAdvNonconnInd byte = 0x2
	PDUScanReq      byte = 0x3
	PDUScanRsp      byte = 0x4
	PDUConnectInd   byte = 0x5
	PDUAdvScanInd   byte = 0x6
)

// Data PDU LLID codes (spec §6).
const (
	LLIDReserved     byte = 0b00
	LLIDContinuation byte = 0b01 // also used for empty PDUs
	LLIDL2CAPStart   byte = 0b10
	LLIDControl      byte = 0b11
)

// LL control opcodes handled per spec §4.2.
const (
	OpcodeTerminateInd byte = 0x02
	OpcodeUnknownRsp   byte = 0x07
	OpcodeFeatureReq   byte = 0x08
	OpcodeFeatureRsp   byte = 0x09
	OpcodeVersionInd   byte = 0x0C
)

// AdvHeader is a 2-byte advertising PDU header view: byte0 =
// {type:4, rfu:2, tx_add:1, rx_add:1}, byte1 = {length:8}, per spec §6.
type AdvHeader [2]byte

// NewAdvHeader builds an advertising header.
func NewAdvHeader(pduType byte, txAddRandom, rxAddRandom bool, length byte) AdvHeader {
	var h AdvHeader
	h[0] = pduType & 0x0F
	if txAddRandom {
		h[0] |= 1 << 6
	}
	if rxAddRandom {
		h[0] |= 1 << 7
	}
	h[1] = length
	return h
}

func (h AdvHeader) Type() byte        { return h[0] & 0x0F }
func (h AdvHeader) TxAddRandom() bool { return h[0]&(1<<6) != 0 }
func (h AdvHeader) RxAddRandom() bool { return h[0]&(1<<7) != 0 }
func (h AdvHeader) Length() byte      { return h[1] }

// DataHeader is a 2-byte data channel PDU header view: byte0 =
// {llid:2, nesn:1, sn:1, md:1, rfu:3}, byte1 = {length:8}, per spec §6.
type DataHeader [2]byte

// NewDataHeader builds a data channel PDU header.
func NewDataHeader(llid byte, nesn, sn, md bool, length byte) DataHeader {
	var h DataHeader
	h[0] = llid & 0x03
	if nesn {
		h[0] |= 1 << 2
	}
	if sn {
		h[0] |= 1 << 3
	}
	if md {
		h[0] |= 1 << 4
	}
	h[1] = length
	return h
}

func (h DataHeader) LLID() byte  { return h[0] & 0x03 }
func (h DataHeader) NESN() bool  { return h[0]&(1<<2) != 0 }
func (h DataHeader) SN() bool    { return h[0]&(1<<3) != 0 }
func (h DataHeader) MD() bool    { return h[0]&(1<<4) != 0 }
func (h DataHeader) Length() byte { return h[1] }

// BuildDataPDU assembles a full on-air-shaped data PDU: header + payload,
// ready for radio.Radio.SubmitTX (the radio appends CRC-24 in hardware).
// Re-parsing with ParseDataPDU on the same bytes returns equal fields, per
// spec §8's round-trip law.
func BuildDataPDU(llid byte, nesn, sn, md bool, payload []byte) []byte {
	if len(payload) > 251 {
		payload = payload[:251]
	}
	h := NewDataHeader(llid, nesn, sn, md, byte(len(payload)))
	buf := make([]byte, 0, 2+len(payload))
	buf = append(buf, h[0], h[1])
	buf = append(buf, payload...)
	return buf
}

// ParseDataPDU splits a received data PDU buffer into its header and
// payload view.
func ParseDataPDU(buf []byte) (DataHeader, []byte, error) {
	if len(buf) < 2 {
		return DataHeader{}, nil, fmt.Errorf("%w: data PDU shorter than header", ErrProtocol)
	}
	h := DataHeader{buf[0], buf[1]}
	if len(buf) < 2+int(h.Length()) {
		return DataHeader{}, nil, fmt.Errorf("%w: data PDU shorter than declared length", ErrProtocol)
	}
	return h, buf[2 : 2+int(h.Length())], nil
}

// ConnectInd is the fixed 34-byte CONNECT_IND payload of spec §4.2/§6
// (after the 2-byte advertising header).
type ConnectInd struct {
	InitA         Address
	AdvA          Address
	AccessAddress uint32
	CRCInit       uint32 // 24-bit
	WinSize       byte
	WinOffset     uint16
	Interval      uint16 // units of 1.25ms
	Latency       uint16
	Timeout       uint16 // units of 10ms
	ChannelMap    ChannelMap
	HopIncrement  HopIncrement // 5 bits
	SCA           byte         // 3 bits, sleep clock accuracy index
}

// Marshal encodes the CONNECT_IND payload, little-endian over the air per
// spec §3/§6.
func (c ConnectInd) Marshal() []byte {
	buf := make([]byte, 34)
	putAddrLE(buf[0:6], c.InitA)
	putAddrLE(buf[6:12], c.AdvA)
	binary.LittleEndian.PutUint32(buf[12:16], c.AccessAddress)
	buf[16] = byte(c.CRCInit)
	buf[17] = byte(c.CRCInit >> 8)
	buf[18] = byte(c.CRCInit >> 16)
	buf[19] = c.WinSize
	binary.LittleEndian.PutUint16(buf[20:22], c.WinOffset)
	binary.LittleEndian.PutUint16(buf[22:24], c.Interval)
	binary.LittleEndian.PutUint16(buf[24:26], c.Latency)
	binary.LittleEndian.PutUint16(buf[26:28], c.Timeout)
	chMap := uint64(c.ChannelMap)
	for i := 0; i < 5; i++ {
		buf[28+i] = byte(chMap >> (8 * uint(i)))
	}
	buf[33] = byte(c.HopIncrement&0x1F) | (c.SCA&0x07)<<5
	return buf
}

// ParseConnectInd decodes a 34-byte CONNECT_IND payload. Re-marshaling the
// result returns equal bytes, per spec §8's round-trip law.
func ParseConnectInd(buf []byte) (ConnectInd, error) {
	if len(buf) != 34 {
		return ConnectInd{}, fmt.Errorf("%w: CONNECT_IND must be 34 bytes, got %d", ErrProtocol, len(buf))
	}
	var c ConnectInd
	c.InitA = addrFromLE(buf[0:6])
	c.AdvA = addrFromLE(buf[6:12])
	c.AccessAddress = binary.LittleEndian.Uint32(buf[12:16])
	c.CRCInit = uint32(buf[16]) | uint32(buf[17])<<8 | uint32(buf[18])<<16
	c.WinSize = buf[19]
	c.WinOffset = binary.LittleEndian.Uint16(buf[20:22])
	c.Interval = binary.LittleEndian.Uint16(buf[22:24])
	c.Latency = binary.LittleEndian.Uint16(buf[24:26])
	c.Timeout = binary.LittleEndian.Uint16(buf[26:28])
	var chMap uint64
	for i := 0; i < 5; i++ {
		chMap |= uint64(buf[28+i]) << (8 * uint(i))
	}
	c.ChannelMap = ChannelMap(chMap)
	c.HopIncrement = HopIncrement(buf[33] & 0x1F)
	c.SCA = buf[33] >> 5
	return c, nil
}

func putAddrLE(buf []byte, a Address) {
	for i := 0; i < 6; i++ {
		buf[i] = a.Bytes[i]
	}
}

func addrFromLE(buf []byte) Address {
	var a Address
	copy(a.Bytes[:], buf[:6])
	return a
}

// ControlPDU is a minimal view over an LLID=Control data PDU payload:
// byte 0 is the opcode, the rest is opcode-specific.
type ControlPDU struct {
	Opcode byte
	Data   []byte
}

// BuildTerminateInd builds the TERMINATE_IND(reason) control PDU payload.
func BuildTerminateInd(reason DisconnectReason) []byte {
	return []byte{OpcodeTerminateInd, byte(reason)}
}

// FeatureMask is the 8-byte LE feature mask exchanged by FEATURE_REQ/RSP.
// This implementation always sends an all-zero mask, per spec §4.2 ("no
// extended features claimed").
type FeatureMask [8]byte

// BuildFeatureRsp builds a FEATURE_RSP control PDU with an all-zero mask.
func BuildFeatureRsp() []byte {
	buf := make([]byte, 9)
	buf[0] = OpcodeFeatureRsp
	return buf
}

// BuildUnknownRsp builds an UNKNOWN_RSP(opcode) control PDU.
func BuildUnknownRsp(unknownOpcode byte) []byte {
	return []byte{OpcodeUnknownRsp, unknownOpcode}
}
