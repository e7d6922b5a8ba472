package att

import "encoding/binary"

// PeerClass tags the peripheral's attribute layout so the application can
// write text to the right characteristic without a full service/
// characteristic discovery (spec §4.3's "Peer classification").
type PeerClass int

const (
	ClassUnknown PeerClass = iota
	ClassA
	ClassB
	ClassCustom
)

func (c PeerClass) String() string {
	switch c {
	case ClassA:
		return "A"
	case ClassB:
		return "B"
	case ClassCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// HandleSet is the cached attribute handles a text write targets, chosen
// from the small static per-class table below (spec §3's ATT client
// context: "cached handle_set {service, tx_char, rx_char, cccd}").
type HandleSet struct {
	Service uint16
	TxChar  uint16
	RxChar  uint16
	CCCD    uint16
}

// serviceTable maps a 16-bit primary service UUID to the peer class and
// handle set a serial-over-BLE peripheral of that family exposes. These are
// the two known wearable families this module targets plus a default
// fallback; unrecognized services classify as Custom with a conservative
// handle layout.
var serviceTable = map[uint16]struct {
	class   PeerClass
	handles HandleSet
}{
	0xFFE0: {ClassA, HandleSet{Service: 0x0001, TxChar: 0x0003, RxChar: 0x0003, CCCD: 0x0004}},
	0xFFF0: {ClassB, HandleSet{Service: 0x0001, TxChar: 0x0004, RxChar: 0x0002, CCCD: 0x0005}},
}

// defaultHandleSet is used for ClassCustom, a conservative layout assuming
// the first discovered service starts at handle 1 with its value
// characteristic immediately following.
var defaultHandleSet = HandleSet{Service: 0x0001, TxChar: 0x0002, RxChar: 0x0002, CCCD: 0x0003}

// ClassifyFromReadByType inspects the attribute data list returned by a
// ReadByTypeReq(Primary Service UUID) sweep and determines the peer's
// class and handle set. attrLen is the per-entry length field from the
// ReadByTypeRsp header (spec §4.3); data is the concatenated entries.
func ClassifyFromReadByType(attrLen int, data []byte) (PeerClass, HandleSet) {
	if attrLen < 4 || len(data) < attrLen {
		return ClassCustom, defaultHandleSet
	}
	for off := 0; off+attrLen <= len(data); off += attrLen {
		entry := data[off : off+attrLen]
		uuidBytes := entry[2:attrLen]
		if len(uuidBytes) == 2 {
			uuid := binary.LittleEndian.Uint16(uuidBytes)
			if rec, ok := serviceTable[uuid]; ok {
				return rec.class, rec.handles
			}
		}
	}
	return ClassCustom, defaultHandleSet
}
