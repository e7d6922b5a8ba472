// Package l2cap implements the thin fixed-channel L2CAP framing that sits
// between the Link Layer's data PDU stream and the ATT client (spec §4.3).
// Only the LE-U fixed ATT channel is supported; no dynamic channels, no
// segmentation beyond what a single connection's MTU requires.
package l2cap

import (
	"encoding/binary"
	"fmt"
)

// CIDATT is the fixed channel identifier ATT traffic is carried on.
const CIDATT uint16 = 0x0004

// headerLen is the 2-byte length + 2-byte CID L2CAP basic frame header.
const headerLen = 4

// frame is a byte-slice view over an L2CAP basic frame, following the
// accessor-over-raw-bytes idiom used throughout this module for on-air
// structures (treat headers as integers, never packed records).
type frame []byte

func (f frame) length() int    { return int(binary.LittleEndian.Uint16(f[0:2])) }
func (f frame) cid() uint16    { return binary.LittleEndian.Uint16(f[2:4]) }
func (f frame) payload() []byte { return f[headerLen:] }

// BuildFrame wraps payload in an L2CAP basic frame header addressed to cid.
// The result is what gets fragmented across LL data PDUs by Fragment.
func BuildFrame(cid uint16, payload []byte) []byte {
	buf := make([]byte, headerLen+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(payload)))
	binary.LittleEndian.PutUint16(buf[2:4], cid)
	copy(buf[headerLen:], payload)
	return buf
}

// Fragment splits a full L2CAP frame (as built by BuildFrame) into chunks
// no larger than maxLLPayload bytes each, suitable for one
// ll.EnqueueDataLLID call apiece: the first chunk uses LLIDL2CAPStart, the
// rest LLIDContinuation — the caller supplies those LLID constants so this
// package stays independent of ll's import.
func Fragment(full []byte, maxLLPayload int) [][]byte {
	if maxLLPayload <= 0 {
		maxLLPayload = len(full)
	}
	var chunks [][]byte
	for len(full) > 0 {
		n := len(full)
		if n > maxLLPayload {
			n = maxLLPayload
		}
		chunks = append(chunks, full[:n])
		full = full[n:]
	}
	if len(chunks) == 0 {
		chunks = [][]byte{{}}
	}
	return chunks
}

// Reassembler accumulates LL data PDU payloads into complete L2CAP frames,
// per spec §4.3: an LLID=L2CAPStart payload begins a frame declaring its
// total length; subsequent LLID=Continuation payloads extend it until the
// declared length is reached.
type Reassembler struct {
	buf  []byte
	want int // total bytes expected, header included; 0 when idle
}

// errNoStart is returned by Feed when a continuation payload arrives with
// no frame in progress.
var errNoStart = fmt.Errorf("l2cap: continuation PDU with no frame in progress")

// llidL2CAPStart/llidContinuation mirror ll.LLIDL2CAPStart / LLIDContinuation,
// so callers can pass ll's constants
// without this package importing ll (which would create an import cycle,
// since ll is the lower layer l2cap sits on top of).
const (
	llidL2CAPStart   = 0b10
	llidContinuation = 0b01
)

// Feed processes one received LL data PDU payload. When the frame is
// complete, it returns the reassembled payload (header stripped), the
// destination CID, complete=true, and resets internal state for the next
// frame. Non-ATT CIDs are still reassembled and returned; it is the
// caller's job to ignore them.
func (r *Reassembler) Feed(llid byte, payload []byte) (out []byte, cid uint16, complete bool, err error) {
	switch llid {
	case llidL2CAPStart:
		if len(payload) < headerLen {
			return nil, 0, false, fmt.Errorf("l2cap: start PDU shorter than frame header")
		}
		r.want = headerLen + frame(payload).length()
		r.buf = append([]byte(nil), payload...)
	case llidContinuation:
		if r.want == 0 {
			return nil, 0, false, errNoStart
		}
		r.buf = append(r.buf, payload...)
	default:
		return nil, 0, false, fmt.Errorf("l2cap: unexpected LLID %#x for L2CAP traffic", llid)
	}

	if len(r.buf) < r.want {
		return nil, 0, false, nil
	}
	f := frame(r.buf[:r.want])
	out = append([]byte(nil), f.payload()...)
	cid = f.cid()
	r.buf, r.want = nil, 0
	return out, cid, true, nil
}

// Reset discards any in-progress frame, used on link loss.
func (r *Reassembler) Reset() {
	r.buf, r.want = nil, 0
}
