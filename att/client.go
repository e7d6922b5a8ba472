package att

import (
	"encoding/binary"

	"github.com/tve/blehost/internal/clock"
)

// attResponseTimeoutUS bounds how long the client waits for a transactional
// response before surfacing ErrTimeout (spec §4.3's per-request timeout).
const attResponseTimeoutUS = 1_000_000

// NotificationHandler receives inbound HandleValueNtf/HandleValueInd
// payloads. Implementations must return quickly: they are called from
// within Client.HandleFrame.
type NotificationHandler interface {
	OnNotify(handle uint16, value []byte, indication bool)
}

// SendFunc hands one complete ATT PDU down to L2CAP/LL for transmission.
type SendFunc func(pdu []byte) error

// Client is the ATT client context of spec §3: at most one transactional
// request outstanding, a single-slot response rendezvous, and a cached
// peer classification. It has no goroutines of its own; HandleFrame and
// Process are both called synchronously from the layer above (app), which
// in turn is driven by the caller's own non-blocking tick.
type Client struct {
	send  SendFunc
	clock *clock.Source

	mtu int

	pendingOpcode     byte // 0 == no transactional request outstanding
	pendingDeadlineUS uint64
	respBuf           []byte
	respReceived      bool

	PeerClass PeerClass
	Handles   HandleSet

	notify      NotificationHandler
	authHandler AuthHandler
}

// NewClient builds a Client that transmits PDUs via send and times
// transactions against src.
func NewClient(send SendFunc, src *clock.Source) *Client {
	return &Client{send: send, clock: src, mtu: DefaultMTU}
}

// SetNotificationHandler installs the upcall receiver for notifications
// and indications.
func (c *Client) SetNotificationHandler(h NotificationHandler) { c.notify = h }

// MTU returns the negotiated ATT MTU.
func (c *Client) MTU() int { return c.mtu }

// Busy reports whether a transactional request is outstanding.
func (c *Client) Busy() bool { return c.pendingOpcode != 0 }

func (c *Client) request(opcode byte, pdu []byte) error {
	if c.Busy() {
		return ErrBusy
	}
	if err := c.send(pdu); err != nil {
		return err
	}
	c.pendingOpcode = opcode
	c.pendingDeadlineUS = c.clock.NowUS() + attResponseTimeoutUS
	c.respReceived = false
	return nil
}

// ExchangeMTU issues ExchangeMtuReq with the client's own receive MTU.
func (c *Client) ExchangeMTU(clientMTU int) error {
	if clientMTU < DefaultMTU || clientMTU > MaxMTU {
		return ErrInvalidArgument
	}
	pdu := make([]byte, 3)
	pdu[0] = OpcodeExchangeMtuReq
	binary.LittleEndian.PutUint16(pdu[1:3], uint16(clientMTU))
	if err := c.request(OpcodeExchangeMtuReq, pdu); err != nil {
		return err
	}
	c.mtu = clientMTU
	return nil
}

// ReadByType issues ReadByTypeReq(startHandle, endHandle, uuid16). Used
// during peer classification with the Primary Service UUID.
func (c *Client) ReadByType(startHandle, endHandle, uuid16 uint16) error {
	if startHandle == 0 || startHandle > endHandle {
		return ErrInvalidArgument
	}
	pdu := make([]byte, 7)
	pdu[0] = OpcodeReadByTypeReq
	binary.LittleEndian.PutUint16(pdu[1:3], startHandle)
	binary.LittleEndian.PutUint16(pdu[3:5], endHandle)
	binary.LittleEndian.PutUint16(pdu[5:7], uuid16)
	return c.request(OpcodeReadByTypeReq, pdu)
}

// Read issues ReadReq(handle).
func (c *Client) Read(handle uint16) error {
	pdu := make([]byte, 3)
	pdu[0] = OpcodeReadReq
	binary.LittleEndian.PutUint16(pdu[1:3], handle)
	return c.request(OpcodeReadReq, pdu)
}

// WriteReq issues WriteReq(handle, value), consuming the transaction slot
// until the peer's WriteRsp (or ErrorRsp) arrives.
func (c *Client) WriteReq(handle uint16, value []byte) error {
	if len(value) > c.mtu-3 {
		return ErrInvalidArgument
	}
	pdu := make([]byte, 3+len(value))
	pdu[0] = OpcodeWriteReq
	binary.LittleEndian.PutUint16(pdu[1:3], handle)
	copy(pdu[3:], value)
	return c.request(OpcodeWriteReq, pdu)
}

// WriteCmd issues an unacknowledged write, bypassing the transaction slot
// entirely (spec §4.3: "WriteCmd ... do[es] not consume the transaction
// slot").
func (c *Client) WriteCmd(handle uint16, value []byte) error {
	if len(value) > c.mtu-3 {
		return ErrInvalidArgument
	}
	pdu := make([]byte, 3+len(value))
	pdu[0] = OpcodeWriteCmd
	binary.LittleEndian.PutUint16(pdu[1:3], handle)
	copy(pdu[3:], value)
	return c.send(pdu)
}

// HandleFrame processes one reassembled ATT PDU received from the peer.
// Notifications and indications are delivered immediately and never touch
// the transaction slot; indications draw an automatic confirmation.
// Anything else is treated as the response to the outstanding request, if
// any — an unsolicited response with no pending request is dropped.
func (c *Client) HandleFrame(payload []byte) {
	if len(payload) == 0 {
		return
	}
	opcode := payload[0]
	switch opcode {
	case OpcodeHandleValueNtf, OpcodeHandleValueInd:
		if len(payload) < 3 {
			return
		}
		handle := binary.LittleEndian.Uint16(payload[1:3])
		value := payload[3:]
		if c.notify != nil {
			c.notify.OnNotify(handle, value, opcode == OpcodeHandleValueInd)
		}
		if opcode == OpcodeHandleValueInd {
			c.send([]byte{OpcodeHandleValueCfm})
		}
	default:
		if !c.Busy() {
			return
		}
		c.applyResponse(opcode, payload)
	}
}

func (c *Client) applyResponse(opcode byte, payload []byte) {
	switch {
	case opcode == OpcodeExchangeMtuRsp && len(payload) == 3:
		serverMTU := int(binary.LittleEndian.Uint16(payload[1:3]))
		if serverMTU < c.mtu {
			c.mtu = serverMTU
		}
	case opcode == OpcodeReadByTypeRsp && len(payload) >= 2:
		c.PeerClass, c.Handles = ClassifyFromReadByType(int(payload[1]), payload[2:])
	}
	c.respBuf = append([]byte(nil), payload...)
	c.respReceived = true
	c.pendingOpcode = 0
}

// Process advances the pending-request timeout. It returns true exactly
// once, the tick the deadline is crossed with no response received; the
// caller should then treat the transaction as ErrTimeout.
func (c *Client) Process(nowUS uint64) bool {
	if !c.Busy() {
		return false
	}
	if nowUS >= c.pendingDeadlineUS {
		c.pendingOpcode = 0
		c.respReceived = false
		return true
	}
	return false
}

// TakeResponse drains the single-slot response rendezvous. ok is false if
// no response is waiting yet.
func (c *Client) TakeResponse() (resp []byte, ok bool) {
	if !c.respReceived {
		return nil, false
	}
	resp, c.respBuf = c.respBuf, nil
	c.respReceived = false
	return resp, true
}

// IsErrorResponse reports whether resp is an ATT ErrorRsp and, if so,
// decodes it into a *PeerError.
func IsErrorResponse(resp []byte) (*PeerError, bool) {
	if len(resp) != 5 || resp[0] != OpcodeErrorRsp {
		return nil, false
	}
	return &PeerError{
		Opcode:    resp[1],
		Handle:    binary.LittleEndian.Uint16(resp[2:4]),
		ErrorCode: resp[4],
	}, true
}
