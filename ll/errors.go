package ll

import "fmt"

// Error kinds from spec §7. Each is a distinct sentinel so callers can use
// errors.Is; ProtocolError and UnknownDevice carry extra context via
// fmt.Errorf's %w wrapping instead of new per-instance types, following the
// same plain-errors style as the teacher (errors.New/fmt.Errorf, no custom
// error-code enums).
var (
	// ErrInvalidParams: caller violated an API pre-condition; no state change.
	ErrInvalidParams = fmt.Errorf("ll: invalid params")
	// ErrBusy: operation issued in an incompatible state; caller may retry later.
	ErrBusy = fmt.Errorf("ll: busy")
	// ErrNotConnected: operation requires the Connected state.
	ErrNotConnected = fmt.Errorf("ll: not connected")
	// ErrTimeout: radio, supervision, or response deadline exceeded.
	ErrTimeout = fmt.Errorf("ll: timeout")
	// ErrProtocol: malformed or unexpected peer PDU.
	ErrProtocol = fmt.Errorf("ll: protocol error")
	// ErrNoMemory: buffer bounds exceeded.
	ErrNoMemory = fmt.Errorf("ll: no memory")
	// ErrUnknownDevice: target address not found during a scan.
	ErrUnknownDevice = fmt.Errorf("ll: unknown device")
)

// DisconnectReason is the LL terminate/supervision reason surfaced to the
// application, loosely modeled after the Bluetooth HCI error codes named in
// spec §4.2 (only the ones this spec actually produces are enumerated).
type DisconnectReason byte

const (
	ReasonUnspecified       DisconnectReason = 0x1F
	ReasonUserTerminated    DisconnectReason = 0x13
	ReasonConnectionTimeout DisconnectReason = 0x08
	ReasonRemoteTerminated  DisconnectReason = 0x16
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonUserTerminated:
		return "user terminated"
	case ReasonConnectionTimeout:
		return "connection timeout"
	case ReasonRemoteTerminated:
		return "remote terminated"
	default:
		return fmt.Sprintf("reason(%#02x)", byte(r))
	}
}
