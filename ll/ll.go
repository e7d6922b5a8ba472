// Package ll implements the BLE Link Layer: scanning and initiating,
// connection-event scheduling with data-channel hopping, stop-and-wait
// data PDU framing, and the LL control PDU subset of spec §4.2.
//
// The layer is single-threaded and cooperative: Tick must be called
// frequently (from a tight realtime loop, see internal/realtime) and never
// blocks. All radio I/O happens through the radio.Radio interface, which
// itself is non-blocking (spec §5).
package ll

import (
	"github.com/tve/blehost/internal/clock"
	"github.com/tve/blehost/internal/lfsr"
	"github.com/tve/blehost/radio"
)

// LogPrintf is the logging hook used throughout this module, matching the
// zero-global-state logging convention carried from the device-driver
// ambient stack this module was built from.
type LogPrintf func(format string, v ...interface{})

// Handler receives upcalls from the Link Layer. Implementations must
// return quickly: they are invoked from within Tick.
type Handler interface {
	// OnScanMatch reports a filter-accepted advertising PDU.
	OnScanMatch(addr Address, rssiDBm int, advData []byte)
	// OnConnected reports that the connection has received its first
	// valid response from the peer and is now live.
	OnConnected()
	// OnDisconnected reports the connection has ended, locally or
	// remotely initiated, or by supervision timeout.
	OnDisconnected(reason DisconnectReason)
	// OnData delivers an in-order data PDU payload (LLID indicates
	// L2CAP-start vs. continuation) to the layer above (l2cap).
	OnData(llid byte, payload []byte)
}

// LinkLayer is the top-level, process-wide Link Layer instance. Exactly
// one Conn lives inside it at a time (spec §3); StartScan rejects re-entry
// with ErrBusy while one is in progress.
type LinkLayer struct {
	radio   radio.Radio
	clock   *clock.Source
	rng     *lfsr.LFSR
	log     LogPrintf
	handler Handler

	conn       Conn
	scan       scanState
	eventArmed bool

	versionReceived bool
}

// Option configures a LinkLayer at construction time.
type Option func(*LinkLayer)

// WithLogger installs a logging hook; the default is a no-op.
func WithLogger(log LogPrintf) Option {
	return func(ll *LinkLayer) { ll.log = log }
}

// WithRNGSeed seeds the access-address/hop-increment generator
// deterministically, for tests.
func WithRNGSeed(seed uint32) Option {
	return func(ll *LinkLayer) { ll.rng = lfsr.New(seed) }
}

// New builds a LinkLayer bound to r, using src as its microsecond time
// source, with local identified by addr.
func New(r radio.Radio, src *clock.Source, addr Address, opts ...Option) *LinkLayer {
	ll := &LinkLayer{
		radio: r,
		clock: src,
		rng:   lfsr.New(uint32(src.NowUS()) | 1),
		log:   func(string, ...interface{}) {},
		conn:  Conn{State: StateIdle, LocalAddr: addr},
	}
	for _, opt := range opts {
		opt(ll)
	}
	return ll
}

// SetHandler installs the upcall receiver.
func (ll *LinkLayer) SetHandler(h Handler) { ll.handler = h }

// State returns the current Link Layer state.
func (ll *LinkLayer) State() State { return ll.conn.State }

// StartScan begins scanning/initiating per opts.
func (ll *LinkLayer) StartScan(opts ScanOptions) error { return ll.startScan(opts) }

// StopScan halts an in-progress scan, returning to Idle.
func (ll *LinkLayer) StopScan() error { return ll.stopScan() }

// EnqueueData stages payload (L2CAP fragment) for transmission in the next
// connection event. Only one payload may be pending at a time (stop-and-
// wait, spec §4.2); ErrBusy is returned if one is already in flight.
func (ll *LinkLayer) EnqueueData(payload []byte) error {
	return ll.EnqueueDataLLID(payload, LLIDL2CAPStart)
}

// EnqueueDataLLID is EnqueueData with an explicit LLID, for staging
// L2CAP-continuation fragments or empty keep-alive PDUs (LLIDContinuation)
// as well as the first fragment of a frame (LLIDL2CAPStart).
func (ll *LinkLayer) EnqueueDataLLID(payload []byte, llid byte) error {
	if ll.conn.State != StateConnected {
		return ErrNotConnected
	}
	if ll.conn.TxPending {
		return ErrBusy
	}
	ll.conn.TxBuf = payload
	ll.conn.TxLLID = llid
	ll.conn.TxPending = true
	return nil
}

// TxIdle reports whether the stop-and-wait TX slot is free, i.e. whether
// the caller may EnqueueData(LLID) another fragment.
func (ll *LinkLayer) TxIdle() bool { return !ll.conn.TxPending }

// Disconnect initiates a local disconnect with the given reason.
func (ll *LinkLayer) Disconnect(reason DisconnectReason) error { return ll.disconnect(reason) }

// ConnParamsInUse returns the active connection parameters, or the zero
// value when not connected.
func (ll *LinkLayer) ConnParamsInUse() ConnParams { return ll.conn.Params }

// PeerAddress returns the address of the current or most recent peer.
func (ll *LinkLayer) PeerAddress() Address { return ll.conn.PeerAddr }

// Stats returns the running error counters for diagnostics/telemetry.
func (ll *LinkLayer) Stats() (consecutiveCRC, totalCRC, totalTimeouts int, lastRSSI int) {
	return ll.conn.ConsecutiveCRCErrors, ll.conn.TotalCRCErrors, ll.conn.TotalTimeouts, ll.conn.LastRSSIDBm
}

// Tick drives the state machine by one step. It must never block and
// should be called as often as the realtime budget allows (spec §5); a
// typical caller is a tight loop pinned to a FIFO/RR thread via
// internal/realtime.
func (ll *LinkLayer) Tick() error {
	switch ll.conn.State {
	case StateIdle:
		return nil
	case StateScanning:
		return ll.tickScan()
	case StateConnection, StateConnected, StateDisconnecting:
		return ll.tickConnection()
	default:
		return nil
	}
}
