// Package app implements the Application FSM of spec §4.4: scan, connect,
// classify the peer, send text, disconnect, with retry/back-off and an
// idle keepalive — driven by a single non-blocking, idempotent Process
// tick, never a sleep (spec §9's Design Note).
//
// Process is called from whatever loop the caller already has (in
// cmd/blehost, a 10ms ticker goroutine); the Link Layer's own tick runs on a
// separate goroutine pinned to a realtime scheduling class (see
// internal/realtime and cmd/blehost), so FSM guards its state with a mutex
// rather than assuming single-threaded access.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/tve/blehost/att"
	"github.com/tve/blehost/internal/clock"
	"github.com/tve/blehost/l2cap"
	"github.com/tve/blehost/ll"
	"github.com/tve/blehost/radio"
)

// State is the app_state of spec §4.4.
type State int

const (
	StateInit State = iota
	StateIdle
	StateScanning
	StateConnecting
	StateConnected
	StateSending
	StateDisconnecting
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateIdle:
		return "Idle"
	case StateScanning:
		return "Scanning"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateSending:
		return "Sending"
	case StateDisconnecting:
		return "Disconnecting"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

const (
	disconnectTimeout = 1 * time.Second
	errorBackoff      = 3 * time.Second
)

// FSM is the Application context of spec §3: one FSM per process, created
// once at startup, owning the one Link Layer connection and ATT client
// that are ever live at a time.
type FSM struct {
	cfg     Config
	log     ll.LogPrintf
	handler Handler

	clock  *clock.Source
	link   *ll.LinkLayer
	att    *att.Client
	sender *att.TextSender
	reasm  l2cap.Reassembler
	stats  Stats
	tele   *Telemetry

	mu sync.Mutex

	state     State
	enteredAt time.Duration

	target     ll.Address
	hasTarget  bool
	retryCount int

	connectRequested    bool
	sendRequested       bool
	disconnectRequested bool

	pendingText         []byte
	disconnectAfterSend bool

	lastErr           error
	wantReconnect     bool
	lastConnectedAt   time.Duration
	classifyRequested bool
	cancelling        bool

	// Set from ll.Handler callbacks, which may run on a different
	// goroutine than Process; Process drains them on its next tick so
	// every state transition is stamped with the caller's own `now`
	// instead of a second, independent clock.
	scanMatched      bool
	llConnected      bool
	llDisconnected   bool
	disconnectReason ll.DisconnectReason
}

// Option configures an FSM at construction time.
type Option func(*FSM)

// WithLogger installs a logging hook shared with the underlying Link
// Layer; the default is a no-op.
func WithLogger(log ll.LogPrintf) Option {
	return func(f *FSM) { f.log = log }
}

// WithTelemetry installs a telemetry sink. A nil t is accepted and treated
// as disabled (NewTelemetry already returns nil for an unconfigured
// broker).
func WithTelemetry(t *Telemetry) Option {
	return func(f *FSM) { f.tele = t }
}

// New builds an FSM driving r through a fresh Link Layer bound to
// localAddr, configured by cfg.
func New(r radio.Radio, localAddr ll.Address, cfg Config, opts ...Option) *FSM {
	f := &FSM{
		cfg:   cfg,
		log:   func(string, ...interface{}) {},
		state: StateInit,
		clock: clock.NewSource(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.handler == nil {
		f.handler = NopHandler{}
	}

	f.link = ll.New(r, f.clock, localAddr, ll.WithLogger(f.log))
	f.link.SetHandler(f)
	f.att = att.NewClient(f.sendATT, f.clock)
	f.sender = att.NewTextSender(f.att)
	return f
}

// SetHandler installs the upcall receiver. Must be called before the first
// Process.
func (f *FSM) SetHandler(h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

// State returns the current app_state.
func (f *FSM) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LinkLayer exposes the underlying Link Layer, e.g. for cmd/blehost to
// drive its own Tick loop on a dedicated goroutine.
func (f *FSM) LinkLayer() *ll.LinkLayer { return f.link }

// Connect requests that the FSM scan for peer and connect to it. Only
// valid from Idle; returns ll.ErrBusy otherwise. The actual scan is armed
// on the next Process tick, which is what stamps the Scanning state's
// entry time — Connect itself never touches a time value, so every
// deadline the FSM tracks lives in the single time domain of the `now`
// values passed to Process.
func (f *FSM) Connect(peer ll.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return ll.ErrBusy
	}
	f.target = peer
	f.hasTarget = true
	f.retryCount = 0
	f.connectRequested = true
	return nil
}

// Scan behaves like Connect but with no target filter: it connects to the
// first advertiser heard, whoever it is. Only valid from Idle.
func (f *FSM) Scan() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return ll.ErrBusy
	}
	f.hasTarget = false
	f.retryCount = 0
	f.connectRequested = true
	return nil
}

// Send queues text for transmission once Connected. Only valid from
// Connected; returns ll.ErrBusy otherwise. As with Connect, the state
// change itself happens on the next Process tick.
func (f *FSM) Send(text []byte, disconnectAfter bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateConnected {
		return ll.ErrBusy
	}
	f.pendingText = append([]byte(nil), text...)
	f.disconnectAfterSend = disconnectAfter
	f.sendRequested = true
	return nil
}

// Disconnect requests a local disconnect. A no-op error if already
// disconnecting or idle (spec §4.2's "disconnect in Disconnecting is a
// no-op error").
func (f *FSM) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateDisconnecting || f.state == StateIdle || f.state == StateInit {
		return fmt.Errorf("app: already idle or disconnecting")
	}
	f.disconnectRequested = true
	return nil
}

// Process advances the FSM by one non-blocking, idempotent tick. now is
// the caller's own elapsed-time reading (spec §4.4: "app.FSM.Process(now
// time.Duration)"); every state deadline the FSM owns is stamped and
// compared in that same caller-supplied domain, so the FSM's own state
// timeouts do not depend on real time (see fsm_test.go). The ATT response
// timeout and the text sender's fragment spacing are the exception: they
// are timed against the FSM's internal clock.Source.
func (f *FSM) Process(now time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	nowUS := f.clock.NowUS()
	if timedOut := f.att.Process(nowUS); timedOut {
		f.lastErr = att.ErrTimeout
	}

	if f.llDisconnected {
		f.llDisconnected = false
		reason := f.disconnectReason
		f.transition(StateIdle, now)
		if f.cfg.Send.AutoReconnect && reason != ll.ReasonUserTerminated && f.hasTarget {
			f.wantReconnect = true
		}
		return
	}

	if f.disconnectRequested {
		f.disconnectRequested = false
		switch f.state {
		case StateScanning, StateConnecting:
			f.cancelConnectAttempt()
			f.hasTarget = false
			f.transition(StateIdle, now)
		case StateConnected, StateSending:
			if err := f.beginDisconnect(now, ll.ReasonUserTerminated); err != nil {
				f.log("app: disconnect request failed: %v", err)
			}
		}
	}

	switch f.state {
	case StateInit:
		f.transition(StateIdle, now)

	case StateIdle:
		if f.connectRequested {
			f.connectRequested = false
			f.beginScan(now)
		} else if f.wantReconnect {
			f.wantReconnect = false
			f.beginScan(now)
		}

	case StateScanning:
		if f.scanMatched {
			f.scanMatched = false
			f.transition(StateConnecting, now)
			break
		}
		if now-f.enteredAt >= time.Duration(f.cfg.Scan.TimeoutMS)*time.Millisecond {
			f.log("app: scan timeout")
			f.hasTarget = false
			f.transition(StateIdle, now)
		}

	case StateConnecting:
		if f.llConnected {
			f.llConnected = false
			f.retryCount = 0
			f.lastConnectedAt = now
			f.transition(StateConnected, now)
			f.handler.OnConnected(f.link.PeerAddress())
			f.tele.PublishConnect(f.link.PeerAddress().String(), true, "")
			break
		}
		if f.cancelling {
			if f.link.State() == ll.StateIdle {
				f.cancelling = false
				f.beginScan(now)
			}
			break
		}
		if now-f.enteredAt >= time.Duration(f.cfg.Connect.TimeoutMS)*time.Millisecond {
			f.retryCount++
			if f.retryCount > f.cfg.Connect.Retries {
				f.lastErr = fmt.Errorf("app: connect failed after %d retries", f.retryCount)
				f.cancelConnectAttempt()
				f.transition(StateError, now)
			} else {
				f.log("app: connect timeout, retry %d/%d", f.retryCount, f.cfg.Connect.Retries)
				f.cancelConnectAttempt()
				f.cancelling = true
			}
		}

	case StateConnected:
		_, _, _, rssi := f.link.Stats()
		f.stats.Record(rssi)
		if f.sendRequested {
			f.sendRequested = false
			f.transition(StateSending, now)
			break
		}
		if !f.classifyRequested && !f.att.Busy() {
			if err := f.att.ReadByType(0x0001, 0xFFFF, att.PrimaryServiceUUID); err == nil {
				f.classifyRequested = true
			}
		}
		if f.cfg.Send.IdleKeepaliveMS > 0 &&
			now-f.lastConnectedAt >= time.Duration(f.cfg.Send.IdleKeepaliveMS)*time.Millisecond {
			if err := f.link.EnqueueDataLLID(nil, ll.LLIDContinuation); err != nil && err != ll.ErrBusy {
				f.log("app: keepalive enqueue failed: %v", err)
			}
			f.lastConnectedAt = now
		}

	case StateSending:
		f.tickSending(now)

	case StateDisconnecting:
		if now-f.enteredAt >= disconnectTimeout {
			f.log("app: disconnect timeout, forcing Idle")
			f.transition(StateIdle, now)
		}

	case StateError:
		if now-f.enteredAt >= errorBackoff {
			f.retryCount = 0
			f.transition(StateIdle, now)
		}
	}
}

// cancelConnectAttempt asks the Link Layer to abandon an in-progress
// connection attempt so a fresh scan can be armed; StartScan refuses
// re-entry until ll returns to Idle (spec §3: exactly one Conn at a time).
func (f *FSM) cancelConnectAttempt() {
	switch f.link.State() {
	case ll.StateIdle:
	case ll.StateScanning:
		_ = f.link.StopScan()
	default:
		_ = f.link.Disconnect(ll.ReasonUserTerminated)
	}
}

func (f *FSM) beginScan(now time.Duration) {
	filter := func(addr ll.Address, advType byte) bool {
		return !f.hasTarget || addr.Equal(f.target)
	}
	err := f.link.StartScan(ll.ScanOptions{
		Filter:      filter,
		AutoConnect: true,
		ConnParams:  f.cfg.ConnParams(),
	})
	if err != nil {
		f.lastErr = err
		f.transition(StateError, now)
		return
	}
	f.transition(StateScanning, now)
}

func (f *FSM) tickSending(now time.Duration) {
	if !f.sender.Active() {
		if err := f.sender.Start(f.peerTxHandle(), f.pendingText); err != nil {
			f.finishSend(now, err)
			return
		}
	}
	done, err := f.sender.Process(f.clock.NowUS())
	if !done {
		return
	}
	f.finishSend(now, err)
}

func (f *FSM) finishSend(now time.Duration, err error) {
	f.pendingText = nil
	f.handler.OnSendComplete(err)
	if err != nil {
		f.lastErr = err
		f.transition(StateError, now)
		return
	}
	if f.disconnectAfterSend {
		if err := f.beginDisconnect(now, ll.ReasonUserTerminated); err != nil {
			f.log("app: disconnect-after-send failed: %v", err)
		}
		return
	}
	f.lastConnectedAt = now
	f.transition(StateConnected, now)
}

func (f *FSM) beginDisconnect(now time.Duration, reason ll.DisconnectReason) error {
	if err := f.link.Disconnect(reason); err != nil {
		return err
	}
	f.transition(StateDisconnecting, now)
	return nil
}

func (f *FSM) peerTxHandle() uint16 {
	return f.att.Handles.TxChar
}

func (f *FSM) transition(to State, now time.Duration) {
	from := f.state
	f.state = to
	f.enteredAt = now
	f.handler.OnStateChange(from, to)
	if to == StateError && f.lastErr != nil {
		f.handler.OnError(f.lastErr)
	}
}

func (f *FSM) sendATT(pdu []byte) error {
	frame := l2cap.BuildFrame(l2cap.CIDATT, pdu)
	return f.link.EnqueueData(frame)
}

// --- ll.Handler ---

// OnScanMatch is called from the Link Layer's goroutine. It only flags the
// match; the Scanning->Connecting transition itself happens on the next
// Process tick so it is stamped with the caller's own time domain.
func (f *FSM) OnScanMatch(addr ll.Address, rssiDBm int, advData []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateScanning {
		f.scanMatched = true
	}
}

// OnConnected begins ATT MTU exchange and peer classification and flags
// the connection as live; Process performs the actual Connecting->
// Connected transition.
func (f *FSM) OnConnected() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.Reset()
	f.reasm.Reset()
	f.classifyRequested = false
	if err := f.att.ExchangeMTU(att.MaxMTU); err != nil {
		f.log("app: MTU exchange failed: %v", err)
	}
	f.llConnected = true
}

// OnDisconnected tears down ATT/L2CAP state and flags the link as down;
// Process performs the actual transition to Idle (and, per spec §4.4's
// "peer_initiated_disconnect & auto_reconnect & reason!=user" rule, arms a
// reconnect) on its next tick.
func (f *FSM) OnDisconnected(reason ll.DisconnectReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasm.Reset()
	f.pendingText = nil
	f.tele.PublishConnect(f.link.PeerAddress().String(), false, reason.String())
	f.tele.PublishRSSI(f.link.PeerAddress().String(), f.stats.Samples())
	f.handler.OnDisconnected(reason)

	f.llDisconnected = true
	f.disconnectReason = reason
}

// OnData feeds L2CAP reassembly and, once a complete ATT frame has
// accumulated, hands it to the ATT client.
func (f *FSM) OnData(llid byte, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, cid, complete, err := f.reasm.Feed(llid, payload)
	if err != nil {
		f.log("app: l2cap reassembly error: %v", err)
		return
	}
	if !complete {
		return
	}
	if cid == l2cap.CIDATT {
		f.att.HandleFrame(out)
	}
}
