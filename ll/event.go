package ll

import (
	"time"

	"github.com/tve/blehost/radio"
)

// Window widening accumulates per missed connection event to cover both
// sides' clock drift, per spec §9's first Open Question: the source
// carries a window_widening field but never applies it to the RX arming
// math. This implementation resolves that by compounding widening each
// event proportional to (1+slave_latency)*conn_interval and the combined
// sleep clock accuracy (local + peer SCA, worst case of each bucket),
// reset to zero only when a valid PDU re-locks the anchor point.
const (
	windowWideningCapUS = 4000
	connEventLeadUS     = 1500 // radio setup lead time before an anchor
	localSCAPPM         = 50   // this implementation's own clock accuracy budget
)

// scaPPM maps a peer's 3-bit SCA index to its worst-case ppm budget, per
// the Bluetooth core spec's sleep clock accuracy table.
var scaPPM = [8]uint32{500, 250, 150, 100, 75, 50, 30, 20}

// windowWideningStepUS returns the widening contributed by a single missed
// connection event.
func (ll *LinkLayer) windowWideningStepUS() uint32 {
	combinedPPM := localSCAPPM + scaPPM[ll.conn.SCA&0x07]
	intervalUS := ll.conn.Params.ConnIntervalUS()
	factor := uint64(1+ll.conn.Params.SlaveLatency) * intervalUS
	return uint32(factor * uint64(combinedPPM) / 1_000_000)
}

// tickConnection drives the Connection (pre-first-response) and Connected
// states. It is called once per LinkLayer.Tick.
func (ll *LinkLayer) tickConnection() error {
	now := ll.clock.NowUS()
	if ll.eventArmed {
		return ll.pollConnectionEvent()
	}
	if now+connEventLeadUS < ll.conn.AnchorPointUS {
		return nil
	}
	return ll.armConnectionEvent()
}

func (ll *LinkLayer) armConnectionEvent() error {
	hopper := ll.conn.hopper()
	ch := hopper.Next()
	ll.conn.LastUnmapped = hopper.LastUnmapped

	if err := ll.radio.SetFreqHz(DataChannelFreqHz(ch)); err != nil {
		return err
	}
	if err := ll.radio.SetSyncWord32(ll.conn.AccessAddress); err != nil {
		return err
	}
	if err := ll.radio.SetWhiteningSeed(WhiteningSeed(ch)); err != nil {
		return err
	}
	if err := ll.radio.SetCRCInit(ll.conn.CRCInit); err != nil {
		return err
	}

	md := false
	payload := ll.conn.TxBuf
	llid := ll.conn.TxLLID
	if !ll.conn.TxPending {
		llid = LLIDContinuation
		payload = nil
	}
	pdu := BuildDataPDU(llid, ll.conn.Seq.RxNESN(), ll.conn.Seq.TxSN(), md, payload)
	disconnecting := ll.conn.State == StateDisconnecting && llid == LLIDControl &&
		len(payload) >= 1 && payload[0] == OpcodeTerminateInd

	if err := ll.radio.SubmitTX(pdu); err != nil {
		return err
	}

	// Disconnect does not wait for peer acknowledgement (spec §4.2): once
	// TERMINATE_IND has been transmitted in a connection event, the link
	// tears down locally; supervision on the peer side covers the rest.
	if disconnecting {
		return ll.teardown(ReasonUserTerminated)
	}

	timeout := ll.windowWideningTimeout()
	if err := ll.radio.SetMode(radio.ModeRX, timeout); err != nil {
		return err
	}
	ll.eventArmed = true
	return nil
}

// windowWideningTimeout is the RX arm window for a connection event: spec
// §4.2 step 6 requires 2x(rx_timeout_base + window_widening).
func (ll *LinkLayer) windowWideningTimeout() time.Duration {
	w := ll.conn.WindowWideningUS
	return 2 * time.Duration(150+w) * time.Microsecond
}

// pollConnectionEvent polls the radio for the anchor response. It handles
// the happy path (valid PDU received, ack/new-data bookkeeping per spec
// §4.2) and the failure paths (CRC error -> retry same PDU without
// advancing SN; timeout -> close out the event, counted against
// supervision).
func (ll *LinkLayer) pollConnectionEvent() error {
	flags := ll.radio.PollIRQ()
	switch {
	case flags.RXDone:
		return ll.onConnectionEventRX()
	case flags.CRCError:
		ll.conn.ConsecutiveCRCErrors++
		ll.conn.TotalCRCErrors++
		return ll.closeConnectionEvent()
	case flags.Timeout:
		ll.conn.TotalTimeouts++
		return ll.closeConnectionEvent()
	}
	return nil
}

func (ll *LinkLayer) onConnectionEventRX() error {
	buf := make([]byte, 255)
	n, rssi, err := ll.radio.ReadRX(buf)
	if err != nil || n < 2 {
		return ll.closeConnectionEvent()
	}
	ll.conn.LastRSSIDBm = rssi
	ll.conn.ConsecutiveCRCErrors = 0

	h, payload, perr := ParseDataPDU(buf[:n])
	if perr != nil {
		return ll.closeConnectionEvent()
	}

	accepted, acked := ll.conn.Seq.OnReceive(h.SN(), h.NESN())
	if acked {
		ll.conn.TxPending = false
		ll.conn.TxBuf = nil
	}
	if accepted && len(payload) > 0 {
		ll.deliverPayload(h.LLID(), payload)
	}

	if ll.conn.State == StateConnection {
		ll.conn.State = StateConnected
		if ll.handler != nil {
			ll.handler.OnConnected()
		}
	}

	// Anchor-point lock: a valid received PDU resets window widening.
	ll.conn.AnchorPointUS += ll.conn.Params.ConnIntervalUS()
	ll.conn.LastGoodAnchorUS = ll.conn.AnchorPointUS
	ll.conn.WindowWideningUS = 0
	ll.eventArmed = false
	return nil
}

func (ll *LinkLayer) deliverPayload(llid byte, payload []byte) {
	switch llid {
	case LLIDControl:
		ll.handleControlPDU(payload)
	case LLIDL2CAPStart, LLIDContinuation:
		if ll.handler != nil {
			ll.handler.OnData(llid, payload)
		}
	}
}

// closeConnectionEvent ends the current connection event without a valid
// response, advances the anchor by one interval, widens the window, and
// checks the supervision timeout.
func (ll *LinkLayer) closeConnectionEvent() error {
	ll.eventArmed = false
	ll.conn.AnchorPointUS += ll.conn.Params.ConnIntervalUS()
	ll.conn.WindowWideningUS += ll.windowWideningStepUS()
	if ll.conn.WindowWideningUS > windowWideningCapUS {
		ll.conn.WindowWideningUS = windowWideningCapUS
	}
	if ll.conn.ConsecutiveCRCErrors > 6 || ll.supervisionExpired() {
		return ll.teardown(ReasonConnectionTimeout)
	}
	return nil
}

func (ll *LinkLayer) supervisionExpired() bool {
	limitUS := ll.conn.Params.SupervisionTimeoutUS()
	return ll.clock.NowUS()-ll.conn.LastGoodAnchorUS > limitUS
}
