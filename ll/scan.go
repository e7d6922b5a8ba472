package ll

import (
	"time"

	"github.com/tve/blehost/radio"
)

// ScanOptions configures a scan/initiate pass (spec §4.2).
type ScanOptions struct {
	// Filter, if non-nil, is consulted for every received advertising PDU;
	// only addresses for which it returns true are reported/connected to.
	Filter func(addr Address, advType byte) bool
	// AutoConnect, when set, causes the Link Layer to send CONNECT_IND to
	// the first matching advertiser instead of only reporting it.
	AutoConnect bool
	ConnParams  ConnParams
}

// scanState is the rotating advertising-channel scanner. It owns no
// goroutine: LinkLayer.tick drives it once per call, matching the
// cooperative-polling model of spec §5.
type scanState struct {
	opts       ScanOptions
	chanIdx    int
	windowEnds uint64
	scanWinUS  uint64
}

const scanWindowUS = 10_000 // 10ms per advertising channel, spec §4.2 default

// startScan arms the radio for the first advertising channel.
func (ll *LinkLayer) startScan(opts ScanOptions) error {
	if ll.conn.State != StateIdle {
		return ErrBusy
	}
	if err := ll.radio.SetBitrate(radio.Rate1Mbps, radio.ModIndex05); err != nil {
		return err
	}
	ll.scan = scanState{opts: opts}
	ll.conn.State = StateScanning
	return ll.armScanChannel()
}

func (ll *LinkLayer) armScanChannel() error {
	ch := AdvChannels[ll.scan.chanIdx]
	if err := ll.radio.SetFreqHz(AdvChannelFreqHz(ch)); err != nil {
		return err
	}
	if err := ll.radio.SetSyncWord32(AdvertisingAccessAddress); err != nil {
		return err
	}
	if err := ll.radio.SetWhiteningSeed(WhiteningSeed(int(ch))); err != nil {
		return err
	}
	if err := ll.radio.SetCRCInit(AdvertisingCRCInit); err != nil {
		return err
	}
	if err := ll.radio.SetMode(radio.ModeRX, scanWindowUS*time.Microsecond); err != nil {
		return err
	}
	ll.scan.windowEnds = ll.clock.NowUS() + scanWindowUS
	return nil
}

// tickScan polls the radio once. It is called from LinkLayer.Tick while
// state == StateScanning.
func (ll *LinkLayer) tickScan() error {
	flags := ll.radio.PollIRQ()
	switch {
	case flags.RXDone:
		buf := make([]byte, 64)
		n, rssi, err := ll.radio.ReadRX(buf)
		if err == nil && n >= 2 {
			ll.handleAdvPDU(buf[:n], rssi)
		}
		return ll.rotateScanChannel()
	case flags.Timeout, ll.clock.NowUS() >= ll.scan.windowEnds:
		return ll.rotateScanChannel()
	case flags.CRCError:
		return ll.rotateScanChannel()
	}
	return nil
}

func (ll *LinkLayer) rotateScanChannel() error {
	ll.scan.chanIdx = (ll.scan.chanIdx + 1) % len(AdvChannels)
	return ll.armScanChannel()
}

func (ll *LinkLayer) handleAdvPDU(buf []byte, rssi int) {
	h := AdvHeader{buf[0], buf[1]}
	if int(h.Length()) > len(buf)-2 {
		return
	}
	payload := buf[2 : 2+int(h.Length())]
	if len(payload) < 6 {
		return
	}
	var addr Address
	copy(addr.Bytes[:], payload[:6])
	if h.TxAddRandom() {
		addr.Type = AddrRandom
	} else {
		addr.Type = AddrPublic
	}
	if ll.scan.opts.Filter != nil && !ll.scan.opts.Filter(addr, h.Type()) {
		return
	}
	advData := payload[6:]
	if ll.handler != nil {
		ll.handler.OnScanMatch(addr, rssi, advData)
	}
	if ll.scan.opts.AutoConnect && h.Type() == PDUAdvInd {
		ll.beginInitiate(addr, ll.scan.opts.ConnParams)
	}
}

// beginInitiate transmits CONNECT_IND on the channel the matching
// advertisement was heard on and, on success, moves directly to
// StateConnection; StateInitiating is never entered (this implementation
// does not separately model the post-CONNECT_IND "ignore window" since the
// simulated/host radios used here are single-peer).
func (ll *LinkLayer) beginInitiate(peer Address, params ConnParams) {
	aa := GenerateAccessAddress(ll.rng)
	crcInit := ll.rng.Next() & 0xFFFFFF
	chMap := AllChannels()
	hop := HopIncrement(5 + ll.rng.Uint32()%12)

	ci := ConnectInd{
		InitA:         ll.conn.LocalAddr,
		AdvA:          peer,
		AccessAddress: aa,
		CRCInit:       crcInit,
		WinSize:       2,
		WinOffset:     1,
		Interval:      params.ConnIntervalUnits,
		Latency:       params.SlaveLatency,
		Timeout:       params.SupervisionTimeoutUnits,
		ChannelMap:    chMap,
		HopIncrement:  hop,
		SCA:           0,
	}
	hdr := NewAdvHeader(PDUConnectInd, ll.conn.LocalAddr.Type == AddrRandom, peer.Type == AddrRandom, 34)
	pdu := append([]byte{hdr[0], hdr[1]}, ci.Marshal()...)
	if err := ll.radio.SubmitTX(pdu); err != nil {
		ll.log("ll: CONNECT_IND tx failed: %v", err)
		return
	}

	ll.conn.State = StateConnection
	ll.conn.PeerAddr = peer
	ll.conn.AccessAddress = aa
	ll.conn.CRCInit = crcInit
	ll.conn.Params = params
	ll.conn.ChannelMap = chMap
	ll.conn.HopIncrement = hop
	ll.conn.LastUnmapped = 0
	ll.conn.EventCounter = 0
	ll.conn.Seq.Reset()
	ll.conn.AnchorPointUS = ll.clock.NowUS() + uint64(ci.WinOffset+1)*1250
	ll.conn.LastGoodAnchorUS = ll.conn.AnchorPointUS
	ll.conn.WindowWideningUS = 0
}

// stopScan returns the Link Layer to Idle from Scanning.
func (ll *LinkLayer) stopScan() error {
	if ll.conn.State != StateScanning {
		return ErrNotConnected
	}
	if err := ll.radio.SetMode(radio.ModeStandby, 0); err != nil {
		return err
	}
	ll.conn.State = StateIdle
	return nil
}
