// Package simradio is an in-memory loopback implementation of radio.Radio,
// used to exercise ll's scan/connect/connection-event state machine without
// real air time. Two Radios are created as a Pair; a SubmitTX on one side
// is delivered to the other side's RX path if (and only if) the other side
// is armed for RX when the transmission happens — exactly like a real
// transceiver, a packet transmitted while the peer isn't listening is lost.
//
// The architecture (mutex-guarded mode, an IRQ-flags accumulator drained by
// PollIRQ, a logging hook) mirrors tve-devices/sx1231's Radio struct, with
// the SPI bus replaced by a direct channel to the peer Radio.
package simradio

import (
	"errors"
	"sync"
	"time"

	"github.com/tve/blehost/radio"
)

// CorruptFunc lets a test mutate or drop a PDU in flight, simulating CRC
// errors or interference. Returning ok=false drops the packet.
type CorruptFunc func(pdu []byte) (corrupted []byte, ok bool)

// Radio is one side of a simulated radio pair.
type Radio struct {
	mu sync.Mutex

	peer *Radio
	log  func(format string, v ...interface{})

	mode      radio.Mode
	freqHz    uint32
	syncWord  uint32
	whitening byte
	crcInit   uint32

	rxBuf   []byte
	rxRSSI  int
	irq     radio.IRQFlags
	rxTimer *time.Timer

	// Corrupt, when set, is applied to every PDU this radio transmits
	// before delivery to its peer.
	Corrupt CorruptFunc
	// RSSI is reported on every delivered RX.
	RSSI int
}

// NewPair returns two Radios wired to each other.
func NewPair(log func(format string, v ...interface{})) (a, b *Radio) {
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	a = &Radio{log: log, RSSI: -60}
	b = &Radio{log: log, RSSI: -60}
	a.peer, b.peer = b, a
	return a, b
}

func (r *Radio) SetFreqHz(hz uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.freqHz = hz
	return nil
}

func (r *Radio) SetBitrate(rate radio.Bitrate, mod radio.ModulationIndex) error {
	return nil
}

func (r *Radio) SetSyncWord32(aa uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncWord = aa
	return nil
}

func (r *Radio) SetWhiteningSeed(seed byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.whitening = seed
	return nil
}

func (r *Radio) SetCRCInit(init uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.crcInit = init
	return nil
}

func (r *Radio) SetMode(mode radio.Mode, rxTimeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
	if r.rxTimer != nil {
		r.rxTimer.Stop()
		r.rxTimer = nil
	}
	if mode == radio.ModeRX && rxTimeout > 0 {
		r.rxTimer = time.AfterFunc(rxTimeout, func() {
			r.mu.Lock()
			if r.mode == radio.ModeRX {
				r.irq.Timeout = true
			}
			r.mu.Unlock()
		})
	}
	return nil
}

func (r *Radio) SubmitTX(pdu []byte) error {
	r.mu.Lock()
	syncWord, whitening, crcInit := r.syncWord, r.whitening, r.crcInit
	corrupt := r.Corrupt
	peer := r.peer
	r.irq.TXDone = true
	r.mu.Unlock()

	out := append([]byte(nil), pdu...)
	ok := true
	if corrupt != nil {
		out, ok = corrupt(out)
	}
	if !ok {
		r.log("simradio: tx corrupted/dropped in flight")
		return nil
	}

	peer.deliver(out, syncWord, whitening, crcInit, r.RSSI)
	return nil
}

// deliver is called on the receiving side when its peer transmits. It only
// has an effect if this radio is currently armed for RX and configured with
// the matching sync word; a real transceiver would similarly only sync-match
// and accept a packet while listening on the right channel/AA.
func (r *Radio) deliver(pdu []byte, syncWord uint32, whitening byte, crcInit uint32, rssi int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode != radio.ModeRX {
		return
	}
	if r.syncWord != syncWord {
		return
	}
	if r.rxTimer != nil {
		r.rxTimer.Stop()
		r.rxTimer = nil
	}
	r.rxBuf = pdu
	r.rxRSSI = rssi
	r.irq.RXDone = true
}

func (r *Radio) PollIRQ() radio.IRQFlags {
	r.mu.Lock()
	defer r.mu.Unlock()
	flags := r.irq
	r.irq = radio.IRQFlags{}
	return flags
}

func (r *Radio) ReadRX(buf []byte) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rxBuf == nil {
		return 0, 0, errors.New("simradio: no packet available")
	}
	n := copy(buf, r.rxBuf)
	rssi := r.rxRSSI
	r.rxBuf = nil
	return n, rssi, nil
}

func (r *Radio) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = radio.ModeStandby
	r.rxBuf = nil
	r.irq = radio.IRQFlags{}
	if r.rxTimer != nil {
		r.rxTimer.Stop()
		r.rxTimer = nil
	}
	return nil
}

var _ radio.Radio = (*Radio)(nil)
