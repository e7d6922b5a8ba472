// Package radio defines the capability set the Link Layer consumes from the
// 2.4 GHz transceiver: set frequency, sync word, whitening seed, and CRC
// init; submit a TX buffer; arm RX with a timeout; read the RX buffer; and
// report IRQ status. Whitening, CRC, and preamble generation are all
// performed by the radio hardware when it is configured for BLE PHY — the
// Link Layer never computes them on the air path itself, it only configures
// the registers that drive them.
//
// Concrete chip drivers (register maps, SPI framing for a specific part)
// are external collaborators and are not specified here; see
// radio/periphradio for a generic host-level binding and radio/simradio for
// an in-memory loopback pair used by ll's tests.
package radio

import "time"

// Mode is an operating mode of the radio.
type Mode int

const (
	ModeStandby Mode = iota
	ModeTX
	ModeRX
)

// IRQFlags reports the interrupt causes observed since the last Poll.
type IRQFlags struct {
	TXDone   bool
	RXDone   bool
	CRCError bool
	Timeout  bool
}

// None reports whether no flag is set.
func (f IRQFlags) None() bool {
	return !f.TXDone && !f.RXDone && !f.CRCError && !f.Timeout
}

// Bitrate is one of the four PHY bit rates the capability set must expose,
// per spec §6. This implementation only ever drives Rate1Mbps (BLE 1M PHY)
// but the radio interface carries the full enumeration since a concrete
// transceiver configures the same register for all of them.
type Bitrate int

const (
	Rate1Mbps Bitrate = iota
	Rate500Kbps
	Rate250Kbps
	Rate125Kbps
)

// ModulationIndex is the GFSK modulation index, per spec §6.
type ModulationIndex int

const (
	ModIndex05 ModulationIndex = iota // 0.5, used for BLE 1M PHY
	ModIndex075
	ModIndex10
)

// Radio is the capability set the Link Layer requires. Implementations must
// not busy-wait internally; SetMode(ModeRX, timeout) returns immediately,
// leaving the caller to PollIRQ for completion between cooperative scheduling
// steps, per spec §4.1 and §5.
type Radio interface {
	// SetFreqHz tunes the center frequency.
	SetFreqHz(hz uint32) error
	// SetBitrate configures the PHY bit rate and modulation index. Only
	// Rate1Mbps/ModIndex05 is exercised by this BLE 1M PHY implementation.
	SetBitrate(rate Bitrate, mod ModulationIndex) error
	// SetSyncWord32 sets the 4-byte access-address sync word.
	SetSyncWord32(aa uint32) error
	// SetWhiteningSeed sets the whitening LFSR seed (channel | 0x40).
	SetWhiteningSeed(seed byte) error
	// SetCRCInit sets the 24-bit CRC seed used for this PDU/connection.
	SetCRCInit(init uint32) error

	// SetMode switches the radio between Standby, TX, and RX. For RX, a
	// zero timeout means "no timeout" (not used by this spec: the Link
	// Layer always arms RX with an explicit window).
	SetMode(mode Mode, rxTimeout time.Duration) error

	// SubmitTX hands a fully framed PDU (header+payload, no preamble/AA/CRC)
	// to the radio for transmission. The radio computes and appends CRC-24
	// and whitens the payload; the caller must have already called
	// SetSyncWord32/SetWhiteningSeed/SetCRCInit for this packet.
	SubmitTX(pdu []byte) error

	// PollIRQ returns and clears the interrupt flags observed since the
	// last call. Must never block.
	PollIRQ() IRQFlags

	// ReadRX copies the most recently received, de-whitened,
	// CRC-validated-or-not PDU (header+payload, CRC already stripped and
	// checked by hardware) into the caller's buffer, returning the number
	// of bytes copied and the RSSI in dBm.
	ReadRX(buf []byte) (n int, rssiDBm int, err error)

	// Reset returns the radio to a known Standby state.
	Reset() error
}
