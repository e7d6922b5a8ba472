// Package periphradio binds the radio.Radio capability set onto periph.io's
// generic SPI and GPIO interfaces, the same host-level plumbing
// tve-devices/cmd/mqttradio uses to open spireg/gpioreg devices. It does not
// know any vendor's register map: the actual command/register encoding for
// a specific transceiver chip is an external collaborator (spec §1), plugged
// in here as a ChipOps implementation. This package only owns the host-side
// concerns: opening the bus/pin, serializing access with a mutex, bridging
// the interrupt pin to the radio-attention flag of internal/atomicflag, and
// satisfying radio.Radio by delegating each call to ChipOps.
package periphradio

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"github.com/tve/blehost/internal/atomicflag"
	"github.com/tve/blehost/radio"
)

// ChipOps is the command/register-level surface a concrete transceiver
// driver must provide. It is intentionally minimal and chip-agnostic: every
// method receives an already-open SPI connection and does whatever
// byte-level protocol the physical part requires. This is the seam at
// which a real sx1280/nRF24-class driver would plug in; none is provided
// here, matching spec §1's "out of scope" boundary.
type ChipOps interface {
	SetFreqHz(conn spi.Conn, hz uint32) error
	SetBitrate(conn spi.Conn, rate radio.Bitrate, mod radio.ModulationIndex) error
	SetSyncWord32(conn spi.Conn, aa uint32) error
	SetWhiteningSeed(conn spi.Conn, seed byte) error
	SetCRCInit(conn spi.Conn, init uint32) error
	SetMode(conn spi.Conn, mode radio.Mode, rxTimeout time.Duration) error
	SubmitTX(conn spi.Conn, pdu []byte) error
	PollIRQ(conn spi.Conn) radio.IRQFlags
	ReadRX(conn spi.Conn, buf []byte) (n int, rssiDBm int, err error)
	Reset(conn spi.Conn) error
}

// Radio wires ChipOps to a periph.io SPI port and an interrupt GPIO pin.
type Radio struct {
	conn  spi.Conn
	intr  gpio.PinIn
	ops   ChipOps
	attn  atomicflag.Flag
	log   func(format string, v ...interface{})
	close func() error
}

// Option configures New.
type Option func(*Radio)

// WithLogger installs a logging hook, following the teacher's LogPrintf
// convention; nil disables logging, which is the default.
func WithLogger(f func(format string, v ...interface{})) Option {
	return func(r *Radio) { r.log = f }
}

// New opens port at the given SPI parameters, watches intr for rising
// edges, and returns a radio.Radio that delegates to ops.
func New(port spi.PortCloser, intr gpio.PinIO, maxHz int64, mode spi.Mode, ops ChipOps, opts ...Option) (*Radio, error) {
	conn, err := port.Connect(maxHz, mode, 8)
	if err != nil {
		return nil, fmt.Errorf("periphradio: cannot configure SPI: %w", err)
	}
	if err := intr.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("periphradio: cannot configure interrupt pin: %w", err)
	}

	r := &Radio{conn: conn, intr: intr, ops: ops, close: port.Close,
		log: func(string, ...interface{}) {}}
	for _, opt := range opts {
		opt(r)
	}

	go r.watchInterrupt()
	return r, nil
}

// watchInterrupt bridges the GPIO interrupt edge to the atomic
// radio-attention flag; all actual register access happens in task context
// in response to a later PollIRQ, per spec §5.
func (r *Radio) watchInterrupt() {
	for {
		if !r.intr.WaitForEdge(-1) {
			return
		}
		r.attn.Signal()
	}
}

func (r *Radio) SetFreqHz(hz uint32) error                           { return r.ops.SetFreqHz(r.conn, hz) }
func (r *Radio) SetBitrate(rate radio.Bitrate, mod radio.ModulationIndex) error {
	return r.ops.SetBitrate(r.conn, rate, mod)
}
func (r *Radio) SetSyncWord32(aa uint32) error        { return r.ops.SetSyncWord32(r.conn, aa) }
func (r *Radio) SetWhiteningSeed(seed byte) error     { return r.ops.SetWhiteningSeed(r.conn, seed) }
func (r *Radio) SetCRCInit(init uint32) error         { return r.ops.SetCRCInit(r.conn, init) }
func (r *Radio) SetMode(mode radio.Mode, d time.Duration) error {
	return r.ops.SetMode(r.conn, mode, d)
}
func (r *Radio) SubmitTX(pdu []byte) error { return r.ops.SubmitTX(r.conn, pdu) }

// PollIRQ only consults ChipOps if the interrupt pin has signaled attention
// since the last poll, avoiding an SPI round-trip on every cooperative
// scheduling step.
func (r *Radio) PollIRQ() radio.IRQFlags {
	if !r.attn.Poll() {
		return radio.IRQFlags{}
	}
	return r.ops.PollIRQ(r.conn)
}

func (r *Radio) ReadRX(buf []byte) (int, int, error) { return r.ops.ReadRX(r.conn, buf) }
func (r *Radio) Reset() error                        { return r.ops.Reset(r.conn) }

// Close releases the underlying SPI port.
func (r *Radio) Close() error { return r.close() }

var _ radio.Radio = (*Radio)(nil)
