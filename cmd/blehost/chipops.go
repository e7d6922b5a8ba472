package main

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/spi"

	"github.com/tve/blehost/radio"
	"github.com/tve/blehost/radio/periphradio"
)

// errNoChipDriver is returned by every unconfiguredChip method except
// PollIRQ (which reports no flags) and Reset (which succeeds): this binary
// ships with periphradio wired up to the SPI/GPIO host plumbing, but the
// register-level protocol for any specific 2.4GHz transceiver is left as an
// external collaborator (radio/periphradio's own doc comment). Plug in a
// real periphradio.ChipOps for the part on hand in place of this type.
var errNoChipDriver = fmt.Errorf("cmd/blehost: no transceiver driver configured, see chipops.go")

// unconfiguredChip satisfies periphradio.ChipOps so this binary links and
// starts without naming a specific transceiver; every call that configures,
// transmits or reads fails clearly instead of silently doing nothing.
type unconfiguredChip struct{}

func (unconfiguredChip) SetFreqHz(spi.Conn, uint32) error                       { return errNoChipDriver }
func (unconfiguredChip) SetBitrate(spi.Conn, radio.Bitrate, radio.ModulationIndex) error {
	return errNoChipDriver
}
func (unconfiguredChip) SetSyncWord32(spi.Conn, uint32) error { return errNoChipDriver }
func (unconfiguredChip) SetWhiteningSeed(spi.Conn, byte) error { return errNoChipDriver }
func (unconfiguredChip) SetCRCInit(spi.Conn, uint32) error     { return errNoChipDriver }
func (unconfiguredChip) SetMode(spi.Conn, radio.Mode, time.Duration) error {
	return errNoChipDriver
}
func (unconfiguredChip) SubmitTX(spi.Conn, []byte) error { return errNoChipDriver }
func (unconfiguredChip) PollIRQ(spi.Conn) radio.IRQFlags { return radio.IRQFlags{} }
func (unconfiguredChip) ReadRX(spi.Conn, []byte) (int, int, error) {
	return 0, 0, errNoChipDriver
}
func (unconfiguredChip) Reset(spi.Conn) error { return nil }

var _ periphradio.ChipOps = unconfiguredChip{}
