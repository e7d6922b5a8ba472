package ll

import (
	"fmt"
	"math/bits"
)

// ConnParams are the negotiable connection parameters of spec §3.
type ConnParams struct {
	// ConnIntervalUnits is in units of 1.25ms; valid range [6,3200]
	// (7.5ms..4s).
	ConnIntervalUnits uint16
	// SlaveLatency is unitless, valid range [0,499].
	SlaveLatency uint16
	// SupervisionTimeoutUnits is in units of 10ms; valid range [10,3200]
	// (100ms..32s).
	SupervisionTimeoutUnits uint16
}

const (
	minConnIntervalUnits = 6    // 7.5ms / 1.25ms
	maxConnIntervalUnits = 3200 // 4s / 1.25ms
	maxSlaveLatency      = 499
	minSupervisionUnits  = 10   // 100ms / 10ms
	maxSupervisionUnits  = 3200 // 32s / 10ms
)

// ConnIntervalUS returns the connection interval in microseconds.
func (p ConnParams) ConnIntervalUS() uint64 {
	return uint64(p.ConnIntervalUnits) * 1250
}

// SupervisionTimeoutUS returns the supervision timeout in microseconds.
func (p ConnParams) SupervisionTimeoutUS() uint64 {
	return uint64(p.SupervisionTimeoutUnits) * 10000
}

// Validate checks the bounds and cross-field invariant of spec §3:
// timeout > (1+latency) * interval * 2.
func (p ConnParams) Validate() error {
	if p.ConnIntervalUnits < minConnIntervalUnits || p.ConnIntervalUnits > maxConnIntervalUnits {
		return fmt.Errorf("%w: conn_interval %dus out of range [7.5ms,4s]", ErrInvalidParams, p.ConnIntervalUS())
	}
	if p.SlaveLatency > maxSlaveLatency {
		return fmt.Errorf("%w: slave_latency %d out of range [0,499]", ErrInvalidParams, p.SlaveLatency)
	}
	if p.SupervisionTimeoutUnits < minSupervisionUnits || p.SupervisionTimeoutUnits > maxSupervisionUnits {
		return fmt.Errorf("%w: supervision_timeout %dms out of range [100ms,32s]", ErrInvalidParams, p.SupervisionTimeoutUnits*10)
	}
	minTimeout := 2 * uint64(1+p.SlaveLatency) * p.ConnIntervalUS() / 1000 // ms
	if uint64(p.SupervisionTimeoutUnits)*10 <= minTimeout {
		return fmt.Errorf("%w: supervision_timeout must exceed 2*(1+latency)*interval", ErrInvalidParams)
	}
	return nil
}

// ChannelMap is the 37-bit data channel bitmap of spec §3, bit i set means
// data channel i (0..36) is used.
type ChannelMap uint64

const maxDataChannels = 37

// NewChannelMap builds a ChannelMap from the channel indices listed in used.
func NewChannelMap(used ...int) ChannelMap {
	var m ChannelMap
	for _, c := range used {
		m |= 1 << uint(c)
	}
	return m
}

// AllChannels is the channel map with all 37 data channels marked used.
func AllChannels() ChannelMap {
	return ChannelMap(1<<maxDataChannels) - 1
}

// NumUsed returns popcount(channel_map).
func (m ChannelMap) NumUsed() int {
	return bits.OnesCount64(uint64(m))
}

// Bit reports whether data channel ch is marked used.
func (m ChannelMap) Bit(ch int) bool {
	return m&(1<<uint(ch)) != 0
}

// NthUsed returns the nth (0-indexed) used channel, scanning low to high bit.
func (m ChannelMap) NthUsed(n int) int {
	for ch := 0; ch < maxDataChannels; ch++ {
		if m.Bit(ch) {
			if n == 0 {
				return ch
			}
			n--
		}
	}
	panic("ll: NthUsed index out of range")
}

// Validate enforces spec §3's num_used_channels >= 2 invariant (derived from
// the original_source channel-map check: reject an all-zero or single-bit
// map, see DESIGN.md).
func (m ChannelMap) Validate() error {
	if m&^AllChannels() != 0 {
		return fmt.Errorf("%w: channel map uses bits beyond channel 36", ErrInvalidParams)
	}
	if m.NumUsed() < 2 {
		return fmt.Errorf("%w: channel map must mark at least 2 channels used", ErrInvalidParams)
	}
	return nil
}

// HopIncrement is in the range [5,16].
type HopIncrement uint8

// Validate checks the hop increment is in range.
func (h HopIncrement) Validate() error {
	if h < 5 || h > 16 {
		return fmt.Errorf("%w: hop_increment %d out of range [5,16]", ErrInvalidParams, h)
	}
	return nil
}
