package ll

// Hopper implements data channel selection algorithm #1 of spec §4.2.
type Hopper struct {
	Map              ChannelMap
	HopIncrement     HopIncrement
	LastUnmapped     int // last unmapped channel, [0,36]
}

// NewHopper returns a Hopper starting from lastUnmapped (normally 0 at
// connection establishment, per spec §3).
func NewHopper(m ChannelMap, hop HopIncrement, lastUnmapped int) *Hopper {
	return &Hopper{Map: m, HopIncrement: hop, LastUnmapped: lastUnmapped}
}

// Next computes the data channel for the next connection event and advances
// last_unmapped_channel.
func (h *Hopper) Next() int {
	unmapped := (h.LastUnmapped + int(h.HopIncrement)) % maxDataChannels
	h.LastUnmapped = unmapped
	if h.Map.Bit(unmapped) {
		return unmapped
	}
	return h.Map.NthUsed(unmapped % h.Map.NumUsed())
}

// DataChannelFreqHz returns the RF center frequency for data channel ch
// (0..36), per spec §4.2/§6: 2402 + 2*ch MHz. The formula does not skip
// the advertising frequencies (channel 0 shares 2402 MHz with channel 37).
func DataChannelFreqHz(ch int) uint32 {
	return (2402 + 2*uint32(ch)) * 1_000_000
}

// AdvChannel is one of the three advertising channels {37,38,39}.
type AdvChannel int

const (
	AdvChannel37 AdvChannel = 37
	AdvChannel38 AdvChannel = 38
	AdvChannel39 AdvChannel = 39
)

// AdvChannels lists the advertising channels in scan rotation order.
var AdvChannels = [3]AdvChannel{AdvChannel37, AdvChannel38, AdvChannel39}

// AdvChannelFreqHz returns the RF center frequency for an advertising
// channel, per spec §4.2: 37/38/39 -> 2402/2426/2480 MHz.
func AdvChannelFreqHz(ch AdvChannel) uint32 {
	switch ch {
	case AdvChannel37:
		return 2402_000_000
	case AdvChannel38:
		return 2426_000_000
	case AdvChannel39:
		return 2480_000_000
	default:
		panic("ll: invalid advertising channel")
	}
}

// WhiteningSeed returns the whitening seed for a data or advertising
// channel: channel | 0x40, per spec §4.2/§6.
func WhiteningSeed(ch int) byte {
	return byte(ch) | 0x40
}
