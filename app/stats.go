package app

import (
	"fmt"

	"github.com/tve/blehost/internal/varint"
)

// statsRingLen bounds the RSSI sample history kept for telemetry; older
// samples are simply overwritten, there is no persistence goal here.
const statsRingLen = 256

// Stats accumulates per-connection RSSI samples for telemetry. FEI
// (frequency error) is not estimated by any radio.Radio implementation in
// this module, so only RSSI is tracked.
type Stats struct {
	rssi    [statsRingLen]int
	head    int
	count   int
	reports int
}

// Record appends one RSSI sample (dBm) to the ring.
func (s *Stats) Record(rssiDBm int) {
	s.rssi[s.head] = rssiDBm
	s.head = (s.head + 1) % statsRingLen
	if s.count < statsRingLen {
		s.count++
	}
}

// Reset clears the accumulated samples, called on every new connection.
func (s *Stats) Reset() {
	*s = Stats{}
}

// Samples returns the recorded RSSI samples in oldest-to-newest order.
func (s *Stats) Samples() []int {
	out := make([]int, 0, s.count)
	start := (s.head - s.count + statsRingLen) % statsRingLen
	for i := 0; i < s.count; i++ {
		out = append(out, s.rssi[(start+i)%statsRingLen])
	}
	return out
}

// Encode returns the Kind-tagged, varint-encoded sample buffer suitable for
// a telemetry publish payload.
func (s *Stats) Encode() []byte {
	return varint.EncodeReport(varint.KindRSSI, s.Samples())
}

// DecodeStats is the inverse of Encode, exposed for tooling that consumes
// Encode's output. It rejects a buffer tagged as anything
// other than RSSI samples, since that is the only kind app.Stats produces.
func DecodeStats(buf []byte) ([]int, error) {
	kind, samples, err := varint.DecodeReport(buf)
	if err != nil {
		return nil, err
	}
	if kind != varint.KindRSSI {
		return nil, fmt.Errorf("app: telemetry report has unexpected kind %s", kind)
	}
	return samples, nil
}
