package ll

import (
	"fmt"
	"math/bits"

	"github.com/tve/blehost/internal/lfsr"
)

// AdvertisingAccessAddress is the fixed sync word used on advertising
// channels (spec §4.2/§6).
const AdvertisingAccessAddress uint32 = 0x8E89BED6

// AdvertisingCRCInit is the fixed CRC seed used on advertising channels.
const AdvertisingCRCInit uint32 = 0x555555

// ValidateAccessAddress applies the four rules of spec §4.2 to a candidate
// 32-bit connection access address.
func ValidateAccessAddress(aa uint32) error {
	// Rule 1: not equal to, and not within one bit of, the advertising AA.
	if bits.OnesCount32(aa^AdvertisingAccessAddress) <= 1 {
		return fmt.Errorf("%w: access address too close to advertising AA", ErrInvalidParams)
	}
	// Rule 2: no run of 6 identical consecutive bits.
	run := 1
	for i := 30; i >= 0; i-- {
		bi := (aa >> uint(i+1)) & 1
		bj := (aa >> uint(i)) & 1
		if bi == bj {
			run++
			if run >= 6 {
				return fmt.Errorf("%w: access address has a run of 6+ identical bits", ErrInvalidParams)
			}
		} else {
			run = 1
		}
	}
	// Rule 3: at least 3 bit transitions across all 32 bits.
	if countTransitions(aa, 31, 0) < 3 {
		return fmt.Errorf("%w: access address has fewer than 3 transitions", ErrInvalidParams)
	}
	// Rule 4: at least 2 transitions in the most significant 6 bits.
	if countTransitions(aa, 31, 26) < 2 {
		return fmt.Errorf("%w: access address has fewer than 2 transitions in the top 6 bits", ErrInvalidParams)
	}
	return nil
}

// countTransitions counts bit transitions between adjacent bits in the
// inclusive range [loBit, hiBit] of aa, scanning from hiBit down to loBit.
func countTransitions(aa uint32, hiBit, loBit int) int {
	transitions := 0
	prev := (aa >> uint(hiBit)) & 1
	for i := hiBit - 1; i >= loBit; i-- {
		cur := (aa >> uint(i)) & 1
		if cur != prev {
			transitions++
		}
		prev = cur
	}
	return transitions
}

// GenerateAccessAddress draws candidates from gen until one passes
// ValidateAccessAddress, per spec §4.2 ("The generator rejects-and-retries
// from an LFSR stream").
func GenerateAccessAddress(gen *lfsr.LFSR) uint32 {
	for {
		candidate := gen.Next()
		if ValidateAccessAddress(candidate) == nil {
			return candidate
		}
	}
}
