package ll

import "github.com/tve/blehost/internal/lfsr"

func newTestLFSR(seed uint32) *lfsr.LFSR {
	return lfsr.New(seed)
}
