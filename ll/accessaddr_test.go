package ll

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateAccessAddressVectors(t *testing.T) {
	require.Error(t, ValidateAccessAddress(0x8E89BED6), "equal to advertising AA must be rejected")
	require.Error(t, ValidateAccessAddress(0x00000000), "all-zero has a run >=6 and too few transitions")
	require.NoError(t, ValidateAccessAddress(0xAAAAAAAA), "alternating bits pass all four rules")
	require.NoError(t, ValidateAccessAddress(0x55555555), "alternating bits pass all four rules")
	require.Error(t, ValidateAccessAddress(0xFF00FF00), "runs of 8 identical bits violate rule 2")
}

func TestGenerateAccessAddressAlwaysValid(t *testing.T) {
	gen := newTestLFSR(1)
	for i := 0; i < 100; i++ {
		aa := GenerateAccessAddress(gen)
		require.NoError(t, ValidateAccessAddress(aa))
	}
}
