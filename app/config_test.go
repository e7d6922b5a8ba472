package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tve/blehost/ll"
)

func TestParseAddressRoundTrip(t *testing.T) {
	addr, err := ParseAddress("11:22:33:44:55:66", false)
	require.NoError(t, err)
	require.Equal(t, ll.AddrPublic, addr.Type)
	require.Equal(t, [6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, addr.Bytes)

	_, err = ParseAddress("not-an-address", false)
	require.Error(t, err)
}

func TestDefaultConfigConnParams(t *testing.T) {
	cfg := DefaultConfig()
	params := cfg.ConnParams()
	require.Equal(t, cfg.Connect.IntervalUnits, params.ConnIntervalUnits)
	require.Equal(t, cfg.Connect.SlaveLatency, params.SlaveLatency)
	require.Equal(t, cfg.Connect.SupervisionUnits, params.SupervisionTimeoutUnits)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
debug = true

[scan]
timeout_ms = 2500
target_mac = "aa:bb:cc:dd:ee:ff"

[connect]
retries = 5

[telemetry]
host = "broker.local"
port = 1883
topic = "blehost"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.True(t, cfg.Debug)
	require.Equal(t, 2500, cfg.Scan.TimeoutMS)
	require.Equal(t, "aa:bb:cc:dd:ee:ff", cfg.Scan.TargetMAC)
	require.Equal(t, 5, cfg.Connect.Retries)
	// Untouched sections keep their defaults.
	require.Equal(t, DefaultConfig().Connect.IntervalUnits, cfg.Connect.IntervalUnits)
	require.Equal(t, "broker.local", cfg.Telemetry.Host)
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blehost.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}
