package app

import (
	"fmt"
	"io/ioutil"

	"github.com/BurntSushi/toml"

	"github.com/tve/blehost/ll"
)

// ParseAddress parses a colon-separated "11:22:33:44:55:66" address into an
// ll.Address of the given type, byte 0 first as written.
func ParseAddress(s string, random bool) (ll.Address, error) {
	var b [6]byte
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x",
		&b[0], &b[1], &b[2], &b[3], &b[4], &b[5])
	if err != nil || n != 6 {
		return ll.Address{}, fmt.Errorf("app: invalid address %q", s)
	}
	if random {
		return ll.NewRandomStaticAddress(b)
	}
	return ll.NewPublicAddress(b), nil
}

// Config is the TOML-loadable configuration for an FSM instance, mirroring
// the Config/RadioConfig/MqttConfig trio of the gateway this module was
// built from: one struct per concern, flat fields, loaded with a single
// toml.Unmarshal call.
type Config struct {
	Debug     bool
	Scan      ScanConfig
	Connect   ConnectConfig
	Send      SendConfig
	Telemetry TelemetryConfig
}

// ScanConfig governs the Scanning state of spec §4.4.
type ScanConfig struct {
	TimeoutMS int    `toml:"timeout_ms"`
	TargetMAC string `toml:"target_mac"` // "11:22:33:44:55:66", bytes in over-the-air order (first written is Bytes[0], least significant)
	Random    bool   // true if TargetMAC is a random address
}

// ConnectConfig governs the Connecting state and the connection parameters
// offered in CONNECT_IND.
type ConnectConfig struct {
	TimeoutMS        int    `toml:"timeout_ms"`
	Retries          int    // spec §4.4: "retry<=N"
	IntervalUnits    uint16 `toml:"interval_units"`    // 1.25ms units
	SlaveLatency     uint16 `toml:"slave_latency"`
	SupervisionUnits uint16 `toml:"supervision_units"` // 10ms units
}

// SendConfig governs Sending/Connected idle behavior.
type SendConfig struct {
	DisconnectAfterSend bool `toml:"disconnect_after_send"`
	IdleKeepaliveMS     int  `toml:"idle_keepalive_ms"`
	AutoReconnect       bool `toml:"auto_reconnect"`
}

// TelemetryConfig is the MQTT broker this FSM publishes RSSI samples
// and connection events to; Host empty disables telemetry entirely.
type TelemetryConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Topic    string
}

// DefaultConfig returns the §4.4 timeout defaults that are configurable: 5s
// connect timeout and 10s idle keepalive (plus a 10s scan timeout). The 1s
// disconnect timeout and 3s error back-off are fixed constants in fsm.go.
func DefaultConfig() Config {
	return Config{
		Scan: ScanConfig{TimeoutMS: 10_000},
		Connect: ConnectConfig{
			TimeoutMS:        5_000,
			Retries:          3,
			IntervalUnits:    40, // 50ms
			SlaveLatency:     0,
			SupervisionUnits: 200, // 2s
		},
		Send: SendConfig{
			IdleKeepaliveMS: 10_000,
		},
	}
}

// LoadConfig reads and parses a TOML config file, starting from
// DefaultConfig so an omitted section keeps its defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("app: cannot read config file: %w", err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("app: cannot parse config file: %w", err)
	}
	return &cfg, nil
}

// ConnParams builds the ll.ConnParams this config would offer a peer.
func (c Config) ConnParams() ll.ConnParams {
	return ll.ConnParams{
		ConnIntervalUnits:       c.Connect.IntervalUnits,
		SlaveLatency:            c.Connect.SlaveLatency,
		SupervisionTimeoutUnits: c.Connect.SupervisionUnits,
	}
}
