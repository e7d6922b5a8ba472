package main

import (
	"fmt"
	"io/ioutil"

	"github.com/BurntSushi/toml"

	"github.com/tve/blehost/app"
)

// Config is the top-level TOML file this binary loads, mirroring the
// gateway's own Config/RadioConfig split: app-level behavior nests under
// [app.*], host wiring lives in [radio] and [device].
type Config struct {
	Debug  bool
	App    app.Config
	Radio  RadioConfig
	Device DeviceConfig
}

// RadioConfig names the SPI bus/chip-select and interrupt pin the
// transceiver is wired to, the same fields cmd/mqttradio's RadioConfig
// carries for its own SPI devices.
type RadioConfig struct {
	SpiBus  int    `toml:"spi_bus"`
	SpiCS   int    `toml:"spi_cs"`
	IntrPin string `toml:"intr_pin"`
	MaxHz   int64  `toml:"max_hz"`
}

// DeviceConfig is this host's own BLE identity.
type DeviceConfig struct {
	LocalMAC string `toml:"local_mac"`
	Random   bool
}

func defaultConfig() Config {
	return Config{
		App:   app.DefaultConfig(),
		Radio: RadioConfig{SpiBus: 0, SpiCS: 0, MaxHz: 4_000_000},
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cmd/blehost: cannot read config file: %w", err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("cmd/blehost: cannot parse config file: %w", err)
	}
	return &cfg, nil
}
