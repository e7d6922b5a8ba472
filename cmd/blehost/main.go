// Command blehost is a minimal BLE central: it scans for and connects to one
// peripheral, exchanges MTU, classifies its GATT layout, and sends text over
// the classified TX characteristic, driven from an operator console.
//
// It is built the way cmd/mqttradio is: flag-parsed config file path,
// TOML config, a LogPrintf hook that is either a no-op or log.Printf.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/tve/blehost/app"
	"github.com/tve/blehost/internal/realtime"
	"github.com/tve/blehost/ll"
	"github.com/tve/blehost/radio/periphradio"
)

func main() {
	help := flag.Bool("help", false, "print usage help")
	configFile := flag.String("config", "blehost.toml", "path to config file")
	flag.Parse()

	if *help {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config blehost.toml]\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	logger := ll.LogPrintf(func(string, ...interface{}) {})
	if cfg.Debug || cfg.App.Debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		logger = log.Printf
	}

	localAddr, err := app.ParseAddress(cfg.Device.LocalMAC, cfg.Device.Random)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cmd/blehost: invalid device.local_mac: %s\n", err)
		os.Exit(1)
	}

	tele, err := app.NewTelemetry(cfg.App.Telemetry, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cmd/blehost: cannot connect to telemetry broker: %s\n", err)
		os.Exit(2)
	}

	if _, err := host.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "cmd/blehost: periph host init failed: %s\n", err)
		os.Exit(2)
	}
	r, err := openRadio(cfg.Radio, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cmd/blehost: cannot open radio: %s\n", err)
		os.Exit(2)
	}

	fsm := app.New(r, localAddr, cfg.App, app.WithLogger(logger), app.WithTelemetry(tele))

	// The Link Layer's connection-event timing runs on its own realtime
	// thread so the operator console (bufio.Scanner on stdin) never delays
	// a radio tick; Process, which only ever does non-blocking bookkeeping,
	// runs on its own 10ms ticker goroutine, and the console stays on the
	// main goroutine.
	go func() {
		if err := realtime.Enable(20); err != nil {
			logger("cmd/blehost: realtime scheduling unavailable, continuing without it: %v", err)
		}
		for {
			fsm.LinkLayer().Tick()
			time.Sleep(time.Millisecond)
		}
	}()

	go func() {
		started := time.Now()
		for range time.Tick(10 * time.Millisecond) {
			fsm.Process(time.Since(started))
		}
	}()

	log.Printf("blehost ready, local address %s", localAddr)
	runCommands(os.Stdin, os.Stdout, fsm)
}

func openRadio(cfg RadioConfig, logger ll.LogPrintf) (*periphradio.Radio, error) {
	dev, err := spireg.Open(fmt.Sprintf("SPI%d.%d", cfg.SpiBus, cfg.SpiCS))
	if err != nil {
		return nil, err
	}
	intrPin := gpioreg.ByName(cfg.IntrPin)
	if intrPin == nil {
		return nil, fmt.Errorf("cannot open pin %s", cfg.IntrPin)
	}
	maxHz := cfg.MaxHz
	if maxHz == 0 {
		maxHz = 4_000_000
	}
	return periphradio.New(dev, intrPin, maxHz, 0, unconfiguredChip{}, periphradio.WithLogger(logger))
}
