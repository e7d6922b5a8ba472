package app

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// connectEvent is the JSON payload published on connect/disconnect.
type connectEvent struct {
	Peer      string
	Connected bool
	Reason    string `json:",omitempty"`
}

// rssiEvent is the JSON payload published once when a connection ends.
type rssiEvent struct {
	Peer    string
	Samples []int
}

// Telemetry is a handle onto an MQTT broker connection, publishing
// connection events and RSSI samples under Topic/connect and
// Topic/rssi. It keeps the same publish-side de-dup bookkeeping as the
// gateway this was grounded on, even though this module never subscribes:
// a future peer-initiated command channel would reuse the same connection.
type Telemetry struct {
	conn  mqtt.Client
	topic string

	dedupMu sync.Mutex
	dedup   map[uint64]time.Time
}

// NewTelemetry connects to the broker described by cfg. Host == "" disables
// telemetry: NewTelemetry returns (nil, nil) and callers must treat a nil
// *Telemetry as a no-op.
func NewTelemetry(cfg TelemetryConfig, debug func(string, ...interface{})) (*Telemetry, error) {
	if cfg.Host == "" {
		return nil, nil
	}
	if debug != nil {
		debug("app: configuring telemetry MQTT: %+v", cfg)
	}
	mqtt.ERROR = log.New(os.Stderr, "", 0)
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.ClientID = "blehost"
	opts.Username = cfg.User
	opts.Password = cfg.Password

	conn := mqtt.NewClient(opts)
	if token := conn.Connect(); !token.WaitTimeout(10 * time.Second) {
		return nil, token.Error()
	}
	t := &Telemetry{conn: conn, topic: cfg.Topic, dedup: make(map[uint64]time.Time)}
	go t.gc()
	return t, nil
}

// gc periodically forgets de-dup entries older than a few minutes.
func (t *Telemetry) gc() {
	for {
		time.Sleep(time.Minute)
		t.dedupMu.Lock()
		if t.dedup == nil {
			t.dedupMu.Unlock()
			return
		}
		tooOld := time.Now().Add(-10 * time.Minute)
		for h, at := range t.dedup {
			if at.Before(tooOld) {
				delete(t.dedup, h)
			}
		}
		t.dedupMu.Unlock()
	}
}

func (t *Telemetry) publish(subtopic string, payload interface{}) {
	jsonPayload, _ := json.Marshal(payload)
	topic := t.topic + "/" + subtopic
	t.conn.Publish(topic, 1, false, jsonPayload)
	t.dedupMu.Lock()
	t.dedup[hashMessage(topic, string(jsonPayload))] = time.Now()
	t.dedupMu.Unlock()
}

// PublishConnect announces a connect or disconnect event.
func (t *Telemetry) PublishConnect(peer string, connected bool, reason string) {
	if t == nil {
		return
	}
	t.publish("connect", connectEvent{Peer: peer, Connected: connected, Reason: reason})
}

// PublishRSSI announces the accumulated RSSI samples for the current
// connection.
func (t *Telemetry) PublishRSSI(peer string, samples []int) {
	if t == nil || len(samples) == 0 {
		return
	}
	t.publish("rssi", rssiEvent{Peer: peer, Samples: samples})
}

func hashMessage(s ...string) uint64 {
	h := fnv.New64()
	h.Write([]byte(strings.Join(s, "ǂ")))
	return h.Sum64()
}
