package config

import (
	"errors"
	"testing"
	"time"

	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

// TestLoadServerDefaults tests defaults apply with an empty environment.
func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 7777 || cfg.Driver != "quic" || cfg.TickRate != 60 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	topo := cfg.Host.Topology()
	def := transport.DefaultTopology()
	if len(topo.Channels) != 2 || topo.Channels[0] != transport.ReliableSequenced || topo.Channels[1] != transport.Unreliable {
		t.Fatalf("unexpected channels %v", topo.Channels)
	}
	if topo.MaxEventsPerTick != def.MaxEventsPerTick || topo.MaxPeers != def.MaxPeers {
		t.Fatalf("unexpected topology %+v", topo)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

// TestLoadClientOverrides tests prefixed variables and nested prefixes.
func TestLoadClientOverrides(t *testing.T) {
	cfg, err := LoadClient(map[string]string{
		"QSB_ADDR":                     "server.example",
		"QSB_PORT":                     "9000",
		"QSB_DRIVER":                   "websocket",
		"QSB_HOST_CHANNELS":            "unreliable,reliable,unreliable",
		"QSB_HOST_MAX_EVENTS_PER_TICK": "50",
		"QSB_HOST_PING_INTERVAL":       "250ms",
		"QSB_LOG_LEVEL":                "debug",
		"QSB_OTEL_ENDPOINT":            "http://collector:4318",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != "server.example" || cfg.Port != 9000 || cfg.Driver != "websocket" {
		t.Fatalf("unexpected client %+v", cfg)
	}
	want := []transport.QoS{transport.Unreliable, transport.ReliableSequenced, transport.Unreliable}
	if len(cfg.Host.Channels) != len(want) {
		t.Fatalf("channels %v, want %v", cfg.Host.Channels, want)
	}
	for i := range want {
		if cfg.Host.Channels[i] != want[i] {
			t.Fatalf("channels %v, want %v", cfg.Host.Channels, want)
		}
	}
	if cfg.Host.MaxEventsPerTick != 50 || cfg.Host.PingInterval != 250*time.Millisecond {
		t.Fatalf("unexpected host %+v", cfg.Host)
	}
	if cfg.Log.Level != "debug" || cfg.Telemetry.Endpoint != "http://collector:4318" || !cfg.Telemetry.Enabled {
		t.Fatalf("unexpected log/telemetry %+v %+v", cfg.Log, cfg.Telemetry)
	}
}

// TestLoadBadQoS tests an unknown channel class fails to parse.
func TestLoadBadQoS(t *testing.T) {
	if _, err := LoadServer(map[string]string{"QSB_HOST_CHANNELS": "reliable,teleport"}); err == nil {
		t.Fatal("expected parse error")
	}
}

// TestValidate tests every invalid field is reported.
func TestValidate(t *testing.T) {
	cfg, err := LoadServer(map[string]string{
		"QSB_PORT":      "70000",
		"QSB_DRIVER":    "carrier-pigeon",
		"QSB_TICK_RATE": "0",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = cfg.Validate()
	if !errors.Is(err, transport.ErrInvalidPort) || !errors.Is(err, ErrUnknownDriver) || !errors.Is(err, ErrTickRate) {
		t.Fatalf("unexpected validation error %v", err)
	}

	c, _ := LoadClient(map[string]string{"QSB_HOST_PORT": "-1"})
	if err := c.Validate(); !errors.Is(err, transport.ErrInvalidPort) {
		t.Fatalf("expected host port error, got %v", err)
	}
}
