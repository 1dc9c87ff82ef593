package client

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"sync"
	"testing"
	"time"

	servercmd "github.com/isrecalpear/quantum-space-buddies/internal/cmd/server"
	"github.com/isrecalpear/quantum-space-buddies/pkg/config"
)

// syncBuffer is written by the tick goroutines and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// TestParseConfigFlags tests flags override environment defaults.
func TestParseConfigFlags(t *testing.T) {
	fs := flag.NewFlagSet("qsb-client", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "10.0.0.2", "-port", "9100", "-driver", "mem", "-tick-rate", "30"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != "10.0.0.2" || cfg.Port != 9100 || cfg.Driver != "mem" || cfg.TickRate != 30 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

// TestParseConfigRejectsBadDriver tests validation runs after flags.
func TestParseConfigRejectsBadDriver(t *testing.T) {
	fs := flag.NewFlagSet("qsb-client", flag.ContinueOnError)
	if _, err := ParseConfig(fs, []string{"-driver", "smoke-signals"}); !errors.Is(err, config.ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

// TestRunAgainstServer tests a client and a server sharing the in-process network.
func TestRunAgainstServer(t *testing.T) {
	scfg, err := config.LoadServer(map[string]string{
		"QSB_PORT":      "7501",
		"QSB_DRIVER":    "mem",
		"QSB_TICK_RATE": "200",
	})
	if err != nil {
		t.Fatal(err)
	}
	ccfg, err := config.LoadClient(map[string]string{
		"QSB_PORT":      "7501",
		"QSB_DRIVER":    "mem",
		"QSB_TICK_RATE": "200",
	})
	if err != nil {
		t.Fatal(err)
	}

	var serverLog, clientLog syncBuffer
	sctx, stopServer := context.WithCancel(context.Background())
	serverDone := make(chan error, 1)
	go func() { serverDone <- servercmd.Run(sctx, scfg, &serverLog) }()
	defer func() {
		stopServer()
		if err := <-serverDone; err != nil {
			t.Errorf("server: %v", err)
		}
	}()

	// Give the listener a moment to bind.
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(serverLog.String(), "server listening") {
		if time.Now().After(deadline) {
			t.Fatalf("server did not start:\n%s", serverLog.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cctx, stopClient := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer stopClient()
	if err := Run(cctx, ccfg, &clientLog); err != nil {
		t.Fatalf("client: %v\n%s", err, clientLog.String())
	}

	if !strings.Contains(clientLog.String(), "connected to server") {
		t.Errorf("client never connected:\n%s", clientLog.String())
	}
	if !strings.Contains(serverLog.String(), "player joined") {
		t.Errorf("server never saw the player:\n%s", serverLog.String())
	}
}

// TestRunConnectFailure tests Run returns when nothing listens.
func TestRunConnectFailure(t *testing.T) {
	ccfg, err := config.LoadClient(map[string]string{
		"QSB_PORT":      "7599",
		"QSB_DRIVER":    "mem",
		"QSB_TICK_RATE": "200",
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := Run(ctx, ccfg, nil); !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("expected ErrConnectFailed, got %v", err)
	}
}
