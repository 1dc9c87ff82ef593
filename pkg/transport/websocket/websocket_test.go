package websockets

import (
	"context"
	"testing"
	"time"

	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

// TestLoopback tests channel framing and close code propagation.
func TestLoopback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := New()
	ln, err := d.Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	client, err := d.Dial(ctx, ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	server, err := ln.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if err := client.Send(1, transport.Unreliable, []byte("pos")); err != nil {
		t.Fatal(err)
	}
	pkt, err := server.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Channel != 1 || string(pkt.Data) != "pos" {
		t.Fatalf("unexpected packet %+v", pkt)
	}

	server.Close(transport.VersionMismatch, "bye")
	_, err = client.Receive(ctx)
	if code := transport.ErrorCode(err); code != transport.VersionMismatch {
		t.Fatalf("expected VersionMismatch, got %v (%v)", code, err)
	}
}
