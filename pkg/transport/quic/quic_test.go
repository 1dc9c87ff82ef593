package quic

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

// TestLoopback tests reliable frames, datagrams and close codes over a real QUIC connection.
func TestLoopback(t *testing.T) {
	if testing.Short() {
		t.Skip("opens UDP sockets")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d := New(nil, nil, nil)
	ln, err := d.Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan transport.Link, 1)
	go func() {
		l, err := ln.Accept(ctx)
		if err != nil {
			t.Errorf("Accept: %v", err)
			close(accepted)
			return
		}
		accepted <- l
	}()

	client, err := d.Dial(ctx, ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	server, ok := <-accepted
	if !ok {
		t.FailNow()
	}

	for i := 0; i < 3; i++ {
		if err := client.Send(0, transport.ReliableSequenced, []byte{byte(i), 0xAA}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		pkt, err := server.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if pkt.Channel != 0 || !bytes.Equal(pkt.Data, []byte{byte(i), 0xAA}) {
			t.Fatalf("frame %d out of order: %+v", i, pkt)
		}
	}

	if err := server.Send(1, transport.Unreliable, []byte("dgram")); err != nil {
		t.Fatalf("SendDatagram: %v", err)
	}
	pkt, err := client.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive datagram: %v", err)
	}
	if pkt.Channel != 1 || string(pkt.Data) != "dgram" {
		t.Fatalf("unexpected datagram %+v", pkt)
	}

	server.Close(transport.NoResources, "full")
	_, err = client.Receive(ctx)
	if code := transport.ErrorCode(err); code != transport.NoResources {
		t.Fatalf("expected NoResources, got %v (%v)", code, err)
	}
}
