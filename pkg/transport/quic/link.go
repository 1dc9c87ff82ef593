package quic

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
	"github.com/quic-go/quic-go"
)

const (
	inboxSize    = 256
	maxFrameSize = transport.DefaultReceiveBufferSize + 1
)

type sendStream struct {
	mu sync.Mutex
	s  quic.SendStream
}

// link wraps one QUIC connection. Two pumps feed the inbox: one accepting
// a unidirectional stream per remote reliable channel, one reading datagrams.
type link struct {
	conn  quic.Connection
	inbox chan transport.Packet

	streamsMu sync.Mutex
	streams   map[byte]*sendStream

	failOnce  sync.Once
	done      chan struct{}
	err       error
	closeOnce sync.Once
}

func newLink(conn quic.Connection) *link {
	l := &link{
		conn:    conn,
		inbox:   make(chan transport.Packet, inboxSize),
		streams: make(map[byte]*sendStream),
		done:    make(chan struct{}),
	}
	go l.streamPump()
	go l.datagramPump()
	return l
}

func (l *link) fail(err error) {
	l.failOnce.Do(func() {
		l.err = linkError(err)
		close(l.done)
	})
}

// ==================================================================
// Pumps
// ==================================================================

func (l *link) streamPump() {
	ctx := l.conn.Context()
	for {
		stream, err := l.conn.AcceptUniStream(ctx)
		if err != nil {
			l.fail(err)
			return
		}
		go l.readStream(stream)
	}
}

func (l *link) readStream(stream quic.ReceiveStream) {
	r := bufio.NewReader(stream)
	channel, err := r.ReadByte()
	if err != nil {
		return
	}

	var hdr [4]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return
		}
		n := binary.LittleEndian.Uint32(hdr[:])
		if n > maxFrameSize {
			stream.CancelRead(quic.StreamErrorCode(transport.MessageToLong))
			return
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}

		select {
		case l.inbox <- transport.Packet{Channel: channel, Data: buf}:
		case <-l.done:
			return
		}
	}
}

func (l *link) datagramPump() {
	ctx := l.conn.Context()
	for {
		b, err := l.conn.ReceiveDatagram(ctx)
		if err != nil {
			l.fail(err)
			return
		}
		if len(b) == 0 {
			continue
		}

		select {
		case l.inbox <- transport.Packet{Channel: b[0], Data: b[1:]}:
		default:
		}
	}
}

// ==================================================================
// transport.Link
// ==================================================================

func (l *link) Send(channel byte, qos transport.QoS, p []byte) error {
	select {
	case <-l.done:
		return l.err
	default:
	}

	if !qos.Reliable() {
		datagram := make([]byte, 1+len(p))
		datagram[0] = channel
		copy(datagram[1:], p)
		return l.conn.SendDatagram(datagram)
	}

	st, err := l.stream(channel)
	if err != nil {
		return linkError(err)
	}

	frame := make([]byte, 4+len(p))
	binary.LittleEndian.PutUint32(frame, uint32(len(p)))
	copy(frame[4:], p)

	st.mu.Lock()
	defer st.mu.Unlock()
	if _, err := st.s.Write(frame); err != nil {
		return linkError(err)
	}
	return nil
}

func (l *link) stream(channel byte) (*sendStream, error) {
	l.streamsMu.Lock()
	defer l.streamsMu.Unlock()

	if st, ok := l.streams[channel]; ok {
		return st, nil
	}

	s, err := l.conn.OpenUniStreamSync(l.conn.Context())
	if err != nil {
		return nil, err
	}
	if _, err := s.Write([]byte{channel}); err != nil {
		return nil, err
	}

	st := &sendStream{s: s}
	l.streams[channel] = st
	return st, nil
}

func (l *link) Receive(ctx context.Context) (transport.Packet, error) {
	select {
	case pkt := <-l.inbox:
		return pkt, nil
	default:
	}

	select {
	case pkt := <-l.inbox:
		return pkt, nil
	case <-l.done:
		select {
		case pkt := <-l.inbox:
			return pkt, nil
		default:
			return transport.Packet{}, l.err
		}
	case <-ctx.Done():
		return transport.Packet{}, ctx.Err()
	}
}

func (l *link) Close(code transport.NetworkError, reason string) (err error) {
	l.closeOnce.Do(func() {
		l.fail(net.ErrClosed)
		err = l.conn.CloseWithError(quic.ApplicationErrorCode(code), reason)
	})
	return
}

func (l *link) RemoteAddr() net.Addr {
	return l.conn.RemoteAddr()
}
