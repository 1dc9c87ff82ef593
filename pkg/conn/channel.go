package conn

import (
	"time"

	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

const maxPendingPackets = 16

// channelBuffer packs frames into packets of at most maxPacket bytes.
type channelBuffer struct {
	index     int
	qos       transport.QoS
	maxPacket int

	current   []byte
	pending   [][]byte
	lastFlush time.Time
	broken    bool

	numMsgsOut            int
	numBufferedMsgsOut    int
	numBytesOut           int
	bufferedPerSecond     int
	lastBufferedPerSecond int
	secondStart           time.Time
}

func newChannelBuffer(index int, qos transport.QoS, maxPacket int, now time.Time) *channelBuffer {
	return &channelBuffer{
		index:       index,
		qos:         qos,
		maxPacket:   maxPacket,
		current:     make([]byte, 0, maxPacket),
		lastFlush:   now,
		secondStart: now,
	}
}

func (b *channelBuffer) send(c *Connection, frames []byte) bool {
	if len(frames) > b.maxPacket {
		c.logger.Error("message too large for channel", "conn", c.id, "channel", b.index, "size", len(frames), "max", b.maxPacket)
		return false
	}
	if b.broken {
		c.logger.Error("channel is broken", "conn", c.id, "channel", b.index)
		return false
	}

	if len(b.current)+len(frames) > b.maxPacket {
		if !b.flush(c, c.now()) {
			return false
		}
	}

	b.current = append(b.current, frames...)
	b.numMsgsOut++
	b.numBufferedMsgsOut++
	b.bufferedPerSecond++
	return true
}

// flush sends pending packets first so reliable order is kept.
func (b *channelBuffer) flush(c *Connection, now time.Time) bool {
	b.lastFlush = now

	for len(b.pending) > 0 {
		err := c.transport.Send(c.host, c.peer, b.index, b.pending[0])
		if transport.ErrorCode(err) == transport.NoResources {
			break
		}
		if err != nil {
			b.fail(c, err)
			return false
		}
		b.numBytesOut += len(b.pending[0])
		b.pending = b.pending[1:]
	}

	if len(b.current) == 0 {
		return true
	}

	if len(b.pending) > 0 {
		return b.queue(c)
	}

	err := c.transport.Send(c.host, c.peer, b.index, b.current)
	switch {
	case err == nil:
		b.numBytesOut += len(b.current)
	case transport.ErrorCode(err) == transport.NoResources && b.qos.Reliable():
		return b.queue(c)
	default:
		b.current = b.current[:0]
		b.fail(c, err)
		return false
	}
	b.current = b.current[:0]
	return true
}

func (b *channelBuffer) queue(c *Connection) bool {
	if len(b.pending) >= maxPendingPackets {
		b.broken = true
		b.current = b.current[:0]
		c.logger.Error("channel pending queue full, marking channel broken", "conn", c.id, "channel", b.index)
		return false
	}
	b.pending = append(b.pending, append([]byte(nil), b.current...))
	b.current = b.current[:0]
	return true
}

func (b *channelBuffer) fail(c *Connection, err error) {
	code := transport.ErrorCode(err)
	c.lastErr = code
	c.logger.Error("send packet failed", "conn", c.id, "channel", b.index, "code", code, "error", err)
}

func (b *channelBuffer) tick(now time.Time) {
	if now.Sub(b.secondStart) >= time.Second {
		b.lastBufferedPerSecond = b.bufferedPerSecond
		b.bufferedPerSecond = 0
		b.secondStart = now
	}
}

func (b *channelBuffer) reset() {
	b.current = b.current[:0]
	b.pending = nil
}

func (b *channelBuffer) resetStats() {
	b.numMsgsOut = 0
	b.numBufferedMsgsOut = 0
	b.numBytesOut = 0
	b.bufferedPerSecond = 0
	b.lastBufferedPerSecond = 0
}
