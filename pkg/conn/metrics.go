package conn

import (
	"context"
	"sync"

	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/isrecalpear/quantum-space-buddies/pkg/conn"

var (
	metricsOnce  sync.Once
	messageCount metric.Int64Counter
	byteCount    metric.Int64Counter

	attrIn  = attribute.String("direction", "in")
	attrOut = attribute.String("direction", "out")
)

func instruments() {
	metricsOnce.Do(func() {
		meter := otel.Meter(meterName)
		messageCount, _ = meter.Int64Counter("qsb.conn.messages",
			metric.WithDescription("Frames sent or received by connections"))
		byteCount, _ = meter.Int64Counter("qsb.conn.bytes",
			metric.WithDescription("Frame bytes sent or received by connections"),
			metric.WithUnit("By"))
	})
}

func record(dir attribute.KeyValue, t protocol.MsgType, size int) {
	instruments()
	if messageCount == nil || byteCount == nil {
		return
	}
	opt := metric.WithAttributes(dir, attribute.Int("msg_type", int(t)))
	messageCount.Add(context.Background(), 1, opt)
	byteCount.Add(context.Background(), int64(size), opt)
}

func recordIn(t protocol.MsgType, size int)  { record(attrIn, t, size) }
func recordOut(t protocol.MsgType, size int) { record(attrOut, t, size) }
