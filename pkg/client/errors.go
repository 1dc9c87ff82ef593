package client

import (
	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

func (c *Client) GenerateConnectError(code transport.NetworkError) {
	c.logger.Error("connect error", "code", code)
	c.generateError(code)
}

func (c *Client) GenerateDataError(code transport.NetworkError) {
	c.logger.Error("data error", "code", code)
	c.generateError(code)
}

func (c *Client) GenerateDisconnectError(code transport.NetworkError) {
	c.logger.Error("disconnect error", "code", code)
	c.generateError(code)
}

// generateError hands code to the Error handler. Without one the error is
// only logged.
func (c *Client) generateError(code transport.NetworkError) {
	if !c.handlers.Has(protocol.Error) {
		return
	}

	w := protocol.NewWriter()
	(&protocol.ErrorMessage{Code: uint16(code)}).Serialize(w)

	msg := &dispatch.Message{
		Type:   protocol.Error,
		Reader: protocol.NewReader(w.Bytes()),
	}
	if c.conn != nil {
		msg.Conn = c.conn
	}
	c.handlers.Dispatch(msg)
}
