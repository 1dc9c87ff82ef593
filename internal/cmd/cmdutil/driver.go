package cmdutil

import (
	"fmt"

	"github.com/isrecalpear/quantum-space-buddies/pkg/config"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport/mem"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport/quic"
	websockets "github.com/isrecalpear/quantum-space-buddies/pkg/transport/websocket"
)

// MemNetwork is the in-process network behind the "mem" driver. A server
// and clients run in the same process reach each other through it.
var MemNetwork = mem.New()

// NewDriver returns the transport driver called name.
func NewDriver(name, wsPath string) (transport.Driver, error) {
	switch name {
	case "quic":
		return quic.New(nil, nil, nil), nil
	case "websocket":
		d := websockets.New()
		if wsPath != "" {
			d.Path = wsPath
		}
		return d, nil
	case "mem":
		return MemNetwork, nil
	}
	return nil, fmt.Errorf("%w %q", config.ErrUnknownDriver, name)
}
