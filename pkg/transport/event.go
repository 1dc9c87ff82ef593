package transport

// EventType classifies what Receive returned.
type EventType uint8

const (
	Nothing EventType = iota
	Connect
	Data
	Disconnect
)

func (t EventType) String() string {
	switch t {
	case Nothing:
		return "Nothing"
	case Connect:
		return "Connect"
	case Data:
		return "Data"
	case Disconnect:
		return "Disconnect"
	}
	return "Unknown"
}

// Event is one unit of network activity on a host. Data is owned by the
// receiver. Err is Ok unless the event reports a failure.
type Event struct {
	Type    EventType
	Peer    PeerID
	Channel int
	Data    []byte
	Err     NetworkError
}
