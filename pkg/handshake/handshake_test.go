package handshake

import (
	"errors"
	"testing"

	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
)

// TestValidate tests matching and mismatching script lists.
func TestValidate(t *testing.T) {
	r := NewRegistry()
	r.Register("TransformSync", 1)
	r.Register("Geyser", 0)

	msg := r.Message()
	if len(msg.Scripts) != 2 || msg.Scripts[0].Name != "Geyser" {
		t.Fatalf("unexpected message %+v", msg.Scripts)
	}
	if err := r.Validate(msg.Scripts, 2); err != nil {
		t.Fatalf("identical lists should validate: %v", err)
	}

	bad := []protocol.CRCEntry{{Name: "Geyser", Channel: 1}, {Name: "OrbSlot", Channel: 0}}
	err := r.Validate(bad, 2)
	if !errors.Is(err, ErrCRCMismatch) {
		t.Fatalf("expected ErrCRCMismatch, got %v", err)
	}

	if err := r.Validate(msg.Scripts, 1); !errors.Is(err, ErrCRCMismatch) {
		t.Fatalf("expected channel range mismatch, got %v", err)
	}
}
