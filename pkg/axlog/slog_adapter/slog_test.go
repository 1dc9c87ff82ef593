package slogadapter

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
)

var _ axlog.Logger = (*Adapter)(nil)

// TestAdapterLevels tests that every level reaches the slog handler with its attributes.
func TestAdapterLevels(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	a := New(slog.New(h)).With("component", "test")

	a.Debug("d", "k", 1)
	a.Info("i")
	a.Warn("w")
	a.Error("e", "code", 11)

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "level=INFO", "level=WARN", "level=ERROR", "component=test", "code=11"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
