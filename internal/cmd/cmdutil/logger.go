// Package cmdutil holds the wiring shared by the qsb executables.
package cmdutil

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog/slog_adapter"
	"github.com/isrecalpear/quantum-space-buddies/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger. Records go to stderr and, when
// cfg.File is set, to a rotating file as well. close releases the file.
func NewLogger(cfg config.Log, stderr io.Writer) (logger *slogadapter.Adapter, close func() error, err error) {
	close = func() error { return nil }

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, close, fmt.Errorf("log level: %w", err)
	}

	out := stderr
	if out == nil {
		out = io.Discard
	}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = io.MultiWriter(out, file)
		close = file.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		h = slog.NewJSONHandler(out, opts)
	case "text", "":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, close, fmt.Errorf("log format %q", cfg.Format)
	}
	return slogadapter.New(slog.New(h)), close, nil
}
