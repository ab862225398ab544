package goAccount

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/goAccount/internal/audit"
)

// AuditEvent is one security-relevant outcome. Passwords and recovery codes
// are never recorded.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	LoggerSink     = audit.LoggerSink
	MultiSink      = audit.MultiSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLoggerSink forwards audit events to l, at Info for successes and Warn
// for failures.
func NewLoggerSink(l *slog.Logger) *LoggerSink {
	return audit.NewLoggerSink(l)
}
