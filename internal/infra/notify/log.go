package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/alert"
)

// LogSink writes events to the structured log. Always registered, so
// every alert is visible even with no external sink configured.
type LogSink struct{}

// NewLogSink creates a log sink
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Name identifies the sink in delivery logs
func (s *LogSink) Name() string { return "log" }

// Deliver writes the event at a level matching its severity
func (s *LogSink) Deliver(ctx context.Context, ev alert.Event) error {
	var logEvent *zerolog.Event
	switch ev.Severity {
	case alert.SeverityCritical:
		logEvent = log.Error()
	case alert.SeverityWarning:
		logEvent = log.Warn()
	default:
		logEvent = log.Info()
	}

	logEvent = logEvent.
		Str("type", string(ev.Type)).
		Str("intent_id", ev.IntentID).
		Str("symbol", ev.Symbol)
	for k, v := range ev.Details {
		logEvent = logEvent.Str(k, v)
	}

	logEvent.Msg("🔔 " + ev.Message)
	return nil
}
