package alert

import (
	"context"
	"time"
)

// EventType classifies engine notifications
type EventType string

const (
	EventTriggerFired       EventType = "TRIGGER_FIRED"
	EventExecutionSucceeded EventType = "EXECUTION_SUCCEEDED"
	EventExecutionFailed    EventType = "EXECUTION_FAILED"
	EventStoreCorrupt       EventType = "STORE_CORRUPT"
)

// Severity ranks how loudly an event should be surfaced
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is one notification from the engine to the alerting layer
type Event struct {
	Type     EventType `json:"type"`
	Severity Severity  `json:"severity"`

	IntentID string `json:"intent_id,omitempty"`
	Symbol   string `json:"symbol,omitempty"`

	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`

	At time.Time `json:"at"`
}

// Notifier delivers events to one sink (log, Telegram, ...).
// Delivery failures are the sink's problem; the engine never blocks on
// them.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}
