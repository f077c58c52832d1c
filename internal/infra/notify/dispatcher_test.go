package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/alert"
)

// captureSink records delivered events for assertions
type captureSink struct {
	mu     sync.Mutex
	events []alert.Event
	seen   chan struct{}
}

func newCaptureSink() *captureSink {
	return &captureSink{seen: make(chan struct{}, 64)}
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Deliver(ctx context.Context, ev alert.Event) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	s.seen <- struct{}{}
	return nil
}

func (s *captureSink) waitFor(t *testing.T, n int) []alert.Event {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for delivery %d of %d", i+1, n)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]alert.Event, len(s.events))
	copy(out, s.events)
	return out
}

func triggerEvent(intentID, trigger string) alert.Event {
	return alert.Event{
		Type:     alert.EventTriggerFired,
		Severity: alert.SeverityInfo,
		IntentID: intentID,
		Symbol:   "TEST",
		Message:  "trigger fired",
		Details:  map[string]string{"trigger": trigger},
	}
}

func TestDispatcherFansOutToAllSinks(t *testing.T) {
	a := newCaptureSink()
	b := newCaptureSink()
	d := NewDispatcher(8, 0, a, b)
	d.Start()
	defer d.Stop()

	if err := d.Notify(context.Background(), triggerEvent("it-1", "take_profit")); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	gotA := a.waitFor(t, 1)
	gotB := b.waitFor(t, 1)

	if gotA[0].IntentID != "it-1" || gotB[0].IntentID != "it-1" {
		t.Error("Expected event delivered to both sinks")
	}
	if gotA[0].At.IsZero() {
		t.Error("Expected timestamp stamped on enqueue")
	}
}

func TestDispatcherCooldownSuppression(t *testing.T) {
	sink := newCaptureSink()
	d := NewDispatcher(8, time.Minute, sink)
	d.Start()
	defer d.Stop()
	ctx := context.Background()

	// Same intent and trigger twice: second suppressed
	if err := d.Notify(ctx, triggerEvent("it-1", "take_profit")); err != nil {
		t.Fatalf("First notify failed: %v", err)
	}
	if err := d.Notify(ctx, triggerEvent("it-1", "take_profit")); err != nil {
		t.Fatalf("Duplicate notify errored: %v", err)
	}

	// Different trigger for the same intent passes
	if err := d.Notify(ctx, triggerEvent("it-1", "stop_loss")); err != nil {
		t.Fatalf("Distinct trigger notify failed: %v", err)
	}

	// Execution events are never suppressed
	execEvent := alert.Event{
		Type:     alert.EventExecutionFailed,
		Severity: alert.SeverityCritical,
		IntentID: "it-1",
		Message:  "execution failed",
	}
	if err := d.Notify(ctx, execEvent); err != nil {
		t.Fatalf("Execution notify failed: %v", err)
	}
	if err := d.Notify(ctx, execEvent); err != nil {
		t.Fatalf("Repeated execution notify failed: %v", err)
	}

	got := sink.waitFor(t, 4)
	if len(got) != 4 {
		t.Fatalf("Expected 4 deliveries, got %d", len(got))
	}

	triggers := 0
	for _, ev := range got {
		if ev.Type == alert.EventTriggerFired {
			triggers++
		}
	}
	if triggers != 2 {
		t.Errorf("Expected 2 trigger deliveries after suppression, got %d", triggers)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// No Start: nothing drains the buffer
	d := NewDispatcher(1, 0)
	ctx := context.Background()

	if err := d.Notify(ctx, triggerEvent("it-1", "take_profit")); err != nil {
		t.Fatalf("First notify failed: %v", err)
	}
	if err := d.Notify(ctx, triggerEvent("it-2", "take_profit")); !errors.Is(err, ErrBufferFull) {
		t.Errorf("Expected ErrBufferFull, got %v", err)
	}
	if d.Dropped() != 1 {
		t.Errorf("Expected 1 dropped, got %d", d.Dropped())
	}
}

func TestDispatcherStop(t *testing.T) {
	sink := newCaptureSink()
	d := NewDispatcher(8, 0, sink)
	d.Start()

	for i := 0; i < 3; i++ {
		if err := d.Notify(context.Background(), triggerEvent("it-1", "take_profit")); err != nil {
			t.Fatalf("Notify %d failed: %v", i, err)
		}
	}
	d.Stop()

	sink.mu.Lock()
	delivered := len(sink.events)
	sink.mu.Unlock()
	if delivered != 3 {
		t.Errorf("Expected queued events drained on stop, got %d of 3", delivered)
	}

	if err := d.Notify(context.Background(), triggerEvent("it-1", "take_profit")); !errors.Is(err, ErrDispatcherClosed) {
		t.Errorf("Expected ErrDispatcherClosed after stop, got %v", err)
	}
}
