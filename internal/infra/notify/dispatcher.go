// Package notify fans engine events out to alert sinks through a
// bounded queue. Evaluation never waits on delivery: a full queue
// drops the event with a warning instead of applying backpressure.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/alert"
)

// Dispatch errors
var (
	ErrBufferFull       = errors.New("notification buffer full, event dropped")
	ErrDispatcherClosed = errors.New("dispatcher stopped")
)

// deliverTimeout bounds one sink delivery so a hung sink cannot stall
// the queue behind it
const deliverTimeout = 20 * time.Second

// Sink delivers one event to one destination
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev alert.Event) error
}

// Dispatcher implements alert.Notifier with a bounded channel and a
// single delivery goroutine fanning out to all registered sinks.
type Dispatcher struct {
	sinks    []Sink
	events   chan alert.Event
	cooldown time.Duration

	mu       sync.Mutex
	closed   bool
	lastSent map[string]time.Time
	dropped  int64

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given buffer size and
// duplicate-suppression cooldown. Zero cooldown disables suppression.
func NewDispatcher(buffer int, cooldown time.Duration, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		sinks:    sinks,
		events:   make(chan alert.Event, buffer),
		cooldown: cooldown,
		lastSent: make(map[string]time.Time),
	}
}

// Start launches the delivery goroutine
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop drains queued events and waits for delivery to finish
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Notify enqueues an event without blocking. Trigger alerts repeating
// for the same intent and trigger within the cooldown are suppressed
// so log-only intents do not spam a sink every pass.
func (d *Dispatcher) Notify(ctx context.Context, ev alert.Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	if d.cooldown > 0 && ev.Type == alert.EventTriggerFired {
		key := ev.IntentID + "|" + ev.Details["trigger"]
		if last, ok := d.lastSent[key]; ok && ev.At.Sub(last) < d.cooldown {
			return nil
		}
		d.lastSent[key] = ev.At
	}

	select {
	case d.events <- ev:
		return nil
	default:
		d.dropped++
		log.Warn().
			Str("type", string(ev.Type)).
			Str("intent_id", ev.IntentID).
			Int64("dropped_total", d.dropped).
			Msg("⚠️ Notification buffer full, dropping event")
		return ErrBufferFull
	}
}

// Dropped returns how many events were lost to a full buffer
func (d *Dispatcher) Dropped() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for ev := range d.events {
		for _, sink := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
			if err := sink.Deliver(ctx, ev); err != nil {
				log.Warn().
					Err(err).
					Str("sink", sink.Name()).
					Str("type", string(ev.Type)).
					Msg("Notification delivery failed")
			}
			cancel()
		}
	}
}
