package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/alert"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/execution"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/intent"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/market"
)

// Executor acts on one fired trigger
type Executor interface {
	Execute(ctx context.Context, req execution.Request) *execution.Outcome
}

// RatchetMode selects the stop-loss adjustment strategy
type RatchetMode string

const (
	RatchetOff       RatchetMode = "off"       // stop-loss never moves
	RatchetBreakeven RatchetMode = "breakeven" // stop ratchets to entry after the first TP fill
)

// Config tunes the monitor loop
type Config struct {
	Interval         time.Duration
	PassTimeout      time.Duration
	FetchTimeout     time.Duration
	FetchConcurrency int
	DustThreshold    decimal.Decimal
	RatchetMode      RatchetMode
	RatchetBufferPct decimal.Decimal
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.PassTimeout <= 0 {
		c.PassTimeout = 25 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 8 * time.Second
	}
	if c.FetchTimeout > 10*time.Second {
		c.FetchTimeout = 10 * time.Second
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 8
	}
	if c.DustThreshold.IsZero() {
		c.DustThreshold = decimal.RequireFromString("0.001")
	}
	if c.RatchetMode == "" {
		c.RatchetMode = RatchetOff
	}
	return c
}

// Stats are the monitor's in-memory reliability counters
type Stats struct {
	Passes           int64     `json:"passes"`
	ActiveIntents    int       `json:"active_intents"`
	FetchOK          int64     `json:"fetch_ok"`
	FetchFailed      int64     `json:"fetch_failed"`
	TriggersFired    int64     `json:"triggers_fired"`
	ExecutionsOK     int64     `json:"executions_ok"`
	ExecutionsFailed int64     `json:"executions_failed"`
	LastPassAt       time.Time `json:"last_pass_at"`
	LastPassMillis   int64     `json:"last_pass_ms"`
}

// passCounters accumulate during one pass and fold into Stats at the end
type passCounters struct {
	fetchOK    int64
	fetchFail  int64
	fired      int64
	execOK     int64
	execFailed int64
}

// Service is the monitor loop. All intent mutation is serialized
// through its mutex: the loop's apply phase, Register, and Cancel are
// the only writers.
type Service struct {
	cfg       Config
	store     intent.Store
	feed      market.Feed
	executor  Executor
	notifier  alert.Notifier
	evaluator *TriggerEvaluator

	mu        sync.Mutex
	intents   map[string]*intent.ExitIntent
	stats     Stats
	forceSave bool

	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewService creates the monitor. notifier may be nil in tests.
func NewService(cfg Config, store intent.Store, feed market.Feed, executor Executor, notifier alert.Notifier) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		cfg:       cfg,
		store:     store,
		feed:      feed,
		executor:  executor,
		notifier:  notifier,
		evaluator: NewTriggerEvaluator(cfg.DustThreshold),
		intents:   make(map[string]*intent.ExitIntent),
	}
}

// load pulls the persisted intents into memory.
// A corrupt store starts empty with a loud warning; any other load
// failure is an unrecoverable startup error.
func (s *Service) load(ctx context.Context) (int, error) {
	loaded, err := s.store.LoadAll(ctx)
	if err != nil {
		if !errors.Is(err, intent.ErrCorruptStore) {
			return 0, fmt.Errorf("load intents: %w", err)
		}
		s.notify(ctx, alert.Event{
			Type:     alert.EventStoreCorrupt,
			Severity: alert.SeverityCritical,
			Message:  "Intent store corrupt, monitoring starts with an empty set",
		})
	}

	s.mu.Lock()
	for _, it := range loaded {
		s.intents[it.ID] = it
	}
	s.mu.Unlock()

	return len(loaded), nil
}

// Start loads the persisted intents and launches the loop
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("monitor already running")
	}
	s.mu.Unlock()

	loaded, err := s.load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	active := s.activeCountLocked()
	s.isRunning = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(runCtx)

	log.Info().
		Int("intents", loaded).
		Int("active", active).
		Dur("interval", s.cfg.Interval).
		Str("ratchet_mode", string(s.cfg.RatchetMode)).
		Msg("🚀 Exit monitor started")

	return nil
}

// RunOnce loads the store and executes exactly one pass, for cron-style
// invocations and testing
func (s *Service) RunOnce(ctx context.Context) error {
	if _, err := s.load(ctx); err != nil {
		return err
	}
	s.RunPass()
	return nil
}

// Stop signals the loop and waits for the in-flight pass to finish
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	log.Info().Msg("🛑 Exit monitor stopped")
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// First pass immediately, then on ticks
	s.RunPass()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunPass()
		}
	}
}

// RunPass executes one full pass under the pass timeout. The timeout
// is independent of the loop's stop signal: a stop request lets the
// in-flight pass finish instead of aborting it mid-mutation.
func (s *Service) RunPass() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PassTimeout)
	defer cancel()
	s.pass(ctx)
}

func (s *Service) pass(ctx context.Context) {
	started := time.Now()

	// 1. Snapshot the active set
	s.mu.Lock()
	active := make([]*intent.ExitIntent, 0, len(s.intents))
	for _, it := range s.intents {
		if it.IsActive() {
			active = append(active, it)
		}
	}
	s.mu.Unlock()

	var counters passCounters
	dirty := false

	if len(active) > 0 {
		// 2. Fan-out: bounded concurrent fetches, one per intent
		snaps := make([]*market.Snapshot, len(active))
		fetchErrs := make([]error, len(active))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.FetchConcurrency)
		for i, it := range active {
			i, it := i, it
			g.Go(func() error {
				fctx, fcancel := context.WithTimeout(gctx, s.cfg.FetchTimeout)
				defer fcancel()
				snaps[i], fetchErrs[i] = s.feed.Snapshot(fctx, it.TokenMint)
				// Fetch failures are per-intent, never per-pass
				return nil
			})
		}
		_ = g.Wait()

		// 3. Fan-in: evaluate and mutate on the single control path
		now := time.Now()
		for i, it := range active {
			if fetchErrs[i] != nil {
				counters.fetchFail++
				log.Warn().
					Err(fetchErrs[i]).
					Str("intent_id", it.ID).
					Str("symbol", it.Symbol).
					Msg("Snapshot fetch failed, skipping intent this pass")
				continue
			}
			counters.fetchOK++
			if s.processIntent(ctx, it, snaps[i], now, &counters) {
				dirty = true
			}
		}
	}

	// 4. Persist once per pass, only when something changed
	s.mu.Lock()
	if s.forceSave {
		dirty = true
	}
	if dirty {
		all := s.allIntentsLocked()
		if err := s.store.SaveAll(ctx, all); err != nil {
			s.forceSave = true
			log.Error().Err(err).Msg("Intent persistence failed, will retry next pass")
		} else {
			s.forceSave = false
		}
	}

	// 5. Fold counters
	s.stats.Passes++
	s.stats.ActiveIntents = s.activeCountLocked()
	s.stats.FetchOK += counters.fetchOK
	s.stats.FetchFailed += counters.fetchFail
	s.stats.TriggersFired += counters.fired
	s.stats.ExecutionsOK += counters.execOK
	s.stats.ExecutionsFailed += counters.execFailed
	s.stats.LastPassAt = started
	s.stats.LastPassMillis = time.Since(started).Milliseconds()
	s.mu.Unlock()

	if len(active) > 0 {
		log.Info().
			Int("intents", len(active)).
			Int64("fetch_ok", counters.fetchOK).
			Int64("fetch_failed", counters.fetchFail).
			Int64("triggers", counters.fired).
			Dur("took", time.Since(started)).
			Msg("Pass complete")
	} else {
		log.Debug().Msg("Pass complete, no active intents")
	}
}

// processIntent evaluates one intent against its snapshot and executes
// whatever fired. Reports whether persisted state changed.
func (s *Service) processIntent(ctx context.Context, it *intent.ExitIntent, snap *market.Snapshot, now time.Time, counters *passCounters) bool {
	dirty := false

	// Evaluate under the lock; Cancel may race the fetch phase
	s.mu.Lock()
	if !it.IsActive() {
		s.mu.Unlock()
		return false
	}

	eval := s.evaluator.Evaluate(it, snap, now)

	if eval.AutoClose {
		it.MarkClosed(now)
		s.mu.Unlock()
		log.Info().
			Str("intent_id", it.ID).
			Str("symbol", it.Symbol).
			Msg("🎯 Remaining quantity at dust, intent closed")
		return true
	}

	// Trailing ratchet is observation, not action: applied even when
	// nothing fires and even with auto-execute off
	if eval.TrailingUpdated {
		it.TrailingStop.HighestPrice = eval.NewHighestPrice
		it.TrailingStop.CurrentStop = eval.NewCurrentStop
		it.UpdatedAt = now
		dirty = true
	}

	reqs := make([]execution.Request, 0, len(eval.Triggers))
	for _, trig := range eval.Triggers {
		reqs = append(reqs, execution.Request{
			IntentID:    it.ID,
			TokenMint:   it.TokenMint,
			Symbol:      it.Symbol,
			Trigger:     trig.Kind,
			Level:       trig.Level,
			Quantity:    trig.Quantity,
			Price:       snap.Price,
			AutoExecute: it.AutoExecute,
			Reason:      trig.Reason,
		})
	}
	s.mu.Unlock()

	// Execute outside the lock: submissions can take seconds
	for i, req := range reqs {
		counters.fired++
		s.notifyTrigger(ctx, it, eval.Triggers[i], req)

		outcome := s.executor.Execute(ctx, req)
		if req.AutoExecute {
			if outcome.Executed {
				counters.execOK++
			} else {
				counters.execFailed++
			}
		}
		if outcome.Executed {
			if s.applyOutcome(it, eval.Triggers[i], outcome, now) {
				dirty = true
			}
		}
	}

	return dirty
}

// applyOutcome mutates the intent after a confirmed fill
func (s *Service) applyOutcome(it *intent.ExitIntent, trig Trigger, outcome *execution.Outcome, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if it.Status == intent.StatusCancelled {
		// Sell confirmed while an operator cancelled: the fill is real,
		// so the quantity still comes off
		log.Warn().
			Str("intent_id", it.ID).
			Str("symbol", it.Symbol).
			Msg("Fill confirmed for a cancelled intent, reducing quantity only")
		it.ReduceRemaining(outcome.FilledQuantity, now)
		return true
	}

	it.ReduceRemaining(outcome.FilledQuantity, now)

	switch trig.Kind {
	case intent.KindTakeProfit:
		for idx := range it.TakeProfits {
			if it.TakeProfits[idx].Level == trig.Level {
				it.TakeProfits[idx].Filled = true
				t := now
				it.TakeProfits[idx].FilledAt = &t
				break
			}
		}
		s.ratchetStopLocked(it)

	case intent.KindTimeStop:
		if it.RemainingQuantity.LessThanOrEqual(s.cfg.DustThreshold) && it.TimeStop != nil {
			it.TimeStop.Triggered = true
		}
	}

	if it.RemainingQuantity.LessThanOrEqual(s.cfg.DustThreshold) {
		it.MarkClosed(now)
		log.Info().
			Str("intent_id", it.ID).
			Str("symbol", it.Symbol).
			Str("trigger", string(trig.Kind)).
			Msg("🎯 Position fully exited, intent closed")
	}

	return true
}

// ratchetStopLocked moves the stop-loss to breakeven after a TP fill
// when that strategy is enabled. Never moves the stop downward.
func (s *Service) ratchetStopLocked(it *intent.ExitIntent) {
	if s.cfg.RatchetMode != RatchetBreakeven || it.StopLoss == nil || !it.HasFilledTakeProfit() {
		return
	}

	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	target := it.EntryPrice.Mul(one.Add(s.cfg.RatchetBufferPct.Div(hundred)))

	if target.GreaterThan(it.StopLoss.Price) {
		it.StopLoss.Price = target
		it.StopLoss.Adjusted = true
		log.Info().
			Str("intent_id", it.ID).
			Str("symbol", it.Symbol).
			Str("stop", target.String()).
			Msg("Stop-loss ratcheted to breakeven")
	}
}

func (s *Service) notifyTrigger(ctx context.Context, it *intent.ExitIntent, trig Trigger, req execution.Request) {
	label := triggerLabel(trig)

	msg := fmt.Sprintf("%s fired: sell %s %s at %s", label, trig.Quantity, it.Symbol, req.Price)
	if !req.AutoExecute {
		msg = fmt.Sprintf("Would sell %s %s at %s (%s)", trig.Quantity, it.Symbol, req.Price, label)
	}

	s.notify(ctx, alert.Event{
		Type:     alert.EventTriggerFired,
		Severity: alert.SeverityInfo,
		IntentID: it.ID,
		Symbol:   it.Symbol,
		Message:  msg,
		Details: map[string]string{
			"trigger":  string(trig.Kind),
			"level":    fmt.Sprintf("%d", trig.Level),
			"quantity": trig.Quantity.String(),
			"price":    req.Price.String(),
			"reason":   trig.Reason,
		},
	})
}

func (s *Service) notify(ctx context.Context, ev alert.Event) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Notify(ctx, ev)
}

// Register adds a new intent to monitoring and persists it before
// returning, so the caller knows the position is intent-safe.
func (s *Service) Register(ctx context.Context, it *intent.ExitIntent) error {
	if err := it.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.intents[it.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("intent %s already registered", it.ID)
	}
	s.intents[it.ID] = it
	s.mu.Unlock()

	if err := s.store.Upsert(ctx, it); err != nil {
		s.mu.Lock()
		s.forceSave = true
		s.mu.Unlock()
		return fmt.Errorf("persist intent: %w", err)
	}

	log.Info().
		Str("intent_id", it.ID).
		Str("symbol", it.Symbol).
		Str("entry_price", it.EntryPrice.String()).
		Str("quantity", it.OriginalQuantity.String()).
		Bool("auto_execute", it.AutoExecute).
		Msg("📝 Exit intent registered")

	return nil
}

// Cancel withdraws an intent from monitoring
func (s *Service) Cancel(ctx context.Context, id string) (*intent.ExitIntent, error) {
	s.mu.Lock()
	it, ok := s.intents[id]
	if !ok {
		s.mu.Unlock()
		return nil, intent.ErrIntentNotFound
	}
	if it.Status.IsTerminal() {
		s.mu.Unlock()
		return nil, intent.ErrIntentTerminal
	}
	it.MarkCancelled(time.Now())
	clone := it.Clone()
	s.mu.Unlock()

	if err := s.store.Upsert(ctx, clone); err != nil {
		s.mu.Lock()
		s.forceSave = true
		s.mu.Unlock()
		log.Error().Err(err).Str("intent_id", id).Msg("Cancel persisted on next pass, upsert failed")
	}

	log.Info().
		Str("intent_id", id).
		Str("symbol", clone.Symbol).
		Msg("Exit intent cancelled")

	return clone, nil
}

// Intents returns a stable, deep-copied view of all intents
func (s *Service) Intents() []*intent.ExitIntent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*intent.ExitIntent, 0, len(s.intents))
	for _, it := range s.intents {
		out = append(out, it.Clone())
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// Intent returns a deep copy of one intent by ID
func (s *Service) Intent(id string) (*intent.ExitIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.intents[id]
	if !ok {
		return nil, intent.ErrIntentNotFound
	}
	return it.Clone(), nil
}

// Stats returns a copy of the loop counters
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.ActiveIntents = s.activeCountLocked()
	return st
}

func (s *Service) activeCountLocked() int {
	n := 0
	for _, it := range s.intents {
		if it.IsActive() {
			n++
		}
	}
	return n
}

// allIntentsLocked returns every intent in stable order for SaveAll
func (s *Service) allIntentsLocked() []*intent.ExitIntent {
	all := make([]*intent.ExitIntent, 0, len(s.intents))
	for _, it := range s.intents {
		all = append(all, it)
	}
	sort.Slice(all, func(a, b int) bool {
		if !all[a].CreatedAt.Equal(all[b].CreatedAt) {
			return all[a].CreatedAt.Before(all[b].CreatedAt)
		}
		return all[a].ID < all[b].ID
	})
	return all
}

// triggerLabel names a trigger for logs and alerts
func triggerLabel(t Trigger) string {
	switch t.Kind {
	case intent.KindTakeProfit:
		return fmt.Sprintf("TP%d", t.Level)
	case intent.KindStopLoss:
		return "Stop-loss"
	case intent.KindTrailingStop:
		return "Trailing stop"
	case intent.KindTimeStop:
		return "Time stop"
	default:
		return string(t.Kind)
	}
}
