package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"fruitRouletteServer/game"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EngineConfig wires a RoundEngine. Restore is optional.
type EngineConfig struct {
	Segments  []game.Segment
	Settings  Settings
	Generator game.OutcomeGenerator
	Restore   *SessionState
	Now       func() time.Time
}

// RoundEngine owns the active round and the session.
// Every public method is one critical section: validation runs before any
// mutation, so a rejected call leaves round and session untouched.
type RoundEngine struct {
	mu sync.Mutex

	segments  []game.Segment
	staged    map[string]decimal.Decimal
	settings  Settings
	generator game.OutcomeGenerator
	now       func() time.Time

	round       Round
	session     *Session
	nextRoundID uint64
	version     uint64
	pending     []Event

	obsMu     sync.RWMutex
	observers []observerEntry
	nextObsID int
}

type observerEntry struct {
	id int
	fn Observer
}

// NewRoundEngine validates the configuration and opens the first betting round
func NewRoundEngine(cfg EngineConfig) (*RoundEngine, error) {
	if err := game.ValidateSegments(cfg.Segments); err != nil {
		return nil, fmt.Errorf("invalid wheel: %w", err)
	}
	settings, err := normalizeSettings(cfg.Settings)
	if err != nil {
		return nil, err
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("outcome generator is required")
	}

	e := &RoundEngine{
		segments:    game.CloneSegments(cfg.Segments),
		staged:      make(map[string]decimal.Decimal),
		settings:    settings,
		generator:   cfg.Generator,
		now:         cfg.Now,
		nextRoundID: 1,
	}
	if e.now == nil {
		e.now = time.Now
	}

	e.session = &Session{
		ID:           uuid.New().String(),
		Balance:      settings.StartingBalance,
		SelectedChip: settings.ChipValues[0],
		History:      NewHistory(settings.HistoryCapacity),
	}
	if cfg.Restore != nil {
		if err := e.restore(cfg.Restore); err != nil {
			return nil, err
		}
	}

	e.openRoundLocked()
	return e, nil
}

func normalizeSettings(s Settings) (Settings, error) {
	if s.CountdownSeconds <= 0 {
		return s, fmt.Errorf("countdown must be positive, got %d", s.CountdownSeconds)
	}
	if s.StartingBalance < 0 {
		return s, fmt.Errorf("starting balance must not be negative, got %d", s.StartingBalance)
	}
	if s.HistoryCapacity <= 0 {
		return s, fmt.Errorf("history capacity must be positive, got %d", s.HistoryCapacity)
	}
	if s.MaxBetPerSegment < 0 {
		return s, fmt.Errorf("max bet must not be negative, got %d", s.MaxBetPerSegment)
	}
	if len(s.ChipValues) == 0 {
		return s, fmt.Errorf("at least one chip value is required")
	}

	chips := make([]int64, len(s.ChipValues))
	copy(chips, s.ChipValues)
	sort.Slice(chips, func(i, j int) bool { return chips[i] < chips[j] })
	for i, c := range chips {
		if c <= 0 {
			return s, fmt.Errorf("chip values must be positive, got %d", c)
		}
		if i > 0 && chips[i-1] == c {
			return s, fmt.Errorf("duplicate chip value %d", c)
		}
	}
	s.ChipValues = chips
	return s, nil
}

func (e *RoundEngine) restore(saved *SessionState) error {
	if saved.Balance < 0 {
		return fmt.Errorf("restored balance is negative: %d", saved.Balance)
	}
	if saved.SessionID != "" {
		e.session.ID = saved.SessionID
	}
	e.session.Balance = saved.Balance
	if e.isChip(saved.SelectedChip) {
		e.session.SelectedChip = saved.SelectedChip
	}
	if saved.NextRoundID > 0 {
		e.nextRoundID = saved.NextRoundID
	}
	for _, entry := range saved.History {
		e.session.History.Add(entry)
	}
	return nil
}

/* =========================
   CRITICAL SECTION + NOTIFY
========================= */

// apply runs op under the lock and delivers the events it queued once the lock is released
func (e *RoundEngine) apply(op func() error) (Snapshot, error) {
	e.mu.Lock()
	err := op()
	snap := e.snapshotLocked()
	events := e.pending
	e.pending = nil
	e.mu.Unlock()

	e.dispatch(events)
	return snap, err
}

func (e *RoundEngine) emitLocked(kind EventKind, settlement *Settlement) {
	e.version++
	e.pending = append(e.pending, Event{
		Kind:       kind,
		Snapshot:   e.snapshotLocked(),
		Settlement: settlement,
	})
}

func (e *RoundEngine) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}

	e.obsMu.RLock()
	observers := make([]Observer, len(e.observers))
	for i, o := range e.observers {
		observers[i] = o.fn
	}
	e.obsMu.RUnlock()

	for _, ev := range events {
		for _, fn := range observers {
			fn(ev)
		}
	}
}

// Subscribe registers an observer and returns its unsubscribe func.
// Observers run on the caller's goroutine after the lock is released, so they may call back into the engine.
func (e *RoundEngine) Subscribe(fn Observer) func() {
	e.obsMu.Lock()
	id := e.nextObsID
	e.nextObsID++
	e.observers = append(e.observers, observerEntry{id: id, fn: fn})
	e.obsMu.Unlock()

	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

/* =========================
   READS
========================= */

func (e *RoundEngine) snapshotLocked() Snapshot {
	return Snapshot{
		Version:          e.version,
		SessionID:        e.session.ID,
		RoundID:          e.round.RoundID,
		Phase:            e.round.Phase,
		SecondsRemaining: e.round.SecondsRemaining,
		Wagers:           e.round.Wagers.Copy(),
		TotalWagered:     e.round.Wagers.Total(),
		Balance:          e.session.Balance,
		SelectedChip:     e.session.SelectedChip,
		WinningSegmentID: e.round.WinningSegmentID,
		ServerSeedHash:   e.round.ServerSeedHash,
	}
}

func (e *RoundEngine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// History returns the settled rounds, oldest first
func (e *RoundEngine) History() []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.History.Entries()
}

// Segments returns the wheel used by the current round
func (e *RoundEngine) Segments() []game.Segment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return game.CloneSegments(e.segments)
}

// StagedMultipliers returns multiplier changes waiting for the next round
func (e *RoundEngine) StagedMultipliers() map[string]decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(e.staged))
	for id, m := range e.staged {
		out[id] = m
	}
	return out
}

func (e *RoundEngine) ChipValues() []int64 {
	out := make([]int64, len(e.settings.ChipValues))
	copy(out, e.settings.ChipValues)
	return out
}

func (e *RoundEngine) Settings() Settings {
	s := e.settings
	s.ChipValues = e.ChipValues()
	return s
}

// ExportSession captures what is needed to resume this session after a restart.
// Wagers of the open round are refunded into the exported balance; a restored
// engine opens a fresh round, just as StartNewRound would.
func (e *RoundEngine) ExportSession() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionStateLocked(e.round.Wagers.Total())
}

func (e *RoundEngine) sessionStateLocked(refund int64) SessionState {
	return SessionState{
		SessionID:    e.session.ID,
		Balance:      addCapped(e.session.Balance, refund),
		SelectedChip: e.session.SelectedChip,
		NextRoundID:  e.nextRoundID,
		History:      e.session.History.Entries(),
	}
}

/* =========================
   TIMER + SPIN
========================= */

// Tick advances the betting countdown by one second.
// At zero a round with wagers spins; an empty round restarts the countdown
// unless AutoSpinEmpty is set.
func (e *RoundEngine) Tick() (Snapshot, error) {
	return e.apply(func() error {
		if err := e.requireBettingLocked("tick"); err != nil {
			return err
		}

		e.round.SecondsRemaining--
		if e.round.SecondsRemaining > 0 {
			e.emitLocked(EventTick, nil)
			return nil
		}

		if e.round.Wagers.Total() > 0 || e.settings.AutoSpinEmpty {
			e.spinLocked()
			return nil
		}

		e.round.SecondsRemaining = e.settings.CountdownSeconds
		e.emitLocked(EventCountdownReset, nil)
		return nil
	})
}

// TriggerSpin closes betting immediately. Requires at least one wager.
func (e *RoundEngine) TriggerSpin() (Snapshot, error) {
	return e.apply(func() error {
		if err := e.requireBettingLocked("spin"); err != nil {
			return err
		}
		if e.round.Wagers.Total() == 0 {
			return fmt.Errorf("%w: nothing to spin in round %d", ErrNoActiveWagers, e.round.RoundID)
		}
		e.spinLocked()
		return nil
	})
}

// spinLocked resolves the round: spinning -> settling -> next betting round
func (e *RoundEngine) spinLocked() {
	e.round.Phase = PhaseSpinning
	e.emitLocked(EventPhaseChanged, nil)

	outcome := e.generator.PickWinner(e.round.RoundID, e.segments)

	e.round.WinningSegmentID = outcome.SegmentID
	e.round.Phase = PhaseSettling

	totalWagered := e.round.Wagers.Total()
	payout := game.ComputePayout(e.round.Wagers, outcome.SegmentID, e.segments)
	e.session.Balance = addCapped(e.session.Balance, payout)

	settledAt := e.now().UTC()
	e.session.History.Add(HistoryEntry{
		RoundID:          e.round.RoundID,
		WinningSegmentID: outcome.SegmentID,
		TotalWagered:     totalWagered,
		TotalPayout:      payout,
		Timestamp:        settledAt,
		IsWin:            payout > 0,
	})

	multiplier := decimal.Zero
	if seg, ok := game.FindSegment(e.segments, outcome.SegmentID); ok {
		multiplier = seg.Multiplier
	}

	seedHash := outcome.ServerSeedHash
	if seedHash == "" {
		seedHash = e.round.ServerSeedHash
	}

	order := make([]string, len(e.segments))
	for i, seg := range e.segments {
		order[i] = seg.ID
	}

	e.emitLocked(EventPhaseChanged, &Settlement{
		SessionID:        e.session.ID,
		RoundID:          e.round.RoundID,
		WinningSegmentID: outcome.SegmentID,
		Multiplier:       multiplier,
		Wagers:           e.round.Wagers.Copy(),
		TotalWagered:     totalWagered,
		Payout:           payout,
		BalanceAfter:     e.session.Balance,
		ServerSeed:       outcome.ServerSeed,
		ServerSeedHash:   seedHash,
		SettledAt:        settledAt,
		SegmentOrder:     order,
		// the staked wagers are resolved, nothing to refund
		Session: e.sessionStateLocked(0),
	})

	e.openRoundLocked()
	e.emitLocked(EventPhaseChanged, nil)
}

// openRoundLocked replaces the active round with a fresh betting round
func (e *RoundEngine) openRoundLocked() {
	e.applyStagedLocked()

	id := e.nextRoundID
	e.nextRoundID++

	e.round = Round{
		RoundID:          id,
		Phase:            PhaseBetting,
		SecondsRemaining: e.settings.CountdownSeconds,
		Wagers:           WagerLedger{},
	}
	if c, ok := e.generator.(game.Committer); ok {
		e.round.ServerSeedHash = c.Commit(id)
	}
}

func (e *RoundEngine) applyStagedLocked() {
	if len(e.staged) == 0 {
		return
	}
	for i := range e.segments {
		if m, ok := e.staged[e.segments[i].ID]; ok {
			e.segments[i].Multiplier = m
		}
	}
	e.staged = make(map[string]decimal.Decimal)
}

// StartNewRound abandons the active round: wagers are refunded and a new round
// opens with a full countdown. A session that cannot afford the smallest chip
// gets its starting balance back.
func (e *RoundEngine) StartNewRound() (Snapshot, error) {
	return e.apply(func() error {
		e.session.Balance += e.round.Wagers.Total()

		if e.session.Balance < e.settings.ChipValues[0] {
			e.session.Balance = e.settings.StartingBalance
		}

		e.openRoundLocked()
		e.emitLocked(EventRoundReset, nil)
		return nil
	})
}

/* =========================
   BETTING
========================= */

func (e *RoundEngine) requireBettingLocked(action string) error {
	if e.round.Phase != PhaseBetting {
		return fmt.Errorf("%w: cannot %s while %s", ErrInvalidPhase, action, e.round.Phase)
	}
	return nil
}

func (e *RoundEngine) requireSegmentLocked(segmentID string) error {
	if _, ok := game.FindSegment(e.segments, segmentID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSegment, segmentID)
	}
	return nil
}

// chargeLocked moves amount from balance onto a segment after all checks pass
func (e *RoundEngine) chargeLocked(segmentID string, amount int64) error {
	if amount > e.session.Balance {
		return fmt.Errorf("%w: stake %d exceeds balance %d", ErrInsufficientBalance, amount, e.session.Balance)
	}
	limit := e.settings.MaxBetPerSegment
	if limit > 0 && e.round.Wagers[segmentID]+amount > limit {
		return fmt.Errorf("%w: %s would reach %d (max %d)", ErrBetLimit, segmentID, e.round.Wagers[segmentID]+amount, limit)
	}

	e.round.Wagers.add(segmentID, amount)
	e.session.Balance -= amount
	return nil
}

// PlaceBet stakes amount on a segment
func (e *RoundEngine) PlaceBet(segmentID string, amount int64) (Snapshot, error) {
	return e.apply(func() error {
		return e.placeBetLocked(segmentID, amount)
	})
}

// PlaceChip stakes the selected chip on a segment
func (e *RoundEngine) PlaceChip(segmentID string) (Snapshot, error) {
	return e.apply(func() error {
		return e.placeBetLocked(segmentID, e.session.SelectedChip)
	})
}

func (e *RoundEngine) placeBetLocked(segmentID string, amount int64) error {
	if err := e.requireBettingLocked("place bet"); err != nil {
		return err
	}
	if err := e.requireSegmentLocked(segmentID); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: stake must be positive, got %d", ErrInvalidAmount, amount)
	}
	if err := e.chargeLocked(segmentID, amount); err != nil {
		return err
	}

	e.emitLocked(EventBetPlaced, nil)
	return nil
}

// AdjustBet adds delta to a segment's stake. A negative delta refunds,
// never taking the stake below zero.
func (e *RoundEngine) AdjustBet(segmentID string, delta int64) (Snapshot, error) {
	return e.apply(func() error {
		if err := e.requireBettingLocked("adjust bet"); err != nil {
			return err
		}
		if err := e.requireSegmentLocked(segmentID); err != nil {
			return err
		}
		if delta == 0 {
			return fmt.Errorf("%w: delta must not be zero", ErrInvalidAmount)
		}

		if delta > 0 {
			if err := e.chargeLocked(segmentID, delta); err != nil {
				return err
			}
			e.emitLocked(EventBetAdjusted, nil)
			return nil
		}

		current := e.round.Wagers[segmentID]
		if current == 0 {
			return nil
		}
		refund := current
		if delta > -current {
			refund = -delta
		}
		e.session.Balance += e.round.Wagers.reduce(segmentID, refund)
		e.emitLocked(EventBetAdjusted, nil)
		return nil
	})
}

// ClearBets refunds every stake of the active round
func (e *RoundEngine) ClearBets() (Snapshot, error) {
	return e.apply(func() error {
		if err := e.requireBettingLocked("clear bets"); err != nil {
			return err
		}
		total := e.round.Wagers.Total()
		if total == 0 {
			return nil
		}

		e.session.Balance += total
		e.round.Wagers = WagerLedger{}
		e.emitLocked(EventBetsCleared, nil)
		return nil
	})
}

// DoubleBets doubles every stake, or nothing at all if the full cost cannot be covered
func (e *RoundEngine) DoubleBets() (Snapshot, error) {
	return e.apply(func() error {
		if err := e.requireBettingLocked("double bets"); err != nil {
			return err
		}
		cost := e.round.Wagers.Total()
		if cost == 0 {
			return fmt.Errorf("%w: nothing to double", ErrNoActiveWagers)
		}
		if cost > e.session.Balance {
			return fmt.Errorf("%w: doubling costs %d, balance %d", ErrInsufficientBalance, cost, e.session.Balance)
		}
		if limit := e.settings.MaxBetPerSegment; limit > 0 {
			for id, amount := range e.round.Wagers {
				if amount*2 > limit {
					return fmt.Errorf("%w: %s would reach %d (max %d)", ErrBetLimit, id, amount*2, limit)
				}
			}
		}

		for id, amount := range e.round.Wagers {
			e.round.Wagers[id] = amount * 2
		}
		e.session.Balance -= cost
		e.emitLocked(EventBetsDoubled, nil)
		return nil
	})
}

/* =========================
   CHIPS
========================= */

func (e *RoundEngine) isChip(value int64) bool {
	for _, c := range e.settings.ChipValues {
		if c == value {
			return true
		}
	}
	return false
}

// SelectChip changes the denomination used by PlaceChip.
// The balance is checked when the chip is placed, not here.
func (e *RoundEngine) SelectChip(value int64) (Snapshot, error) {
	return e.apply(func() error {
		if err := e.requireBettingLocked("select chip"); err != nil {
			return err
		}
		if !e.isChip(value) {
			return fmt.Errorf("%w: %d", ErrInvalidChipValue, value)
		}
		e.session.SelectedChip = value
		e.emitLocked(EventChipSelected, nil)
		return nil
	})
}

// SelectMaxChip picks the largest chip the balance covers, or the smallest chip if none fits
func (e *RoundEngine) SelectMaxChip() (Snapshot, error) {
	return e.apply(func() error {
		if err := e.requireBettingLocked("select chip"); err != nil {
			return err
		}
		chips := e.settings.ChipValues
		chosen := chips[0]
		for _, c := range chips {
			if c <= e.session.Balance {
				chosen = c
			}
		}
		e.session.SelectedChip = chosen
		e.emitLocked(EventChipSelected, nil)
		return nil
	})
}

func (e *RoundEngine) SelectMinChip() (Snapshot, error) {
	return e.apply(func() error {
		if err := e.requireBettingLocked("select chip"); err != nil {
			return err
		}
		e.session.SelectedChip = e.settings.ChipValues[0]
		e.emitLocked(EventChipSelected, nil)
		return nil
	})
}

/* =========================
   ADMIN
========================= */

// SetMultiplier stages a new multiplier for a segment.
// The wheel of a running round never changes; staged values apply when the next round opens.
func (e *RoundEngine) SetMultiplier(segmentID string, multiplier decimal.Decimal) (Snapshot, error) {
	return e.apply(func() error {
		if err := e.requireSegmentLocked(segmentID); err != nil {
			return err
		}
		if !multiplier.IsPositive() {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidMultiplier, multiplier)
		}
		e.staged[segmentID] = multiplier
		e.emitLocked(EventMultiplierStaged, nil)
		return nil
	})
}
