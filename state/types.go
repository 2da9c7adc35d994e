package state

import (
	"time"

	"github.com/shopspring/decimal"
)

// ==============================================================================
// ROUND STATE
// ==============================================================================

type Phase string

const (
	PhaseBetting  Phase = "betting"
	PhaseSpinning Phase = "spinning"
	PhaseSettling Phase = "settling"
)

// Round is one betting -> spin -> settlement cycle
type Round struct {
	RoundID          uint64
	Phase            Phase
	SecondsRemaining int
	Wagers           WagerLedger
	WinningSegmentID string // set only while settling
	ServerSeedHash   string
}

// Settings are the knobs of a round engine. They are fixed for the engine's lifetime.
type Settings struct {
	CountdownSeconds int
	// AutoSpinEmpty spins a round with no wagers when the countdown expires
	// instead of restarting the countdown.
	AutoSpinEmpty    bool
	StartingBalance  int64
	HistoryCapacity  int
	ChipValues       []int64
	MaxBetPerSegment int64 // 0 = no cap
}

// ==============================================================================
// OUTBOUND
// ==============================================================================

// Snapshot is a read-only copy of the round and session handed to observers and callers
type Snapshot struct {
	Version          uint64           `json:"version"`
	SessionID        string           `json:"sessionId"`
	RoundID          uint64           `json:"roundId"`
	Phase            Phase            `json:"phase"`
	SecondsRemaining int              `json:"secondsRemaining"`
	Wagers           map[string]int64 `json:"wagers"`
	TotalWagered     int64            `json:"totalWagered"`
	Balance          int64            `json:"balance"`
	SelectedChip     int64            `json:"selectedChip"`
	WinningSegmentID string           `json:"winningSegmentId,omitempty"`
	ServerSeedHash   string           `json:"serverSeedHash,omitempty"`
}

type EventKind string

const (
	EventPhaseChanged     EventKind = "phase_changed"
	EventTick             EventKind = "tick"
	EventCountdownReset   EventKind = "countdown_reset"
	EventBetPlaced        EventKind = "bet_placed"
	EventBetAdjusted      EventKind = "bet_adjusted"
	EventBetsCleared      EventKind = "bets_cleared"
	EventBetsDoubled      EventKind = "bets_doubled"
	EventChipSelected     EventKind = "chip_selected"
	EventRoundReset       EventKind = "round_reset"
	EventMultiplierStaged EventKind = "multiplier_staged"
)

// Settlement describes a resolved round. It rides on the phase change into settling.
type Settlement struct {
	SessionID        string           `json:"sessionId"`
	RoundID          uint64           `json:"roundId"`
	WinningSegmentID string           `json:"winningSegmentId"`
	Multiplier       decimal.Decimal  `json:"multiplier"`
	Wagers           map[string]int64 `json:"wagers"`
	TotalWagered     int64            `json:"totalWagered"`
	Payout           int64            `json:"payout"`
	BalanceAfter     int64            `json:"balanceAfter"`
	ServerSeed       string           `json:"serverSeed,omitempty"`
	ServerSeedHash   string           `json:"serverSeedHash,omitempty"`
	SettledAt        time.Time        `json:"settledAt"`
	// SegmentOrder is the wheel's segment ids in draw order, needed to re-verify the outcome
	SegmentOrder []string `json:"segmentOrder"`

	// Session is the session as it stood right after this settlement
	Session SessionState `json:"-"`
}

type Event struct {
	Kind       EventKind   `json:"kind"`
	Snapshot   Snapshot    `json:"snapshot"`
	Settlement *Settlement `json:"settlement,omitempty"`
}

// Observer receives every event after the engine lock is released
type Observer func(Event)

// ==============================================================================
// SESSION PERSISTENCE
// ==============================================================================

// SessionState is what survives a restart
type SessionState struct {
	SessionID    string         `json:"sessionId"`
	Balance      int64          `json:"balance"`
	SelectedChip int64          `json:"selectedChip"`
	NextRoundID  uint64         `json:"nextRoundId"`
	History      []HistoryEntry `json:"history"`
}
