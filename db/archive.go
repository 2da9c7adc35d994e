package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fruitRouletteServer/config"
	"fruitRouletteServer/game"
	"fruitRouletteServer/state"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
)

const (
	roundTable = "round_history"
	auditTable = "audit_log"

	colSessionID      = "session_id"
	colRoundID        = "round_id"
	colWinningSegment = "winning_segment_id"
	colMultiplier     = "multiplier"
	colWagers         = "wagers"
	colTotalWagered   = "total_wagered"
	colPayout         = "payout"
	colBalanceAfter   = "balance_after"
	colServerSeed     = "server_seed"
	colServerSeedHash = "server_seed_hash"
	colSettledAt      = "settled_at"
	colSegmentOrder   = "segment_order"
)

// Audit actions
const (
	AuditSetMultiplier    = "SET_MULTIPLIER"
	AuditViewRoundHistory = "VIEW_ROUND_HISTORY"
	AuditSessionReset     = "SESSION_RESET"
)

// RoundRecord is one settled round as archived
type RoundRecord struct {
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
	SegmentOrder     []string         `json:"segmentOrder,omitempty"`
}

// AuditRecord is one entry of the admin/audit trail
type AuditRecord struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoundFilter narrows archive queries. Zero values mean "any".
type RoundFilter struct {
	SessionID string
	SegmentID string
	WinsOnly  bool
	Limit     int
}

// RoundArchive persists settled rounds and the audit trail
type RoundArchive interface {
	StoreRound(ctx context.Context, record *RoundRecord) error
	GetRound(ctx context.Context, sessionID string, roundID uint64) (*RoundRecord, error)
	RecentRounds(ctx context.Context, filter RoundFilter) ([]*RoundRecord, error)
	StoreAudit(ctx context.Context, record *AuditRecord) error
	Health(ctx context.Context) error
	Name() string
}

// RecordFromSettlement converts a settlement event into an archive row
func RecordFromSettlement(s *state.Settlement) *RoundRecord {
	return &RoundRecord{
		SessionID:        s.SessionID,
		RoundID:          s.RoundID,
		WinningSegmentID: s.WinningSegmentID,
		Multiplier:       s.Multiplier,
		Wagers:           s.Wagers,
		TotalWagered:     s.TotalWagered,
		Payout:           s.Payout,
		BalanceAfter:     s.BalanceAfter,
		ServerSeed:       s.ServerSeed,
		ServerSeedHash:   s.ServerSeedHash,
		SettledAt:        s.SettledAt.UTC(),
		SegmentOrder:     s.SegmentOrder,
	}
}

// Wheel returns the segments in the order the round was drawn from.
// Rounds archived without an order fall back to current.
func (r *RoundRecord) Wheel(current []game.Segment) []game.Segment {
	if len(r.SegmentOrder) == 0 {
		return current
	}
	wheel := make([]game.Segment, len(r.SegmentOrder))
	for i, id := range r.SegmentOrder {
		wheel[i] = game.Segment{ID: id}
		if seg, ok := game.FindSegment(current, id); ok {
			wheel[i] = seg
		}
	}
	return wheel
}

/* =========================
   SHARED QUERY BUILDERS
========================= */

var roundColumns = []string{
	colSessionID, colRoundID, colWinningSegment, colMultiplier, colWagers,
	colTotalWagered, colPayout, colBalanceAfter, colServerSeed, colServerSeedHash, colSettledAt,
	colSegmentOrder,
}

func insertRoundQuery(ph sq.PlaceholderFormat, r *RoundRecord) (string, []interface{}, error) {
	wagersJSON, err := json.Marshal(r.Wagers)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal wagers: %w", err)
	}
	order := r.SegmentOrder
	if order == nil {
		order = []string{}
	}
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal segment order: %w", err)
	}

	return sq.Insert(roundTable).
		Columns(roundColumns...).
		Values(
			r.SessionID,
			int64(r.RoundID),
			r.WinningSegmentID,
			r.Multiplier.String(),
			string(wagersJSON),
			r.TotalWagered,
			r.Payout,
			r.BalanceAfter,
			r.ServerSeed,
			r.ServerSeedHash,
			r.SettledAt,
			string(orderJSON),
		).
		Suffix("ON CONFLICT (" + colSessionID + ", " + colRoundID + ") DO NOTHING").
		PlaceholderFormat(ph).
		ToSql()
}

func selectRoundQuery(ph sq.PlaceholderFormat, sessionID string, roundID uint64) (string, []interface{}, error) {
	return sq.Select(roundColumns...).
		From(roundTable).
		Where(sq.Eq{colSessionID: sessionID, colRoundID: int64(roundID)}).
		PlaceholderFormat(ph).
		ToSql()
}

func recentRoundsQuery(ph sq.PlaceholderFormat, f RoundFilter) (string, []interface{}, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = config.DefaultArchiveLimit
	}
	if limit > config.MaxArchiveLimit {
		limit = config.MaxArchiveLimit
	}

	query := sq.Select(roundColumns...).From(roundTable)
	if f.SessionID != "" {
		query = query.Where(sq.Eq{colSessionID: f.SessionID})
	}
	if f.SegmentID != "" {
		query = query.Where(sq.Eq{colWinningSegment: f.SegmentID})
	}
	if f.WinsOnly {
		query = query.Where(sq.Gt{colPayout: 0})
	}

	return query.
		OrderBy(colSettledAt+" DESC", colRoundID+" DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(ph).
		ToSql()
}

func insertAuditQuery(ph sq.PlaceholderFormat, a *AuditRecord) (string, []interface{}, error) {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return sq.Insert(auditTable).
		Columns("action", "actor", "details", "created_at").
		Values(a.Action, a.Actor, a.Details, createdAt).
		PlaceholderFormat(ph).
		ToSql()
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (*RoundRecord, error) {
	var (
		record     RoundRecord
		roundID    int64
		multiplier string
		wagersJSON []byte
		orderJSON  []byte
	)
	if err := row.Scan(
		&record.SessionID,
		&roundID,
		&record.WinningSegmentID,
		&multiplier,
		&wagersJSON,
		&record.TotalWagered,
		&record.Payout,
		&record.BalanceAfter,
		&record.ServerSeed,
		&record.ServerSeedHash,
		&record.SettledAt,
		&orderJSON,
	); err != nil {
		return nil, err
	}

	record.RoundID = uint64(roundID)
	mult, err := decimal.NewFromString(multiplier)
	if err != nil {
		return nil, fmt.Errorf("failed to parse multiplier %q: %w", multiplier, err)
	}
	record.Multiplier = mult
	if err := json.Unmarshal(wagersJSON, &record.Wagers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wagers: %w", err)
	}
	if len(orderJSON) > 0 {
		if err := json.Unmarshal(orderJSON, &record.SegmentOrder); err != nil {
			return nil, fmt.Errorf("failed to unmarshal segment order: %w", err)
		}
	}
	return &record, nil
}
