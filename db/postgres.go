package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"fruitRouletteServer/config"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool
)

// InitPostgres initializes the PostgreSQL connection pool
func InitPostgres() error {
	log.Println("🔌 Connecting to PostgreSQL...")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = config.MaxOpenConns
	poolConfig.MinConns = config.MaxIdleConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	PostgresPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := PostgresPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ PostgreSQL connected successfully")

	if err := InitSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		log.Println("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
		PostgresPool = nil
	}
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context) error {
	log.Println("📋 Initializing database schema...")

	roundHistorySchema := `
	CREATE TABLE IF NOT EXISTS round_history (
		id SERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		round_id BIGINT NOT NULL,
		winning_segment_id TEXT NOT NULL,
		multiplier TEXT NOT NULL,
		wagers JSONB NOT NULL,
		total_wagered BIGINT NOT NULL,
		payout BIGINT NOT NULL,
		balance_after BIGINT NOT NULL,
		server_seed TEXT NOT NULL DEFAULT '',
		server_seed_hash TEXT NOT NULL DEFAULT '',
		settled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		segment_order JSONB NOT NULL DEFAULT '[]'::jsonb,
		UNIQUE(session_id, round_id)
	);

	-- Tables created before segment_order was recorded
	ALTER TABLE round_history ADD COLUMN IF NOT EXISTS segment_order JSONB NOT NULL DEFAULT '[]'::jsonb;

	-- Winning segment filter
	CREATE INDEX IF NOT EXISTS idx_round_history_segment ON round_history(winning_segment_id);

	-- Recent rounds first
	CREATE INDEX IF NOT EXISTS idx_round_history_settled_at ON round_history(settled_at DESC);
	`

	if _, err := PostgresPool.Exec(ctx, roundHistorySchema); err != nil {
		return fmt.Errorf("failed to create round_history table: %w", err)
	}

	auditLogSchema := `
	CREATE TABLE IF NOT EXISTS audit_log (
		id SERIAL PRIMARY KEY,
		action TEXT NOT NULL,
		actor TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at DESC);
	`

	if _, err := PostgresPool.Exec(ctx, auditLogSchema); err != nil {
		return fmt.Errorf("failed to create audit_log table: %w", err)
	}

	log.Println("✅ Database schema initialized")
	return nil
}

/* =========================
   ROUND HISTORY
========================= */

// StoreRoundHistory archives a settled round. Re-storing the same round is a no-op.
func StoreRoundHistory(ctx context.Context, record *RoundRecord) error {
	if PostgresPool == nil {
		log.Println("⚠️  PostgreSQL not initialized, skipping round history storage")
		return nil
	}

	query, args, err := insertRoundQuery(sq.Dollar, record)
	if err != nil {
		return fmt.Errorf("failed to build round history insert: %w", err)
	}

	if _, err := PostgresPool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to store round history: %w", err)
	}

	log.Printf("✅ Stored round history - Round: %d, Winner: %s, Payout: %d",
		record.RoundID, record.WinningSegmentID, record.Payout)
	return nil
}

// GetRoundHistory retrieves one archived round, nil when it does not exist
func GetRoundHistory(ctx context.Context, sessionID string, roundID uint64) (*RoundRecord, error) {
	if PostgresPool == nil {
		return nil, nil
	}

	query, args, err := selectRoundQuery(sq.Dollar, sessionID, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to build round history query: %w", err)
	}

	record, err := scanRound(PostgresPool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Round not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round history: %w", err)
	}
	return record, nil
}

// GetRecentRoundHistory retrieves the most recent archived rounds matching the filter
func GetRecentRoundHistory(ctx context.Context, filter RoundFilter) ([]*RoundRecord, error) {
	if PostgresPool == nil {
		return []*RoundRecord{}, nil
	}

	query, args, err := recentRoundsQuery(sq.Dollar, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build round history query: %w", err)
	}

	rows, err := PostgresPool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query round history: %w", err)
	}
	defer rows.Close()

	records := []*RoundRecord{}
	for rows.Next() {
		record, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

/* =========================
   AUDIT LOG
========================= */

// StoreAuditLog appends an entry to the audit trail
func StoreAuditLog(ctx context.Context, record *AuditRecord) error {
	if PostgresPool == nil {
		log.Println("⚠️  PostgreSQL not initialized, skipping audit log storage")
		return nil
	}

	query, args, err := insertAuditQuery(sq.Dollar, record)
	if err != nil {
		return fmt.Errorf("failed to build audit insert: %w", err)
	}

	if _, err := PostgresPool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to store audit log: %w", err)
	}
	return nil
}

// HealthCheckPostgres pings the pool
func HealthCheckPostgres(ctx context.Context) error {
	if PostgresPool == nil {
		return fmt.Errorf("postgres not initialized")
	}
	return PostgresPool.Ping(ctx)
}

/* =========================
   ARCHIVE ADAPTER
========================= */

// PostgresArchive exposes the global pool as a RoundArchive
type PostgresArchive struct{}

func (PostgresArchive) Name() string { return "postgres" }

func (PostgresArchive) StoreRound(ctx context.Context, record *RoundRecord) error {
	return StoreRoundHistory(ctx, record)
}

func (PostgresArchive) GetRound(ctx context.Context, sessionID string, roundID uint64) (*RoundRecord, error) {
	return GetRoundHistory(ctx, sessionID, roundID)
}

func (PostgresArchive) RecentRounds(ctx context.Context, filter RoundFilter) ([]*RoundRecord, error) {
	return GetRecentRoundHistory(ctx, filter)
}

func (PostgresArchive) StoreAudit(ctx context.Context, record *AuditRecord) error {
	return StoreAuditLog(ctx, record)
}

func (PostgresArchive) Health(ctx context.Context) error {
	return HealthCheckPostgres(ctx)
}
