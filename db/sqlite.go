package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteArchive keeps the round archive in a local SQLite file when
// PostgreSQL is not configured.
type SQLiteArchive struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the archive at path. ":memory:" gives a
// throwaway archive.
func OpenSQLite(path string) (*SQLiteArchive, error) {
	dsn := path + "?_journal_mode=WAL"
	if path == ":memory:" {
		dsn = path
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// Each connection to :memory: is its own database
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a := &SQLiteArchive{db: conn}
	if err := a.createTables(); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("✅ SQLite archive ready - %s", path)
	return a, nil
}

func (a *SQLiteArchive) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS round_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			round_id INTEGER NOT NULL,
			winning_segment_id TEXT NOT NULL,
			multiplier TEXT NOT NULL,
			wagers TEXT NOT NULL,
			total_wagered INTEGER NOT NULL,
			payout INTEGER NOT NULL,
			balance_after INTEGER NOT NULL,
			server_seed TEXT NOT NULL DEFAULT '',
			server_seed_hash TEXT NOT NULL DEFAULT '',
			settled_at TIMESTAMP NOT NULL,
			segment_order TEXT NOT NULL DEFAULT '[]',
			UNIQUE(session_id, round_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_round_history_settled_at ON round_history(settled_at DESC)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			actor TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, table := range tables {
		if _, err := a.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create sqlite table: %w", err)
		}
	}

	// Files created before segment_order was recorded
	var hasOrder int
	if err := a.db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('round_history') WHERE name = 'segment_order'`,
	).Scan(&hasOrder); err != nil {
		return fmt.Errorf("failed to inspect round_history: %w", err)
	}
	if hasOrder == 0 {
		if _, err := a.db.Exec(`ALTER TABLE round_history ADD COLUMN segment_order TEXT NOT NULL DEFAULT '[]'`); err != nil {
			return fmt.Errorf("failed to add segment_order: %w", err)
		}
	}
	return nil
}

// Close releases the database handle
func (a *SQLiteArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *SQLiteArchive) Name() string { return "sqlite" }

func (a *SQLiteArchive) StoreRound(ctx context.Context, record *RoundRecord) error {
	query, args, err := insertRoundQuery(sq.Question, record)
	if err != nil {
		return fmt.Errorf("failed to build round history insert: %w", err)
	}
	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to store round history: %w", err)
	}
	return nil
}

func (a *SQLiteArchive) GetRound(ctx context.Context, sessionID string, roundID uint64) (*RoundRecord, error) {
	query, args, err := selectRoundQuery(sq.Question, sessionID, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to build round history query: %w", err)
	}

	record, err := scanRound(a.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round history: %w", err)
	}
	return record, nil
}

func (a *SQLiteArchive) RecentRounds(ctx context.Context, filter RoundFilter) ([]*RoundRecord, error) {
	query, args, err := recentRoundsQuery(sq.Question, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build round history query: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
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

func (a *SQLiteArchive) StoreAudit(ctx context.Context, record *AuditRecord) error {
	query, args, err := insertAuditQuery(sq.Question, record)
	if err != nil {
		return fmt.Errorf("failed to build audit insert: %w", err)
	}
	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to store audit log: %w", err)
	}
	return nil
}

// AuditCount returns the number of audit entries with the given action
func (a *SQLiteArchive) AuditCount(ctx context.Context, action string) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From(auditTable).Where(sq.Eq{"action": action}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := a.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit log: %w", err)
	}
	return n, nil
}

func (a *SQLiteArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}
