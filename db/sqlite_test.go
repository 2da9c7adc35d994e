package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	a, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func testRecord(roundID uint64, winner string, payout int64, settledAt time.Time) *RoundRecord {
	return &RoundRecord{
		SessionID:        "session-1",
		RoundID:          roundID,
		WinningSegmentID: winner,
		Multiplier:       decimal.RequireFromString("2.5"),
		Wagers:           map[string]int64{"cherry": 100, "banana": 50},
		TotalWagered:     150,
		Payout:           payout,
		BalanceAfter:     1000 + payout,
		ServerSeed:       "seed",
		ServerSeedHash:   "hash",
		SettledAt:        settledAt,
		SegmentOrder:     []string{"cherry", "banana"},
	}
}

func TestSQLiteArchiveRoundTrip(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec := testRecord(1, "cherry", 250, base)
	if err := a.StoreRound(ctx, rec); err != nil {
		t.Fatalf("StoreRound failed: %v", err)
	}

	// Storing the same round again is a no-op
	dup := testRecord(1, "banana", 0, base)
	if err := a.StoreRound(ctx, dup); err != nil {
		t.Fatalf("duplicate StoreRound failed: %v", err)
	}

	got, err := a.GetRound(ctx, "session-1", 1)
	if err != nil {
		t.Fatalf("GetRound failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected record, got nil")
	}
	if got.WinningSegmentID != "cherry" || got.Payout != 250 {
		t.Errorf("Duplicate overwrote the archive: %+v", got)
	}
	if !got.Multiplier.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Expected multiplier 2.5, got %s", got.Multiplier)
	}
	if got.Wagers["cherry"] != 100 || got.Wagers["banana"] != 50 {
		t.Errorf("Unexpected wagers: %v", got.Wagers)
	}
	if len(got.SegmentOrder) != 2 || got.SegmentOrder[0] != "cherry" || got.SegmentOrder[1] != "banana" {
		t.Errorf("Unexpected segment order: %v", got.SegmentOrder)
	}
	if !got.SettledAt.Equal(base) {
		t.Errorf("Expected settledAt %v, got %v", base, got.SettledAt)
	}

	missing, err := a.GetRound(ctx, "session-1", 99)
	if err != nil {
		t.Fatalf("GetRound for missing round failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing round, got %+v", missing)
	}
}

func TestSQLiteArchiveRecentRounds(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	winners := []string{"cherry", "banana", "cherry", "grape", "cherry"}
	for i, w := range winners {
		payout := int64(0)
		if w == "cherry" {
			payout = 500
		}
		if err := a.StoreRound(ctx, testRecord(uint64(i+1), w, payout, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("StoreRound failed: %v", err)
		}
	}

	t.Run("NewestFirst", func(t *testing.T) {
		records, err := a.RecentRounds(ctx, RoundFilter{Limit: 3})
		if err != nil {
			t.Fatalf("RecentRounds failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("Expected 3 records, got %d", len(records))
		}
		if records[0].RoundID != 5 || records[2].RoundID != 3 {
			t.Errorf("Expected rounds 5..3, got %d..%d", records[0].RoundID, records[2].RoundID)
		}
	})

	t.Run("SegmentFilter", func(t *testing.T) {
		records, err := a.RecentRounds(ctx, RoundFilter{SegmentID: "cherry"})
		if err != nil {
			t.Fatalf("RecentRounds failed: %v", err)
		}
		if len(records) != 3 {
			t.Errorf("Expected 3 cherry rounds, got %d", len(records))
		}
	})

	t.Run("WinsOnly", func(t *testing.T) {
		records, err := a.RecentRounds(ctx, RoundFilter{WinsOnly: true, SessionID: "session-1"})
		if err != nil {
			t.Fatalf("RecentRounds failed: %v", err)
		}
		for _, r := range records {
			if r.Payout <= 0 {
				t.Errorf("Round %d has no payout", r.RoundID)
			}
		}
		if len(records) != 3 {
			t.Errorf("Expected 3 winning rounds, got %d", len(records))
		}
	})

	t.Run("OtherSession", func(t *testing.T) {
		records, err := a.RecentRounds(ctx, RoundFilter{SessionID: "nobody"})
		if err != nil {
			t.Fatalf("RecentRounds failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("Expected no records, got %d", len(records))
		}
	})
}

func TestSQLiteArchiveAudit(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := a.StoreAudit(ctx, &AuditRecord{Action: AuditSetMultiplier, Actor: "admin", Details: "cherry=7"}); err != nil {
			t.Fatalf("StoreAudit failed: %v", err)
		}
	}

	n, err := a.AuditCount(ctx, AuditSetMultiplier)
	if err != nil {
		t.Fatalf("AuditCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 audit entries, got %d", n)
	}

	if err := a.Health(ctx); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestSQLiteArchiveAddsSegmentOrderColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	_, err = legacy.Exec(`CREATE TABLE round_history (
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
		UNIQUE(session_id, round_id)
	)`)
	if err != nil {
		t.Fatalf("Failed to create legacy table: %v", err)
	}
	_, err = legacy.Exec(`INSERT INTO round_history
		(session_id, round_id, winning_segment_id, multiplier, wagers, total_wagered, payout, balance_after, settled_at)
		VALUES ('session-1', 1, 'cherry', '5', '{"cherry":10}', 10, 50, 1040, ?)`, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to insert legacy row: %v", err)
	}
	legacy.Close()

	a, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite on legacy file failed: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	old, err := a.GetRound(ctx, "session-1", 1)
	if err != nil || old == nil {
		t.Fatalf("GetRound(legacy) = %v, %v", old, err)
	}
	if len(old.SegmentOrder) != 0 {
		t.Errorf("Legacy round should have no segment order, got %v", old.SegmentOrder)
	}

	if err := a.StoreRound(ctx, testRecord(2, "banana", 0, time.Now().UTC())); err != nil {
		t.Fatalf("StoreRound after migration failed: %v", err)
	}
	got, err := a.GetRound(ctx, "session-1", 2)
	if err != nil || got == nil || len(got.SegmentOrder) != 2 {
		t.Errorf("GetRound after migration = %+v, %v", got, err)
	}
}
