package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"fruitRouletteServer/config"
	"fruitRouletteServer/db"
	"fruitRouletteServer/game"

	"github.com/joho/godotenv"
)

// Re-checks archived provably fair rounds against their revealed seeds
func main() {
	session := flag.String("session", "", "session id (defaults to every session)")
	limit := flag.Int("limit", config.DefaultArchiveLimit, "rounds to check")
	flag.Parse()

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found")
	}

	if os.Getenv("DATABASE_URL") == "" {
		log.Fatal("DATABASE_URL not set")
	}

	if err := db.InitPostgres(); err != nil {
		log.Fatalf("Failed to init postgres: %v", err)
	}
	defer db.ClosePostgres()

	wheel := config.DefaultWheel()
	if path := os.Getenv("WHEEL_CONFIG"); path != "" {
		loaded, err := config.LoadWheel(path)
		if err != nil {
			log.Fatalf("Failed to load wheel: %v", err)
		}
		wheel = loaded
	}
	segments, err := wheel.Build()
	if err != nil {
		log.Fatalf("Invalid wheel: %v", err)
	}

	ctx := context.Background()
	records, err := db.GetRecentRoundHistory(ctx, db.RoundFilter{SessionID: *session, Limit: *limit})
	if err != nil {
		log.Fatalf("Failed to load rounds: %v", err)
	}

	fmt.Printf("Verifying %d rounds...\n\n", len(records))

	var valid, invalid, skipped int
	for _, r := range records {
		if r.ServerSeed == "" {
			skipped++
			continue
		}
		v := game.VerifyRound(r.ServerSeed, r.ServerSeedHash, r.RoundID, r.Wheel(segments), r.WinningSegmentID)
		if v.Valid {
			valid++
			continue
		}
		invalid++
		fmt.Printf("  ❌ %s #%d recorded %s, seed says %s (hash ok: %t)\n",
			r.SessionID, r.RoundID, v.RecordedSegmentID, v.ExpectedSegmentID, v.SeedMatchesHash)
	}

	fmt.Printf("\n✅ %d valid | ❌ %d invalid | ⏭️  %d without seed\n", valid, invalid, skipped)
	if invalid > 0 {
		os.Exit(1)
	}
}
