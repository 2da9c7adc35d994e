package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"strconv"

	"fruitRouletteServer/config"
	"fruitRouletteServer/crypto"
	"fruitRouletteServer/game"

	"github.com/shopspring/decimal"
)

// Spins the wheel many times and reports how far each segment strays from a uniform draw
func main() {
	batches := flag.Int("batches", 5, "number of batches")
	spins := flag.Int("spins", 10000, "spins per batch")
	wheelPath := flag.String("wheel", "", "wheel YAML (defaults to the built-in wheel)")
	seed := flag.String("seed", "", "replay a seeded run instead of provably fair draws")
	flag.Parse()

	wheel := config.DefaultWheel()
	if *wheelPath != "" {
		loaded, err := config.LoadWheel(*wheelPath)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		wheel = loaded
	}
	segments, err := wheel.Build()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	fmt.Printf("Running %d batches of %d spins over %d segments...\n\n", *batches, *spins, len(segments))

	expected := float64(*spins) / float64(len(segments))
	for batch := 1; batch <= *batches; batch++ {
		counts := make(map[string]int, len(segments))

		if *seed != "" {
			gen := game.NewRandomGenerator(*seed + ":" + strconv.Itoa(batch))
			for i := 0; i < *spins; i++ {
				counts[gen.PickWinner(uint64(i+1), segments).SegmentID]++
			}
		} else {
			serverSeed, _ := crypto.GenerateServerSeed()
			for i := 0; i < *spins; i++ {
				counts[game.VerifyOutcome(serverSeed, uint64(i+1), segments)]++
			}
		}

		var chiSquare, maxDeviation float64
		for _, s := range segments {
			diff := float64(counts[s.ID]) - expected
			chiSquare += diff * diff / expected
			if d := math.Abs(diff) / expected; d > maxDeviation {
				maxDeviation = d
			}
		}

		fmt.Printf("Batch %d: chi² %.2f (df %d) | max deviation %.2f%%\n",
			batch, chiSquare, len(segments)-1, maxDeviation*100)
		for _, s := range segments {
			fmt.Printf("   %s %-12s %6d\n", s.Emoji, s.ID, counts[s.ID])
		}
	}

	fmt.Println("\nReturn to player (uniform wheel, full stake on one segment):")
	for _, s := range segments {
		rtp := game.ReturnToPlayer(segments, s.ID).Mul(decimal.NewFromInt(100))
		fmt.Printf("   %s %-12s x%s -> %s%%\n", s.Emoji, s.ID, s.Multiplier, rtp.StringFixed(2))
	}
}
