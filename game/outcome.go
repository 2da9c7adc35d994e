package game

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"fruitRouletteServer/crypto"
)

// Outcome is the result of one draw. Seed fields are only set by provably fair generators.
type Outcome struct {
	SegmentID      string `json:"segmentId"`
	ServerSeed     string `json:"serverSeed,omitempty"`
	ServerSeedHash string `json:"serverSeedHash,omitempty"`
}

// OutcomeGenerator picks the winning segment of a round.
// Every segment must be equally likely and the pick must not depend on the wagers.
type OutcomeGenerator interface {
	PickWinner(roundID uint64, segments []Segment) Outcome
}

// Committer is implemented by generators that publish a seed hash when a round opens
type Committer interface {
	Commit(roundID uint64) string
}

/* =========================
   SEEDED RANDOM
========================= */

// RandomGenerator draws from a math/rand source seeded through NewSeededRNG
type RandomGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomGenerator seeds from the given string, or from the clock when it is empty
func NewRandomGenerator(seed string) *RandomGenerator {
	if seed == "" {
		seed = strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return &RandomGenerator{rng: NewSeededRNG(seed)}
}

// Reseed restarts the sequence; the same seed replays the same winners
func (g *RandomGenerator) Reseed(seed string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng = NewSeededRNG(seed)
}

func (g *RandomGenerator) PickWinner(_ uint64, segments []Segment) Outcome {
	if len(segments) == 0 {
		return Outcome{}
	}

	g.mu.Lock()
	idx := drawIndex(g.rng, len(segments))
	g.mu.Unlock()

	return Outcome{SegmentID: segments[idx].ID}
}

/* =========================
   PROVABLY FAIR
========================= */

// ProvablyFairGenerator commits to a fresh server seed per round.
// The winner is derived from serverSeed-roundId, so anyone holding the revealed
// seed can recompute it with VerifyOutcome.
type ProvablyFairGenerator struct {
	mu      sync.Mutex
	roundID uint64
	seed    string
	hash    string
	pending bool
}

func NewProvablyFairGenerator() *ProvablyFairGenerator {
	return &ProvablyFairGenerator{}
}

// Commit generates the seed for roundID and returns its hash
func (g *ProvablyFairGenerator) Commit(roundID uint64) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seed, g.hash = crypto.GenerateServerSeed()
	g.roundID = roundID
	g.pending = true
	return g.hash
}

func (g *ProvablyFairGenerator) PickWinner(roundID uint64, segments []Segment) Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Round opened without a commitment (e.g. restored session): commit now
	if !g.pending || g.roundID != roundID {
		g.seed, g.hash = crypto.GenerateServerSeed()
		g.roundID = roundID
	}
	g.pending = false

	if len(segments) == 0 {
		return Outcome{ServerSeed: g.seed, ServerSeedHash: g.hash}
	}

	rng := NewSeededRNG(roundSeed(g.seed, roundID))
	idx := drawIndex(rng, len(segments))

	return Outcome{
		SegmentID:      segments[idx].ID,
		ServerSeed:     g.seed,
		ServerSeedHash: g.hash,
	}
}

/* =========================
   FIXED
========================= */

// FixedGenerator always lands on the same segment
type FixedGenerator struct {
	SegmentID string
}

func (g FixedGenerator) PickWinner(_ uint64, _ []Segment) Outcome {
	return Outcome{SegmentID: g.SegmentID}
}
