package game

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"strconv"
)

// NewSeededRNG creates a deterministic RNG from a seed string
func NewSeededRNG(seed string) *rand.Rand {
	hash := sha256.Sum256([]byte(seed))
	seedInt := int64(binary.BigEndian.Uint64(hash[:8]))
	return rand.New(rand.NewSource(seedInt))
}

// roundSeed is the RNG input for a round: serverSeed-roundId.
// Drawing and verification must build it the same way.
func roundSeed(serverSeed string, roundID uint64) string {
	return serverSeed + "-" + strconv.FormatUint(roundID, 10)
}

// drawIndex picks a wheel position with equal weight for every segment
func drawIndex(rng *rand.Rand, segmentCount int) int {
	return rng.Intn(segmentCount)
}
