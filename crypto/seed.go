package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateServerSeed returns a fresh 32-byte hex seed and its SHA-256 commitment
func GenerateServerSeed() (seed string, hash string) {
	bytes := make([]byte, 32)
	rand.Read(bytes)

	seed = hex.EncodeToString(bytes)
	hash = HashSeed(seed)
	return
}

// HashSeed is the commitment published before a round's seed is revealed
func HashSeed(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

func VerifySeed(seed, hash string) bool {
	return hash != "" && HashSeed(seed) == hash
}
