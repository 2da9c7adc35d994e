package game

import "fruitRouletteServer/crypto"

// VerifyOutcome recomputes the winning segment of a provably fair round.
// Given the same serverSeed, roundID and wheel it always returns the same segment.
func VerifyOutcome(serverSeed string, roundID uint64, segments []Segment) string {
	if len(segments) == 0 {
		return ""
	}
	rng := NewSeededRNG(roundSeed(serverSeed, roundID))
	return segments[drawIndex(rng, len(segments))].ID
}

// Verification is the result of checking an archived round
type Verification struct {
	SeedMatchesHash   bool   `json:"seedMatchesHash"`
	ExpectedSegmentID string `json:"expectedSegmentId"`
	RecordedSegmentID string `json:"recordedSegmentId"`
	Valid             bool   `json:"valid"`
}

// VerifyRound checks both the seed commitment and the recorded winner
func VerifyRound(serverSeed, serverSeedHash string, roundID uint64, segments []Segment, recordedSegmentID string) Verification {
	expected := VerifyOutcome(serverSeed, roundID, segments)
	seedOK := crypto.VerifySeed(serverSeed, serverSeedHash)

	return Verification{
		SeedMatchesHash:   seedOK,
		ExpectedSegmentID: expected,
		RecordedSegmentID: recordedSegmentID,
		Valid:             seedOK && expected == recordedSegmentID,
	}
}
