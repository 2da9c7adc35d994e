package game

import (
	"math"

	"github.com/shopspring/decimal"
)

var maxPayout = decimal.NewFromInt(math.MaxInt64)

// ComputePayout returns the amount credited for a settled round:
// the stake on the winning segment times its multiplier, truncated to whole units
// and capped at math.MaxInt64. Returns 0 when nothing was wagered on the winner or the winner is not on the wheel.
func ComputePayout(wagers map[string]int64, winningSegmentID string, segments []Segment) int64 {
	stake, ok := wagers[winningSegmentID]
	if !ok || stake <= 0 {
		return 0
	}

	segment, ok := FindSegment(segments, winningSegmentID)
	if !ok {
		return 0
	}

	payout := decimal.NewFromInt(stake).Mul(segment.Multiplier)
	if payout.GreaterThan(maxPayout) {
		return math.MaxInt64
	}
	return payout.IntPart()
}

// ReturnToPlayer is the expected return of a unit stake on one segment
// under a uniform wheel (multiplier / segment count).
func ReturnToPlayer(segments []Segment, segmentID string) decimal.Decimal {
	segment, ok := FindSegment(segments, segmentID)
	if !ok || len(segments) == 0 {
		return decimal.Zero
	}
	return segment.Multiplier.Div(decimal.NewFromInt(int64(len(segments))))
}
