package state

import "math"

// WagerLedger maps segment id -> staked amount. Only non-zero stakes are stored.
type WagerLedger map[string]int64

// Total is the sum of all stakes
func (w WagerLedger) Total() int64 {
	var total int64
	for _, amount := range w {
		total += amount
	}
	return total
}

// Copy returns an independent map, never nil
func (w WagerLedger) Copy() map[string]int64 {
	out := make(map[string]int64, len(w))
	for id, amount := range w {
		out[id] = amount
	}
	return out
}

func (w WagerLedger) add(segmentID string, amount int64) {
	w[segmentID] += amount
}

// reduce lowers a stake by at most its current value and returns the amount removed
func (w WagerLedger) reduce(segmentID string, amount int64) int64 {
	current := w[segmentID]
	removed := amount
	if removed >= current {
		removed = current
		delete(w, segmentID)
	} else {
		w[segmentID] = current - removed
	}
	return removed
}

// addCapped adds two non-negative amounts, saturating at math.MaxInt64
func addCapped(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
