package state

import "time"

// ==============================================================================
// SESSION
// ==============================================================================

type Session struct {
	ID           string
	Balance      int64
	SelectedChip int64
	History      *History
}

// HistoryEntry is one settled round as shown in the results list
type HistoryEntry struct {
	RoundID          uint64    `json:"roundId"`
	WinningSegmentID string    `json:"winningSegmentId"`
	TotalWagered     int64     `json:"totalWagered"`
	TotalPayout      int64     `json:"totalPayout"`
	Timestamp        time.Time `json:"timestamp"`
	IsWin            bool      `json:"isWin"`
}

// History keeps the most recent settled rounds, oldest evicted first
type History struct {
	capacity int
	entries  []HistoryEntry
}

func NewHistory(capacity int) *History {
	return &History{
		capacity: capacity,
		entries:  make([]HistoryEntry, 0, capacity),
	}
}

func (h *History) Add(entry HistoryEntry) {
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

// Entries returns a copy, oldest first
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
