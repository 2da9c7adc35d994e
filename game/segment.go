package game

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Segment is one betting target on the wheel
type Segment struct {
	ID         string          `json:"id"`
	Label      string          `json:"label"`
	Emoji      string          `json:"emoji,omitempty"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// DefaultSegments returns the eight-fruit wheel
func DefaultSegments() []Segment {
	return []Segment{
		{ID: "cherry", Label: "Lucky Cherry", Emoji: "🍒", Multiplier: decimal.NewFromInt(5)},
		{ID: "banana", Label: "Golden Banana", Emoji: "🍌", Multiplier: decimal.NewFromInt(3)},
		{ID: "grape", Label: "Royal Grape", Emoji: "🍇", Multiplier: decimal.NewFromInt(8)},
		{ID: "melon", Label: "Jackpot Melon", Emoji: "🍉", Multiplier: decimal.NewFromInt(12)},
		{ID: "orange", Label: "Casino Orange", Emoji: "🍊", Multiplier: decimal.NewFromInt(6)},
		{ID: "apple", Label: "Diamond Apple", Emoji: "🍎", Multiplier: decimal.NewFromInt(4)},
		{ID: "lemon", Label: "Gold Rush Lemon", Emoji: "🍋", Multiplier: decimal.NewFromInt(10)},
		{ID: "strawberry", Label: "MEGA Strawberry", Emoji: "🍓", Multiplier: decimal.NewFromInt(15)},
	}
}

// FindSegment looks a segment up by id
func FindSegment(segments []Segment, id string) (Segment, bool) {
	for _, s := range segments {
		if s.ID == id {
			return s, true
		}
	}
	return Segment{}, false
}

// CloneSegments returns a copy that can be handed out without sharing the backing array
func CloneSegments(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	return out
}

// ValidateSegments checks a wheel configuration: at least one segment,
// unique non-empty ids and strictly positive multipliers.
func ValidateSegments(segments []Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("wheel has no segments")
	}

	seen := make(map[string]bool, len(segments))
	for i, s := range segments {
		if s.ID == "" {
			return fmt.Errorf("segment %d has an empty id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate segment id %q", s.ID)
		}
		seen[s.ID] = true

		if !s.Multiplier.IsPositive() {
			return fmt.Errorf("segment %q has non-positive multiplier %s", s.ID, s.Multiplier)
		}
	}
	return nil
}
