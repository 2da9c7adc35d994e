package game

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func twoFruitWheel() []Segment {
	return []Segment{
		{ID: "cherry", Label: "Cherry", Multiplier: decimal.NewFromInt(5)},
		{ID: "banana", Label: "Banana", Multiplier: decimal.NewFromInt(3)},
	}
}

func TestComputePayout(t *testing.T) {
	segments := twoFruitWheel()
	segments = append(segments, Segment{ID: "kiwi", Label: "Kiwi", Multiplier: decimal.RequireFromString("2.5")})

	tests := []struct {
		name   string
		wagers map[string]int64
		winner string
		want   int64
	}{
		{"winning stake", map[string]int64{"cherry": 100}, "cherry", 500},
		{"losing stake", map[string]int64{"banana": 100}, "cherry", 0},
		{"split stakes", map[string]int64{"cherry": 100, "banana": 50}, "banana", 150},
		{"no wagers", map[string]int64{}, "cherry", 0},
		{"nil wagers", nil, "banana", 0},
		{"unknown winner", map[string]int64{"cherry": 100}, "durian", 0},
		{"decimal multiplier truncates", map[string]int64{"kiwi": 11}, "kiwi", 27},
		{"huge stake caps", map[string]int64{"cherry": math.MaxInt64 / 2}, "cherry", math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputePayout(tt.wagers, tt.winner, segments); got != tt.want {
				t.Errorf("ComputePayout() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReturnToPlayer(t *testing.T) {
	segments := twoFruitWheel()

	got := ReturnToPlayer(segments, "cherry")
	if !got.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("ReturnToPlayer(cherry) = %s, want 2.5", got)
	}

	if got := ReturnToPlayer(segments, "durian"); !got.IsZero() {
		t.Errorf("ReturnToPlayer(durian) = %s, want 0", got)
	}
}

func TestValidateSegments(t *testing.T) {
	if err := ValidateSegments(DefaultSegments()); err != nil {
		t.Fatalf("default wheel invalid: %v", err)
	}

	tests := []struct {
		name     string
		segments []Segment
	}{
		{"empty", nil},
		{"empty id", []Segment{{ID: "", Multiplier: decimal.NewFromInt(2)}}},
		{"duplicate id", []Segment{
			{ID: "cherry", Multiplier: decimal.NewFromInt(2)},
			{ID: "cherry", Multiplier: decimal.NewFromInt(3)},
		}},
		{"zero multiplier", []Segment{{ID: "cherry", Multiplier: decimal.Zero}}},
		{"negative multiplier", []Segment{{ID: "cherry", Multiplier: decimal.NewFromInt(-1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateSegments(tt.segments); err == nil {
				t.Error("ValidateSegments() = nil, want error")
			}
		})
	}
}
