package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultWheel(t *testing.T) {
	segments, err := DefaultWheel().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(segments) != 8 {
		t.Fatalf("Expected 8 segments, got %d", len(segments))
	}
	if !segments[0].Multiplier.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected cherry multiplier 5, got %s", segments[0].Multiplier)
	}
}

func TestParseWheel(t *testing.T) {
	t.Run("DecimalMultiplier", func(t *testing.T) {
		raw := []byte(`
segments:
  - { id: kiwi, label: Kiwi, multiplier: "2.5" }
  - { id: plum, multiplier: "7" }
chips: [5, 25]
max_bet_per_segment: 1000
`)
		cfg, err := ParseWheel(raw)
		if err != nil {
			t.Fatalf("ParseWheel failed: %v", err)
		}
		segments, err := cfg.Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if !segments[0].Multiplier.Equal(decimal.RequireFromString("2.5")) {
			t.Errorf("Expected 2.5, got %s", segments[0].Multiplier)
		}
		if segments[1].Label != "plum" {
			t.Errorf("Expected label to default to id, got %q", segments[1].Label)
		}
		if len(cfg.Chips) != 2 || cfg.MaxBetPerSegment != 1000 {
			t.Errorf("Unexpected table config: %+v", cfg)
		}
	})

	t.Run("ChipsDefault", func(t *testing.T) {
		cfg, err := ParseWheel([]byte("segments:\n  - { id: a, multiplier: \"2\" }\n"))
		if err != nil {
			t.Fatalf("ParseWheel failed: %v", err)
		}
		if len(cfg.Chips) != len(DefaultChipValues) {
			t.Errorf("Expected default chips, got %v", cfg.Chips)
		}
	})

	tests := []struct {
		name string
		raw  string
	}{
		{"Empty", "segments: []\n"},
		{"DuplicateID", "segments:\n  - { id: a, multiplier: \"2\" }\n  - { id: a, multiplier: \"3\" }\n"},
		{"BadMultiplier", "segments:\n  - { id: a, multiplier: \"two\" }\n"},
		{"ZeroMultiplier", "segments:\n  - { id: a, multiplier: \"0\" }\n"},
		{"NegativeChip", "segments:\n  - { id: a, multiplier: \"2\" }\nchips: [-5]\n"},
		{"NotYAML", "segments: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseWheel([]byte(tt.raw)); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestLoadWheelFile(t *testing.T) {
	cfg, err := LoadWheel("wheel.yaml")
	if err != nil {
		t.Fatalf("LoadWheel failed: %v", err)
	}
	if len(cfg.Segments) != 8 {
		t.Errorf("Expected 8 segments, got %d", len(cfg.Segments))
	}

	if _, err := LoadWheel(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadGameSettings(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		for _, name := range []string{"WHEEL_CONFIG", "ROUND_COUNTDOWN_SECONDS", "AUTO_SPIN_EMPTY",
			"STARTING_BALANCE", "HISTORY_CAPACITY", "PROVABLY_FAIR", "SERVER_ADDR"} {
			t.Setenv(name, "")
		}
		s, err := LoadGameSettings()
		if err != nil {
			t.Fatalf("LoadGameSettings failed: %v", err)
		}
		if s.Engine.CountdownSeconds != DefaultCountdownSeconds {
			t.Errorf("Expected countdown %d, got %d", DefaultCountdownSeconds, s.Engine.CountdownSeconds)
		}
		if s.Engine.StartingBalance != DefaultStartingBalance {
			t.Errorf("Expected balance %d, got %d", DefaultStartingBalance, s.Engine.StartingBalance)
		}
		if !s.ProvablyFair || s.Engine.AutoSpinEmpty {
			t.Errorf("Unexpected flags: provablyFair=%v autoSpin=%v", s.ProvablyFair, s.Engine.AutoSpinEmpty)
		}
		if s.ServerAddr != "0.0.0.0:8080" {
			t.Errorf("Expected default addr, got %s", s.ServerAddr)
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wheel.yaml")
		if err := os.WriteFile(path, []byte("segments:\n  - { id: a, multiplier: \"2\" }\n  - { id: b, multiplier: \"3\" }\nchips: [1, 2]\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("WHEEL_CONFIG", path)
		t.Setenv("ROUND_COUNTDOWN_SECONDS", "5")
		t.Setenv("AUTO_SPIN_EMPTY", "true")
		t.Setenv("STARTING_BALANCE", "250")
		t.Setenv("PROVABLY_FAIR", "false")

		s, err := LoadGameSettings()
		if err != nil {
			t.Fatalf("LoadGameSettings failed: %v", err)
		}
		if len(s.Segments) != 2 || s.Engine.CountdownSeconds != 5 || !s.Engine.AutoSpinEmpty ||
			s.Engine.StartingBalance != 250 || s.ProvablyFair {
			t.Errorf("Overrides not applied: %+v", s)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Setenv("WHEEL_CONFIG", "")
		t.Setenv("ROUND_COUNTDOWN_SECONDS", "soon")
		if _, err := LoadGameSettings(); err == nil {
			t.Error("Expected error for non-numeric countdown")
		}
		t.Setenv("ROUND_COUNTDOWN_SECONDS", "-3")
		if _, err := LoadGameSettings(); err == nil {
			t.Error("Expected error for negative countdown")
		}
	})
}
