package config

import (
	"fmt"
	"os"

	"fruitRouletteServer/game"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SegmentConfig is one wheel segment as written in the wheel file.
// Multiplier is a string so "2.5" survives without float rounding.
type SegmentConfig struct {
	ID         string `yaml:"id"`
	Label      string `yaml:"label"`
	Emoji      string `yaml:"emoji,omitempty"`
	Multiplier string `yaml:"multiplier"`
}

// WheelConfig describes the wheel and the betting table around it
type WheelConfig struct {
	Segments         []SegmentConfig `yaml:"segments"`
	Chips            []int64         `yaml:"chips"`
	MaxBetPerSegment int64           `yaml:"max_bet_per_segment"`
}

// DefaultWheel is the built-in eight fruit wheel
func DefaultWheel() WheelConfig {
	segments := game.DefaultSegments()
	cfg := WheelConfig{
		Segments:         make([]SegmentConfig, 0, len(segments)),
		Chips:            append([]int64(nil), DefaultChipValues...),
		MaxBetPerSegment: DefaultMaxBetPerSegment,
	}
	for _, s := range segments {
		cfg.Segments = append(cfg.Segments, SegmentConfig{
			ID:         s.ID,
			Label:      s.Label,
			Emoji:      s.Emoji,
			Multiplier: s.Multiplier.String(),
		})
	}
	return cfg
}

// LoadWheel reads a wheel definition from a YAML file. Missing chips or
// limits fall back to the defaults.
func LoadWheel(path string) (WheelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WheelConfig{}, fmt.Errorf("failed to read wheel config: %w", err)
	}
	return ParseWheel(raw)
}

// ParseWheel decodes a YAML wheel definition
func ParseWheel(raw []byte) (WheelConfig, error) {
	var cfg WheelConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return WheelConfig{}, fmt.Errorf("failed to parse wheel config: %w", err)
	}
	if len(cfg.Chips) == 0 {
		cfg.Chips = append([]int64(nil), DefaultChipValues...)
	}
	if cfg.MaxBetPerSegment < 0 {
		return WheelConfig{}, fmt.Errorf("max_bet_per_segment must not be negative")
	}
	if _, err := cfg.Build(); err != nil {
		return WheelConfig{}, err
	}
	return cfg, nil
}

// Build converts the configuration into validated segments
func (w WheelConfig) Build() ([]game.Segment, error) {
	segments := make([]game.Segment, 0, len(w.Segments))
	for _, sc := range w.Segments {
		mult, err := decimal.NewFromString(sc.Multiplier)
		if err != nil {
			return nil, fmt.Errorf("segment %q: invalid multiplier %q: %w", sc.ID, sc.Multiplier, err)
		}
		label := sc.Label
		if label == "" {
			label = sc.ID
		}
		segments = append(segments, game.Segment{
			ID:         sc.ID,
			Label:      label,
			Emoji:      sc.Emoji,
			Multiplier: mult,
		})
	}
	if err := game.ValidateSegments(segments); err != nil {
		return nil, fmt.Errorf("invalid wheel: %w", err)
	}
	for _, chip := range w.Chips {
		if chip <= 0 {
			return nil, fmt.Errorf("invalid wheel: chip value %d must be positive", chip)
		}
	}
	return segments, nil
}
