package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"fruitRouletteServer/game"
	"fruitRouletteServer/state"
)

// GameSettings is everything main needs to build the engine and the server
type GameSettings struct {
	Engine   state.Settings
	Segments []game.Segment

	RNGSeed      string // empty = seeded from the clock
	ProvablyFair bool

	ServerAddr     string
	SQLitePath     string
	AdminJWTSecret string
}

// LoadGameSettings reads the environment (after godotenv has populated it)
// and the optional wheel file named by WHEEL_CONFIG.
func LoadGameSettings() (*GameSettings, error) {
	wheel := DefaultWheel()
	if path := os.Getenv("WHEEL_CONFIG"); path != "" {
		loaded, err := LoadWheel(path)
		if err != nil {
			return nil, err
		}
		wheel = loaded
		log.Printf("🎡 Wheel loaded from %s (%d segments)", path, len(wheel.Segments))
	}

	segments, err := wheel.Build()
	if err != nil {
		return nil, err
	}

	countdown, err := envInt("ROUND_COUNTDOWN_SECONDS", DefaultCountdownSeconds)
	if err != nil {
		return nil, err
	}
	balance, err := envInt("STARTING_BALANCE", DefaultStartingBalance)
	if err != nil {
		return nil, err
	}
	capacity, err := envInt("HISTORY_CAPACITY", DefaultHistoryCapacity)
	if err != nil {
		return nil, err
	}
	autoSpin, err := envBool("AUTO_SPIN_EMPTY", false)
	if err != nil {
		return nil, err
	}
	provablyFair, err := envBool("PROVABLY_FAIR", true)
	if err != nil {
		return nil, err
	}

	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = ServerHost + ":" + ServerPort
	}

	return &GameSettings{
		Engine: state.Settings{
			CountdownSeconds: countdown,
			AutoSpinEmpty:    autoSpin,
			StartingBalance:  int64(balance),
			HistoryCapacity:  capacity,
			ChipValues:       wheel.Chips,
			MaxBetPerSegment: wheel.MaxBetPerSegment,
		},
		Segments:       segments,
		RNGSeed:        os.Getenv("RNG_SEED"),
		ProvablyFair:   provablyFair,
		ServerAddr:     addr,
		SQLitePath:     os.Getenv("SQLITE_PATH"),
		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
	}, nil
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, raw)
	}
	return v, nil
}

func envBool(name string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return v, nil
}
