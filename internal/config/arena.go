package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"limbopet-arena/internal/arena/sim"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type ArenaConfig struct {
	MatchesPerDay     int           `env:"ARENA_MATCHES_PER_DAY" envDefault:"10"`
	LiveWindowSeconds int           `env:"ARENA_LIVE_WINDOW_SECONDS" envDefault:"30"`
	EloK              int           `env:"ARENA_ELO_K" envDefault:"24"`
	RematchFee        int64         `env:"ARENA_REMATCH_FEE" envDefault:"5"`
	Rounds            int           `env:"ARENA_ROUNDS" envDefault:"3"`
	PollerEnabled     bool          `env:"ARENA_POLLER_ENABLED" envDefault:"true"`
	TickInterval      time.Duration `env:"ARENA_TICK_INTERVAL" envDefault:"15s"`
	ModesPath         string        `env:"ARENA_MODES_PATH"`

	// ModeWeights is filled from ModesPath, or the built-in defaults.
	ModeWeights map[sim.Mode]float64
}

func LoadArena() (ArenaConfig, error) {
	var cfg ArenaConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	weights, err := LoadModeWeights(cfg.ModesPath)
	if err != nil {
		return cfg, err
	}
	cfg.ModeWeights = weights
	return cfg, nil
}

// Normalize clamps values into their supported ranges.
func (c *ArenaConfig) Normalize() {
	c.MatchesPerDay = clampInt(c.MatchesPerDay, 0, 200)
	if c.LiveWindowSeconds == 0 {
		c.LiveWindowSeconds = 30
	}
	c.LiveWindowSeconds = clampInt(c.LiveWindowSeconds, 10, 180)
	if c.EloK == 0 {
		c.EloK = 24
	}
	c.EloK = clampInt(c.EloK, 8, 64)
	if c.RematchFee < 0 {
		c.RematchFee = 0
	}
	if c.Rounds == 0 {
		c.Rounds = 3
	}
	c.Rounds = clampInt(c.Rounds, 1, sim.MaxRounds)
	if c.TickInterval <= 0 {
		c.TickInterval = 15 * time.Second
	}
}

func (c ArenaConfig) LiveWindow() time.Duration {
	return time.Duration(c.LiveWindowSeconds) * time.Second
}

type modesFile struct {
	Modes map[string]float64 `yaml:"modes"`
}

// LoadModeWeights reads mode weights from a YAML file:
//
//	modes:
//	  DEBATE_CLASH: 2
//	  MATH_RACE: 0
//
// Modes absent from the file keep their default weight.
func LoadModeWeights(path string) (map[sim.Mode]float64, error) {
	out := make(map[sim.Mode]float64, len(sim.DefaultModeWeights))
	for m, w := range sim.DefaultModeWeights {
		out[m] = w
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arena modes %q: %w", path, err)
	}
	var f modesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse arena modes %q: %w", path, err)
	}
	for name, w := range f.Modes {
		m, ok := sim.ParseMode(name)
		if !ok {
			return nil, fmt.Errorf("arena modes %q: unknown mode %q", path, name)
		}
		if w < 0 {
			w = 0
		}
		out[m] = w
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
