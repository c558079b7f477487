package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSettings is returned when a Settings value cannot drive a game.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds the tunable constants of a reaction game.
type Settings struct {
	TotalRounds   int           `yaml:"total_rounds" json:"total_rounds" env:"REFLEX_TOTAL_ROUNDS"`
	CueDelayMin   time.Duration `yaml:"cue_delay_min" json:"cue_delay_min" env:"REFLEX_CUE_DELAY_MIN"`
	CueDelayMax   time.Duration `yaml:"cue_delay_max" json:"cue_delay_max" env:"REFLEX_CUE_DELAY_MAX"`
	EarlyPenalty  int           `yaml:"early_penalty" json:"early_penalty" env:"REFLEX_EARLY_PENALTY"`
	Threshold     time.Duration `yaml:"threshold" json:"threshold" env:"REFLEX_THRESHOLD"`
	BaseBonus     int           `yaml:"base_bonus" json:"base_bonus" env:"REFLEX_BASE_BONUS"`
	EarlyCooldown time.Duration `yaml:"early_cooldown" json:"early_cooldown" env:"REFLEX_EARLY_COOLDOWN"`
	ValidCooldown time.Duration `yaml:"valid_cooldown" json:"valid_cooldown" env:"REFLEX_VALID_COOLDOWN"`
}

// Default returns the settings of the classic eight round game.
func Default() Settings {
	return Settings{
		TotalRounds:   8,
		CueDelayMin:   1100 * time.Millisecond,
		CueDelayMax:   2300 * time.Millisecond,
		EarlyPenalty:  40,
		Threshold:     500 * time.Millisecond,
		BaseBonus:     100,
		EarlyCooldown: 950 * time.Millisecond,
		ValidCooldown: 850 * time.Millisecond,
	}
}

// Validate reports whether s can drive a game.
func (s Settings) Validate() error {
	switch {
	case s.TotalRounds < 1:
		return fmt.Errorf("%w: total_rounds must be positive, got %d", ErrInvalidSettings, s.TotalRounds)
	case s.CueDelayMin < 0:
		return fmt.Errorf("%w: cue_delay_min must not be negative", ErrInvalidSettings)
	case s.CueDelayMax < s.CueDelayMin:
		return fmt.Errorf("%w: cue_delay_max %s is below cue_delay_min %s", ErrInvalidSettings, s.CueDelayMax, s.CueDelayMin)
	case s.Threshold < 0:
		return fmt.Errorf("%w: threshold must not be negative", ErrInvalidSettings)
	case s.EarlyPenalty < 0:
		return fmt.Errorf("%w: early_penalty must not be negative", ErrInvalidSettings)
	case s.EarlyCooldown < 0 || s.ValidCooldown < 0:
		return fmt.Errorf("%w: cooldowns must not be negative", ErrInvalidSettings)
	}
	return nil
}

// Load builds Settings from the defaults, then the YAML file at path (if
// path is non-empty), then REFLEX_* environment variables.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
		}
	}

	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
