package combatmath

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the balance knobs of the combat formulas.
type Tuning struct {
	Level           int      `yaml:"level"`
	AttackPower     float64  `yaml:"attack_power"`
	SpecialPower    float64  `yaml:"special_power"`
	SpecialAccuracy float64  `yaml:"special_accuracy"`
	HealFraction    float64  `yaml:"heal_fraction"`
	VarianceMin     float64  `yaml:"variance_min"`
	AI              AITuning `yaml:"ai"`
}

// AITuning drives the computer's action choice.
type AITuning struct {
	// LowHP is the hp fraction under which the computer considers healing.
	LowHP      float64 `yaml:"low_hp"`
	HealChance float64 `yaml:"heal_chance"`

	AttackWeight  float64 `yaml:"attack_weight"`
	SpecialWeight float64 `yaml:"special_weight"`
	DefendWeight  float64 `yaml:"defend_weight"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Level:           50,
		AttackPower:     40,
		SpecialPower:    80,
		SpecialAccuracy: 0.8,
		HealFraction:    0.3,
		VarianceMin:     0.85,
		AI: AITuning{
			LowHP:         0.3,
			HealChance:    0.7,
			AttackWeight:  0.6,
			SpecialWeight: 0.25,
			DefendWeight:  0.15,
		},
	}
}

// LoadTuning reads a YAML file on top of DefaultTuning. An empty path
// returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(b, &t); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("tuning %s: %w", path, err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.Level <= 0 {
		errs = append(errs, errors.New("level must be positive"))
	}
	if t.AttackPower <= 0 || t.SpecialPower <= 0 {
		errs = append(errs, errors.New("powers must be positive"))
	}
	if t.SpecialAccuracy < 0 || t.SpecialAccuracy > 1 {
		errs = append(errs, errors.New("special_accuracy must be within [0,1]"))
	}
	if t.HealFraction <= 0 || t.HealFraction > 1 {
		errs = append(errs, errors.New("heal_fraction must be within (0,1]"))
	}
	if t.VarianceMin <= 0 || t.VarianceMin > 1 {
		errs = append(errs, errors.New("variance_min must be within (0,1]"))
	}
	if t.AI.AttackWeight < 0 || t.AI.SpecialWeight < 0 || t.AI.DefendWeight < 0 ||
		t.AI.AttackWeight+t.AI.SpecialWeight+t.AI.DefendWeight == 0 {
		errs = append(errs, errors.New("ai weights must be non-negative and not all zero"))
	}
	return errors.Join(errs...)
}
