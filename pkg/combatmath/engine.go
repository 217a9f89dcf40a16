// Package combatmath resolves battle actions and picks the computer's move.
// Engine satisfies battle.CombatService, so the arena can run against it
// in-process as well as behind the HTTP endpoints.
package combatmath

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"pokebattle/pkg/battle"
)

type Engine struct {
	tuning Tuning

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an engine drawing from rng. A nil rng is seeded with 1.
func New(t Tuning, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = NewRand(0)
	}
	return &Engine{tuning: t, rng: rng}
}

// NewRand returns a seeded source; seed 0 is mapped to 1.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

func (e *Engine) Tuning() Tuning { return e.tuning }

func (e *Engine) float() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// Simulate applies action by attacker against defender. For heal and defend
// NewHP is the attacker's hp; otherwise it is the defender's.
func (e *Engine) Simulate(_ context.Context, action battle.Action, attacker, defender battle.Combatant) (battle.Resolution, error) {
	switch action {
	case battle.ActionAttack:
		dmg := e.Damage(e.tuning.AttackPower, attacker, defender)
		return e.hit(defender, dmg, fmt.Sprintf("%s attacks %s for %d damage!", attacker.Name, defender.Name, dmg)), nil

	case battle.ActionSpecial:
		if e.float() >= e.tuning.SpecialAccuracy {
			return battle.Resolution{
				NewHP:     defender.CurrentHP,
				BattleLog: fmt.Sprintf("%s's special attack missed!", attacker.Name),
				IsFainted: defender.CurrentHP <= 0,
			}, nil
		}
		dmg := e.Damage(e.tuning.SpecialPower, attacker, defender)
		return e.hit(defender, dmg, fmt.Sprintf("%s unleashes a special attack on %s for %d damage!", attacker.Name, defender.Name, dmg)), nil

	case battle.ActionHeal:
		amount := int(math.Round(float64(attacker.MaxHP) * e.tuning.HealFraction))
		hp := min(attacker.MaxHP, attacker.CurrentHP+amount)
		return battle.Resolution{
			NewHP:     hp,
			BattleLog: fmt.Sprintf("%s heals %d HP!", attacker.Name, hp-attacker.CurrentHP),
		}, nil

	case battle.ActionDefend:
		return battle.Resolution{
			NewHP:     attacker.CurrentHP,
			BattleLog: fmt.Sprintf("%s braces for the next attack!", attacker.Name),
		}, nil
	}
	return battle.Resolution{}, fmt.Errorf("%w: %q", battle.ErrUnknownAction, action)
}

func (e *Engine) hit(defender battle.Combatant, dmg int, msg string) battle.Resolution {
	hp := max(0, defender.CurrentHP-dmg)
	res := battle.Resolution{NewHP: hp, BattleLog: msg, Damage: dmg, IsFainted: hp == 0}
	if res.IsFainted {
		res.BattleLog += fmt.Sprintf(" %s fainted!", defender.Name)
	}
	return res
}

// Damage is ((2*level/5+2) * power * A/D)/50 + 2 scaled by a random
// variance in [VarianceMin, 1], never below 1.
func (e *Engine) Damage(power float64, attacker, defender battle.Combatant) int {
	a := float64(max(1, attacker.Stats.Attack)) * multiplier(attacker.AttackMultiplier)
	d := float64(max(1, defender.Stats.Defense)) * multiplier(defender.DefenseMultiplier)
	base := (float64(2*e.tuning.Level/5+2)*power*a/d)/50 + 2

	variance := e.tuning.VarianceMin
	if variance < 1 {
		variance += e.float() * (1 - variance)
	}
	return max(1, int(math.Floor(base*variance)))
}

func multiplier(m float64) float64 {
	if m <= 0 {
		return 1
	}
	return m
}

// ChooseAction picks the computer's move: a likely heal when hurt, otherwise
// a weighted draw between attack, special and defend.
func (e *Engine) ChooseAction(_ context.Context, computer, player battle.Combatant) (battle.Choice, error) {
	ai := e.tuning.AI
	hurt := computer.MaxHP > 0 && float64(computer.CurrentHP)/float64(computer.MaxHP) < ai.LowHP
	if hurt && computer.CurrentHP < computer.MaxHP && e.float() < ai.HealChance {
		return battle.Choice{Action: battle.ActionHeal, Description: fmt.Sprintf("%s decides to heal!", computer.Name)}, nil
	}

	total := ai.AttackWeight + ai.SpecialWeight + ai.DefendWeight
	r := e.float() * total
	var action battle.Action
	switch {
	case r < ai.AttackWeight:
		action = battle.ActionAttack
	case r < ai.AttackWeight+ai.SpecialWeight:
		action = battle.ActionSpecial
	default:
		action = battle.ActionDefend
	}
	var desc string
	switch action {
	case battle.ActionAttack:
		desc = fmt.Sprintf("%s decides to attack %s!", computer.Name, player.Name)
	case battle.ActionSpecial:
		desc = fmt.Sprintf("%s is charging a special attack!", computer.Name)
	default:
		desc = fmt.Sprintf("%s takes a defensive stance!", computer.Name)
	}
	return battle.Choice{Action: action, Description: desc}, nil
}
