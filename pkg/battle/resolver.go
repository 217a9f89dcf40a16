package battle

import (
	"context"
	"fmt"

	"pokebattle/pkg/logging"
)

// CombatService computes action outcomes and picks the computer's action.
type CombatService interface {
	Simulate(ctx context.Context, action Action, attacker, defender Combatant) (Resolution, error)
	ChooseAction(ctx context.Context, computer, player Combatant) (Choice, error)
}

// RosterSource lists selectable combatants and looks them up by name.
type RosterSource interface {
	Names(ctx context.Context) ([]string, error)
	Lookup(ctx context.Context, name string) (Combatant, error)
}

// Resolver turns a collaborator resolution into an Outcome. It never touches
// the session; the controller applies the outcome.
type Resolver struct {
	svc CombatService
}

func NewResolver(svc CombatService) *Resolver {
	return &Resolver{svc: svc}
}

// Resolve asks the collaborator for the result of attacker performing action
// against defender. The attacker's modifiers are reset on the copy sent out.
func (r *Resolver) Resolve(ctx context.Context, action Action, side Side, attacker, defender Combatant) (Outcome, error) {
	if !action.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	attacker.ResetModifiers()

	res, err := r.svc.Simulate(ctx, action, attacker, defender)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: resolve %s: %w", ErrNetworkFailure, action, err)
	}

	out := Outcome{Action: action, Attacker: side, Log: res.BattleLog}
	switch action {
	case ActionHeal:
		// a heal never lowers hp, so it cannot faint the healer
		out.Target = side
		out.NewHP = max(attacker.CurrentHP, attacker.ClampHP(res.NewHP))
	case ActionDefend:
		out.Target = side
		out.NewHP = attacker.CurrentHP
	default:
		out.Target = side.Other()
		out.NewHP = defender.ClampHP(res.NewHP)
		out.Fainted = out.NewHP == 0
		if res.IsFainted != out.Fainted {
			logging.Warn("faint flag disagrees with hp", logging.Fields{
				"defender": defender.Name, "new_hp": res.NewHP, "is_fainted": res.IsFainted,
			})
		}
	}
	return out, nil
}
