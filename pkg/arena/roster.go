package arena

import (
	"context"
	"fmt"

	"pokebattle/pkg/battle"
	"pokebattle/pkg/pokeapi"
)

// Upstream is the part of the PokeAPI client the arena needs.
type Upstream interface {
	List(ctx context.Context, limit, offset int) (pokeapi.ListResponse, error)
	Pokemon(ctx context.Context, name string) (pokeapi.Pokemon, error)
}

// Roster serves the selectable creatures straight from PokeAPI. It
// satisfies battle.RosterSource, so the arena can run without the service.
type Roster struct {
	up   Upstream
	size int
}

func NewRoster(up Upstream, size int) *Roster {
	return &Roster{up: up, size: size}
}

// Names returns the first size names in national dex order.
func (r *Roster) Names(ctx context.Context) ([]string, error) {
	list, err := r.up.List(ctx, r.size, 0)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	names := make([]string, 0, len(list.Results))
	for _, res := range list.Results {
		names = append(names, res.Name)
	}
	return names, nil
}

func (r *Roster) Lookup(ctx context.Context, name string) (battle.Combatant, error) {
	p, err := r.up.Pokemon(ctx, name)
	if err != nil {
		return battle.Combatant{}, err
	}
	return Combatant(p), nil
}

// Combatant converts a PokeAPI record into a battle-ready combatant.
func Combatant(p pokeapi.Pokemon) battle.Combatant {
	c := battle.Combatant{
		ID:            p.ID,
		Name:          p.Name,
		Types:         p.TypeNames(),
		SpriteURL:     p.Sprites.FrontDefault,
		BackSpriteURL: p.Sprites.BackDefault,
		Stats: battle.Stats{
			HP:      p.BaseStat("hp"),
			Attack:  p.BaseStat("attack"),
			Defense: p.BaseStat("defense"),
			Speed:   p.BaseStat("speed"),
		},
	}
	c.Prepare()
	return c
}
