package battle

import (
	"fmt"
	"strings"
)

// Side identifies one of the two battle slots.
type Side int

const (
	SideNone Side = iota
	SidePlayer
	SideOpponent
)

func (s Side) String() string {
	switch s {
	case SidePlayer:
		return "player"
	case SideOpponent:
		return "opponent"
	}
	return "none"
}

// Other returns the opposing side.
func (s Side) Other() Side {
	switch s {
	case SidePlayer:
		return SideOpponent
	case SideOpponent:
		return SidePlayer
	}
	return SideNone
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "player":
		*s = SidePlayer
	case "opponent":
		*s = SideOpponent
	case "none", "":
		*s = SideNone
	default:
		return fmt.Errorf("unknown side %q", b)
	}
	return nil
}

// Action is what a combatant does on its turn.
type Action string

const (
	ActionAttack  Action = "attack"
	ActionDefend  Action = "defend"
	ActionHeal    Action = "heal"
	ActionSpecial Action = "special"
)

// Actions lists every action in menu order.
var Actions = []Action{ActionAttack, ActionDefend, ActionHeal, ActionSpecial}

func (a Action) Valid() bool {
	switch a {
	case ActionAttack, ActionDefend, ActionHeal, ActionSpecial:
		return true
	}
	return false
}

// ParseAction accepts an action name in any case.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// Stats are the base stats of a creature.
type Stats struct {
	HP      int `json:"hp"`
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	Speed   int `json:"speed"`
}

// Combatant is one side of a battle: identity, base stats and live battle
// fields. Multipliers default to 1.0; DefendActive lasts until the
// combatant's own next action.
type Combatant struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Types         []string `json:"types,omitempty"`
	SpriteURL     string   `json:"sprite_url,omitempty"`
	BackSpriteURL string   `json:"back_sprite_url,omitempty"`
	Stats         Stats    `json:"stats"`

	MaxHP             int     `json:"max_hp"`
	CurrentHP         int     `json:"current_hp"`
	AttackMultiplier  float64 `json:"attack_multiplier"`
	DefenseMultiplier float64 `json:"defense_multiplier"`
	DefendActive      bool    `json:"defend_active"`
}

// Fainted reports whether the combatant is out of the battle.
func (c *Combatant) Fainted() bool {
	return c.CurrentHP == 0
}

// Prepare derives the battle fields from the base stats.
func (c *Combatant) Prepare() {
	c.MaxHP = c.Stats.HP
	c.CurrentHP = c.MaxHP
	c.ResetModifiers()
}

// ResetModifiers clears the temporary multipliers and the defend flag.
func (c *Combatant) ResetModifiers() {
	c.DefendActive = false
	c.AttackMultiplier = 1.0
	c.DefenseMultiplier = 1.0
}

// ClampHP bounds hp to [0, MaxHP].
func (c *Combatant) ClampHP(hp int) int {
	return max(0, min(hp, c.MaxHP))
}

func (c *Combatant) clone() *Combatant {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Types = append([]string(nil), c.Types...)
	return &cp
}

// Resolution is the combat collaborator's answer to an action.
type Resolution struct {
	NewHP     int    `json:"new_hp"`
	BattleLog string `json:"battle_log"`
	IsFainted bool   `json:"is_fainted"`
	Damage    int    `json:"damage,omitempty"`
}

// Choice is the action the collaborator picked for the computer.
type Choice struct {
	Action      Action `json:"action"`
	Description string `json:"description"`
}

// Outcome is the state delta produced by resolving one action.
type Outcome struct {
	Action   Action
	Attacker Side
	// Target is the side whose HP changed; the attacker for heal and defend.
	Target  Side
	NewHP   int
	Log     string
	Fainted bool
}
