package battle

// logTail is how many log lines a session keeps for rendering.
const logTail = 8

// Session pairs two combatants with the turn and activity state.
type Session struct {
	Player      *Combatant `json:"player"`
	Opponent    *Combatant `json:"opponent"`
	CurrentTurn Side       `json:"current_turn"`
	Active      bool       `json:"is_active"`
	Winner      Side       `json:"winner"`
	Turns       int        `json:"turns"`
	Log         []string   `json:"log,omitempty"`
}

// Slot returns the combatant on the given side, or nil.
func (s *Session) Slot(side Side) *Combatant {
	switch side {
	case SidePlayer:
		return s.Player
	case SideOpponent:
		return s.Opponent
	}
	return nil
}

func (s *Session) setSlot(side Side, c *Combatant) {
	switch side {
	case SidePlayer:
		s.Player = c
	case SideOpponent:
		s.Opponent = c
	}
}

// Ready reports whether both slots are filled.
func (s *Session) Ready() bool {
	return s.Player != nil && s.Opponent != nil
}

// WinnerCombatant returns the winning combatant once the battle is over.
func (s *Session) WinnerCombatant() *Combatant {
	return s.Slot(s.Winner)
}

func (s *Session) begin() {
	for _, c := range []*Combatant{s.Player, s.Opponent} {
		c.CurrentHP = c.MaxHP
		c.ResetModifiers()
	}
	s.CurrentTurn = SidePlayer
	s.Active = true
	s.Winner = SideNone
	s.Turns = 0
	s.Log = nil
}

// apply commits an outcome. The attacker's modifiers are reset first so a
// defend bonus covers only the single hit that follows it.
func (s *Session) apply(o Outcome) {
	attacker := s.Slot(o.Attacker)
	attacker.ResetModifiers()
	switch o.Action {
	case ActionDefend:
		attacker.DefendActive = true
		attacker.DefenseMultiplier = 2.0
	case ActionHeal:
		attacker.CurrentHP = attacker.ClampHP(o.NewHP)
	default:
		target := s.Slot(o.Target)
		target.CurrentHP = target.ClampHP(o.NewHP)
	}
	s.Turns++
	if o.Fainted {
		s.Active = false
		s.Winner = o.Attacker
	}
}

func (s *Session) appendLog(msg string) {
	s.Log = append(s.Log, msg)
	if n := len(s.Log); n > logTail {
		s.Log = append([]string(nil), s.Log[n-logTail:]...)
	}
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *Session) Clone() Session {
	cp := *s
	cp.Player = s.Player.clone()
	cp.Opponent = s.Opponent.clone()
	cp.Log = append([]string(nil), s.Log...)
	return cp
}
