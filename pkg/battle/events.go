package battle

// EventKind tells a presenter what changed.
type EventKind int

const (
	EventTurn EventKind = iota + 1
	EventHP
	EventLog
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventTurn:
		return "turn"
	case EventHP:
		return "hp"
	case EventLog:
		return "log"
	case EventEnd:
		return "end"
	}
	return "unknown"
}

// Event is emitted by the controller for the presentation layer.
//
//	EventTurn: Side is the side now acting.
//	EventHP:   Side, Name, CurrentHP and MaxHP of the updated combatant.
//	EventLog:  Message.
//	EventEnd:  Side and Name of the winner.
type Event struct {
	Kind      EventKind
	Side      Side
	Name      string
	CurrentHP int
	MaxHP     int
	Message   string
}

// Presenter receives battle events. Calls happen outside the controller's
// lock, so a presenter may read Snapshot.
type Presenter interface {
	Present(Event)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Event)

func (f PresenterFunc) Present(ev Event) { f(ev) }

// AnimationPhase is when an animation plays relative to the resolution.
type AnimationPhase int

const (
	// PhaseAct plays on the acting combatant before the request goes out.
	PhaseAct AnimationPhase = iota + 1
	// PhaseImpact plays on the affected combatant together with the HP update.
	PhaseImpact
)

// Animator is an optional capability of a Presenter.
type Animator interface {
	Animate(side Side, action Action, phase AnimationPhase)
}

// Presenters fans events out to several presenters. Animate reaches those
// that implement Animator.
type Presenters []Presenter

func (ps Presenters) Present(ev Event) {
	for _, p := range ps {
		p.Present(ev)
	}
}

func (ps Presenters) Animate(side Side, action Action, phase AnimationPhase) {
	for _, p := range ps {
		if a, ok := p.(Animator); ok {
			a.Animate(side, action, phase)
		}
	}
}

type discard struct{}

func (discard) Present(Event) {}
