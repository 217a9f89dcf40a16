package battle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

type simCall struct {
	Action   Action
	Attacker Combatant
	Defender Combatant
}

// fakeCombat answers with scripted functions and records every call.
type fakeCombat struct {
	mu       sync.Mutex
	simulate func(action Action, attacker, defender Combatant) (Resolution, error)
	choose   func(computer, player Combatant) (Choice, error)
	sims     []simCall
	chooses  int
}

func (f *fakeCombat) Simulate(_ context.Context, action Action, attacker, defender Combatant) (Resolution, error) {
	f.mu.Lock()
	f.sims = append(f.sims, simCall{action, attacker, defender})
	fn := f.simulate
	f.mu.Unlock()
	if fn == nil {
		return fixedDamage(20)(action, attacker, defender)
	}
	return fn(action, attacker, defender)
}

func (f *fakeCombat) ChooseAction(_ context.Context, computer, player Combatant) (Choice, error) {
	f.mu.Lock()
	f.chooses++
	fn := f.choose
	f.mu.Unlock()
	if fn == nil {
		return Choice{Action: ActionAttack, Description: computer.Name + " prepares to attack!"}, nil
	}
	return fn(computer, player)
}

func (f *fakeCombat) calls() []simCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]simCall(nil), f.sims...)
}

// fixedDamage deals dmg on attack and special, heals 30, and logs like the
// service does.
func fixedDamage(dmg int) func(Action, Combatant, Combatant) (Resolution, error) {
	return func(action Action, attacker, defender Combatant) (Resolution, error) {
		switch action {
		case ActionHeal:
			hp := min(attacker.CurrentHP+30, attacker.MaxHP)
			return Resolution{NewHP: hp, BattleLog: attacker.Name + " heals!"}, nil
		case ActionDefend:
			return Resolution{NewHP: attacker.CurrentHP, BattleLog: attacker.Name + " braces for impact!"}, nil
		}
		hp := max(defender.CurrentHP-dmg, 0)
		return Resolution{NewHP: hp, BattleLog: fmt.Sprintf("%s hits %s!", attacker.Name, defender.Name), IsFainted: hp == 0}, nil
	}
}

type fakeRoster struct {
	entries map[string]Combatant
	order   []string
	err     error
}

func newFakeRoster(cs ...Combatant) *fakeRoster {
	r := &fakeRoster{entries: map[string]Combatant{}}
	for _, c := range cs {
		r.entries[strings.ToLower(c.Name)] = c
		r.order = append(r.order, strings.ToLower(c.Name))
	}
	return r
}

func (r *fakeRoster) Names(context.Context) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return append([]string(nil), r.order...), nil
}

func (r *fakeRoster) Lookup(_ context.Context, name string) (Combatant, error) {
	c, ok := r.entries[strings.ToLower(name)]
	if !ok {
		return Combatant{}, errors.New("not found")
	}
	return c, nil
}

func creature(name string, hp int) Combatant {
	return Combatant{Name: name, Stats: Stats{HP: hp, Attack: 50, Defense: 50, Speed: 50}}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	anims  []string
}

func (r *recorder) Present(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Animate(side Side, action Action, phase AnimationPhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anims = append(r.anims, fmt.Sprintf("%s:%s:%d", side, action, phase))
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) of(kind EventKind) []Event {
	var out []Event
	for _, ev := range r.all() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) logs() []string {
	var out []string
	for _, ev := range r.of(EventLog) {
		out = append(out, ev.Message)
	}
	return out
}

// sleepRecorder returns immediately, remembering the requested durations.
// hook, when set, runs inside the sleep.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
	hook  func(d time.Duration)
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(d)
	}
	return nil
}

func (s *sleepRecorder) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}
