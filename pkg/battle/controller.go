package battle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"pokebattle/pkg/logging"
)

// State is a turn controller state.
type State string

const (
	StateSetup                   State = "Setup"
	StatePlayerTurn              State = "PlayerTurn"
	StateResolvingPlayerAction   State = "ResolvingPlayerAction"
	StateComputerThinking        State = "ComputerThinking"
	StateResolvingComputerAction State = "ResolvingComputerAction"
	StateFinished                State = "Finished"
)

const (
	evStart  = "start"
	evChoose = "choose"
	evDrop   = "drop"
	evThink  = "think"
	evDecide = "decide"
	evYield  = "yield"
	evFaint  = "faint"
	evReset  = "reset"
)

const (
	// MinThinkDelay is the shortest pause before the computer acts.
	MinThinkDelay        = 2 * time.Second
	DefaultPresentDelay  = 300 * time.Millisecond
	DefaultDecisionDelay = time.Second
)

// errStale marks a result that arrived for a battle that was reset.
var errStale = errors.New("stale result")

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithSleeper replaces the real timer, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

// WithRand sets the source used for random opponents.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rng = r }
}

// WithDelays overrides the pacing delays. The think delay never drops below
// MinThinkDelay.
func WithDelays(present, think, decision time.Duration) Option {
	return func(c *Controller) {
		c.presentDelay = present
		c.thinkDelay = max(think, MinThinkDelay)
		c.decisionDelay = decision
	}
}

// Controller sequences a player-vs-computer battle. At most one action is in
// flight; requests that arrive mid-cycle are rejected, not queued.
type Controller struct {
	mu      sync.Mutex
	machine *fsm.FSM
	session Session
	roster  []string
	// epoch changes on every reset; results carrying an old epoch are dropped.
	epoch uint64

	resolver  *Resolver
	combat    CombatService
	source    RosterSource
	presenter Presenter
	animator  Animator
	rng       *rand.Rand
	sleep     Sleeper

	presentDelay  time.Duration
	thinkDelay    time.Duration
	decisionDelay time.Duration
}

func NewController(combat CombatService, source RosterSource, p Presenter, opts ...Option) *Controller {
	if p == nil {
		p = discard{}
	}
	c := &Controller{
		resolver:      NewResolver(combat),
		combat:        combat,
		source:        source,
		presenter:     p,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:         sleep,
		presentDelay:  DefaultPresentDelay,
		thinkDelay:    MinThinkDelay,
		decisionDelay: DefaultDecisionDelay,
	}
	if a, ok := p.(Animator); ok {
		c.animator = a
	}
	for _, opt := range opts {
		opt(c)
	}

	resolving := []string{string(StateResolvingPlayerAction), string(StateResolvingComputerAction)}
	c.machine = fsm.NewFSM(string(StateSetup), fsm.Events{
		{Name: evStart, Src: []string{string(StateSetup)}, Dst: string(StatePlayerTurn)},
		{Name: evChoose, Src: []string{string(StatePlayerTurn)}, Dst: string(StateResolvingPlayerAction)},
		{Name: evDrop, Src: []string{string(StateResolvingPlayerAction)}, Dst: string(StatePlayerTurn)},
		{Name: evThink, Src: []string{string(StateResolvingPlayerAction)}, Dst: string(StateComputerThinking)},
		{Name: evDecide, Src: []string{string(StateComputerThinking)}, Dst: string(StateResolvingComputerAction)},
		{Name: evYield, Src: []string{string(StateResolvingComputerAction)}, Dst: string(StatePlayerTurn)},
		{Name: evFaint, Src: resolving, Dst: string(StateFinished)},
		{Name: evReset, Src: []string{
			string(StatePlayerTurn), string(StateResolvingPlayerAction), string(StateComputerThinking),
			string(StateResolvingComputerAction), string(StateFinished),
		}, Dst: string(StateSetup)},
	}, fsm.Callbacks{
		"enter_" + string(StateFinished): func(_ context.Context, e *fsm.Event) {
			logging.Info("battle finished", logging.Fields{"from": e.Src})
		},
	})
	return c
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

func (c *Controller) state() State {
	return State(c.machine.Current())
}

func (c *Controller) fire(event string) error {
	if err := c.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	return nil
}

// Snapshot returns a copy of the session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// Roster returns the loaded roster names.
func (c *Controller) Roster() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.roster...)
}

// LoadRoster fetches the roster. The previous roster is kept on failure.
func (c *Controller) LoadRoster(ctx context.Context) error {
	names, err := c.source.Names(ctx)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	c.mu.Lock()
	c.roster = append([]string(nil), names...)
	c.mu.Unlock()
	return nil
}

// Select fills a slot with the named combatant. An empty name clears it.
// Only allowed before the battle starts.
func (c *Controller) Select(ctx context.Context, side Side, name string) error {
	if side != SidePlayer && side != SideOpponent {
		return fmt.Errorf("%w: no slot %s", ErrInvalidTransition, side)
	}
	if c.State() != StateSetup {
		return ErrInvalidTransition
	}

	var picked *Combatant
	if name != "" {
		cb, err := c.source.Lookup(ctx, name)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", name, err)
		}
		if cb.Stats.HP <= 0 {
			return fmt.Errorf("lookup %s: combatant has no hp", name)
		}
		cb.Prepare()
		picked = &cb
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state() != StateSetup {
		return ErrInvalidTransition
	}
	c.session.setSlot(side, picked)
	return nil
}

// RandomOpponent fills the opponent slot with a uniformly drawn roster entry.
func (c *Controller) RandomOpponent(ctx context.Context) error {
	c.mu.Lock()
	if len(c.roster) == 0 {
		c.mu.Unlock()
		return ErrEmptyRoster
	}
	name := c.roster[c.rng.Intn(len(c.roster))]
	c.mu.Unlock()
	return c.Select(ctx, SideOpponent, name)
}

// Start begins the battle with the player to move.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.state() != StateSetup {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	if !c.session.Ready() {
		c.mu.Unlock()
		return ErrIncompleteSetup
	}
	c.session.begin()
	if err := c.fire(evStart); err != nil {
		c.mu.Unlock()
		return err
	}
	player, opponent := c.session.Player.clone(), c.session.Opponent.clone()
	epoch := c.epoch
	c.mu.Unlock()

	logging.Info("battle started", logging.Fields{"player": player.Name, "opponent": opponent.Name})
	if c.logFor(epoch, fmt.Sprintf("Battle begins! %s vs %s!", player.Name, opponent.Name)) &&
		c.logFor(epoch, fmt.Sprintf("%s, it's your turn!", player.Name)) &&
		c.presentHP(epoch, SidePlayer, player) &&
		c.presentHP(epoch, SideOpponent, opponent) {
		c.presentFor(epoch, Event{Kind: EventTurn, Side: SidePlayer, Name: player.Name})
	}
	return nil
}

// Reset abandons the current battle, clears both slots and returns to Setup.
// The roster is kept. Results still in flight are discarded when they land.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	if c.state() != StateSetup {
		_ = c.fire(evReset)
	}
	c.session = Session{}
}

// PlayerAction runs one full cycle: the player's action, the thinking delay,
// and the computer's reply. It returns once the turn is back with the player
// or the battle ended. A network failure on the player's action drops it and
// leaves the turn with the player.
func (c *Controller) PlayerAction(ctx context.Context, action Action) error {
	if !action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	c.mu.Lock()
	if c.state() != StatePlayerTurn || !c.session.Active || c.session.CurrentTurn != SidePlayer {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	if err := c.fire(evChoose); err != nil {
		c.mu.Unlock()
		return err
	}
	epoch := c.epoch
	c.mu.Unlock()

	out, err := c.resolveTurn(ctx, epoch, SidePlayer, action)
	switch {
	case errors.Is(err, errStale):
		return nil
	case err != nil:
		c.mu.Lock()
		stale := c.epoch != epoch
		if !stale {
			_ = c.fire(evDrop)
		}
		c.mu.Unlock()
		if !stale {
			logging.Error("player action failed", err, logging.Fields{"action": string(action)})
			c.logFor(epoch, fmt.Sprintf("Your %s failed to go through. Try again!", action))
		}
		return err
	case out.Fainted:
		return nil
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return nil
	}
	if err := c.fire(evThink); err != nil {
		c.mu.Unlock()
		return err
	}
	c.session.CurrentTurn = SideOpponent
	name := c.session.Opponent.Name
	c.mu.Unlock()
	if !c.presentFor(epoch, Event{Kind: EventTurn, Side: SideOpponent, Name: name}) {
		return nil
	}

	c.computerTurn(context.WithoutCancel(ctx), epoch)
	return nil
}

func (c *Controller) computerTurn(ctx context.Context, epoch uint64) {
	_ = c.sleep(ctx, c.thinkDelay)

	c.mu.Lock()
	if c.epoch != epoch || c.state() != StateComputerThinking {
		c.mu.Unlock()
		return
	}
	if err := c.fire(evDecide); err != nil {
		c.mu.Unlock()
		return
	}
	computer, player := *c.session.Opponent.clone(), *c.session.Player.clone()
	c.mu.Unlock()

	action := ActionAttack
	choice, err := c.combat.ChooseAction(ctx, computer, player)
	switch {
	case err != nil:
		logging.Warn("computer action selection failed, attacking", logging.Fields{"error": err.Error()})
	case !choice.Action.Valid():
		logging.Warn("computer chose an unknown action, attacking", logging.Fields{"action": string(choice.Action)})
	default:
		action = choice.Action
		if choice.Description != "" {
			c.logFor(epoch, choice.Description)
		}
		_ = c.sleep(ctx, c.decisionDelay)
	}

	out, err := c.resolveTurn(ctx, epoch, SideOpponent, action)
	if err != nil && !errors.Is(err, errStale) && action != ActionAttack {
		logging.Warn("computer action failed, retrying as attack", logging.Fields{"action": string(action), "error": err.Error()})
		out, err = c.resolveTurn(ctx, epoch, SideOpponent, ActionAttack)
	}
	switch {
	case errors.Is(err, errStale):
		return
	case err != nil:
		logging.Error("computer forfeits its turn", err, nil)
		c.logFor(epoch, fmt.Sprintf("%s hesitates and loses its turn!", computer.Name))
	case out.Fainted:
		return
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	if err := c.fire(evYield); err != nil {
		c.mu.Unlock()
		return
	}
	c.session.CurrentTurn = SidePlayer
	name := c.session.Player.Name
	c.mu.Unlock()
	c.presentFor(epoch, Event{Kind: EventTurn, Side: SidePlayer, Name: name})
}

// resolveTurn resolves one action for side and commits it. The session is
// updated as soon as the resolution lands; HP, log and end events follow
// after the presentation delay. A faint moves the machine to Finished after
// those events.
func (c *Controller) resolveTurn(ctx context.Context, epoch uint64, side Side, action Action) (Outcome, error) {
	c.mu.Lock()
	if c.epoch != epoch || !c.session.Active {
		c.mu.Unlock()
		return Outcome{}, errStale
	}
	attacker, defender := *c.session.Slot(side).clone(), *c.session.Slot(side.Other()).clone()
	c.mu.Unlock()

	if c.animator != nil {
		c.animator.Animate(side, action, PhaseAct)
	}

	out, err := c.resolver.Resolve(ctx, action, side, attacker, defender)
	if err != nil {
		return Outcome{}, err
	}

	c.mu.Lock()
	if c.epoch != epoch || !c.session.Active || c.session.CurrentTurn != side {
		c.mu.Unlock()
		return Outcome{}, errStale
	}
	c.session.apply(out)
	target := c.session.Slot(out.Target).clone()
	winner := c.session.WinnerCombatant().clone()
	c.mu.Unlock()

	_ = c.sleep(ctx, c.presentDelay)
	if c.stale(epoch) {
		return Outcome{}, errStale
	}

	if c.animator != nil {
		c.animator.Animate(out.Target, action, PhaseImpact)
	}
	if action != ActionDefend && !c.presentHP(epoch, out.Target, target) {
		return Outcome{}, errStale
	}
	if out.Log != "" && !c.logFor(epoch, out.Log) {
		return Outcome{}, errStale
	}
	if !out.Fainted {
		return out, nil
	}

	if !c.logFor(epoch, fmt.Sprintf("%s wins the battle!", winner.Name)) {
		return Outcome{}, errStale
	}
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return Outcome{}, errStale
	}
	_ = c.fire(evFaint)
	c.mu.Unlock()
	logging.Info("battle won", logging.Fields{"winner": winner.Name, "side": side.String()})
	c.presentFor(epoch, Event{Kind: EventEnd, Side: side, Name: winner.Name})
	return out, nil
}

func (c *Controller) stale(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch != epoch
}

// logFor appends msg to the battle identified by epoch and presents it. It
// reports false, doing nothing, once that battle has been reset.
func (c *Controller) logFor(epoch uint64, msg string) bool {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	c.session.appendLog(msg)
	c.mu.Unlock()
	c.presenter.Present(Event{Kind: EventLog, Message: msg})
	return true
}

// presentFor delivers ev unless the battle identified by epoch was reset.
func (c *Controller) presentFor(epoch uint64, ev Event) bool {
	if c.stale(epoch) {
		return false
	}
	c.presenter.Present(ev)
	return true
}

func (c *Controller) presentHP(epoch uint64, side Side, cb *Combatant) bool {
	return c.presentFor(epoch, Event{Kind: EventHP, Side: side, Name: cb.Name, CurrentHP: cb.CurrentHP, MaxHP: cb.MaxHP})
}
