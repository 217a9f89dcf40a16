package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"pokebattle/pkg/battle"
)

// syncWriter serializes writes from the prompt and from battle events.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// console prints battle events as text.
type console struct {
	w io.Writer
}

func (c *console) Present(ev battle.Event) {
	switch ev.Kind {
	case battle.EventTurn:
		if ev.Side == battle.SidePlayer {
			fmt.Fprintln(c.w, "--- your move: attack | defend | heal | special ---")
		} else {
			fmt.Fprintln(c.w, "--- opponent is thinking... ---")
		}
	case battle.EventHP:
		fmt.Fprintf(c.w, "  %-8s %-12s %s %d/%d\n", ev.Side, ev.Name, hpBar(ev.CurrentHP, ev.MaxHP, 20), ev.CurrentHP, ev.MaxHP)
	case battle.EventLog:
		fmt.Fprintln(c.w, ev.Message)
	case battle.EventEnd:
		fmt.Fprintf(c.w, "*** %s (%s) wins! type reset to play again ***\n", ev.Name, ev.Side)
	}
}

func (c *console) Animate(side battle.Side, action battle.Action, phase battle.AnimationPhase) {
	if phase == battle.PhaseAct {
		fmt.Fprintf(c.w, "  > %s uses %s\n", side, action)
	}
}

func hpBar(cur, total, width int) string {
	if total <= 0 {
		return "[" + strings.Repeat(".", width) + "]"
	}
	n := min(width, max(0, cur*width/total))
	if cur > 0 && n == 0 {
		n = 1
	}
	return "[" + strings.Repeat("#", n) + strings.Repeat(".", width-n) + "]"
}

var shortcuts = map[string]string{
	"a": "attack", "d": "defend", "h": "heal", "s": "special",
	"q": "quit", "exit": "quit", "?": "help",
}

func parseCommand(line string) (string, string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	cmd := strings.ToLower(fields[0])
	if full, ok := shortcuts[cmd]; ok {
		cmd = full
	}
	return cmd, strings.Join(fields[1:], " ")
}

const help = `commands:
  list                 show the roster
  select <name>        pick your pokemon
  opponent <name>      pick the opponent
  random               random opponent
  start                begin the battle
  attack|defend|heal|special  (a|d|h|s)
  status               show the battle
  reset                back to selection
  quit`

// repl reads commands until quit or EOF. Moves run in the background so
// input typed while the computer plays still reaches the controller: another
// move is refused and reset abandons the battle. repl returns once the
// running move, if any, is over.
func repl(ctx context.Context, ctrl *battle.Controller, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	var moves sync.WaitGroup
	defer moves.Wait()

	fmt.Fprintln(out, "type help for commands")
	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return ctx.Err()
				}
			}
			line = l
		}

		cmd, arg := parseCommand(line)
		if cmd == "quit" {
			return nil
		}
		if action, err := battle.ParseAction(cmd); err == nil {
			moves.Add(1)
			go func() {
				defer moves.Done()
				if err := ctrl.PlayerAction(ctx, action); err != nil {
					fmt.Fprintln(out, "error:", explain(err))
				}
			}()
			continue
		}
		if err := run(ctx, ctrl, cmd, arg, out); err != nil {
			fmt.Fprintln(out, "error:", explain(err))
		}
	}
}

func run(ctx context.Context, ctrl *battle.Controller, cmd, arg string, out io.Writer) error {
	switch cmd {
	case "":
		return nil
	case "help":
		fmt.Fprintln(out, help)
	case "list":
		names := ctrl.Roster()
		if len(names) == 0 {
			return battle.ErrEmptyRoster
		}
		for i, n := range names {
			fmt.Fprintf(out, "%-14s", n)
			if (i+1)%6 == 0 {
				fmt.Fprintln(out)
			}
		}
		fmt.Fprintln(out)
	case "select", "opponent":
		if arg == "" {
			return fmt.Errorf("usage: %s <name>", cmd)
		}
		side := battle.SidePlayer
		if cmd == "opponent" {
			side = battle.SideOpponent
		}
		if err := ctrl.Select(ctx, side, arg); err != nil {
			return err
		}
		snap := ctrl.Snapshot()
		fmt.Fprintf(out, "%s: %s\n", side, snap.Slot(side).Name)
	case "random":
		if err := ctrl.RandomOpponent(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "opponent: %s\n", ctrl.Snapshot().Opponent.Name)
	case "start":
		return ctrl.Start()
	case "reset":
		ctrl.Reset()
		fmt.Fprintln(out, "battle reset")
	case "status":
		status(ctrl, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func status(ctrl *battle.Controller, out io.Writer) {
	s := ctrl.Snapshot()
	fmt.Fprintf(out, "state: %s  turn: %s  turns: %d\n", ctrl.State(), s.CurrentTurn, s.Turns)
	for _, side := range []battle.Side{battle.SidePlayer, battle.SideOpponent} {
		c := s.Slot(side)
		if c == nil {
			fmt.Fprintf(out, "  %-8s (empty)\n", side)
			continue
		}
		fmt.Fprintf(out, "  %-8s %-12s %s %d/%d\n", side, c.Name, hpBar(c.CurrentHP, c.MaxHP, 20), c.CurrentHP, c.MaxHP)
	}
}

func explain(err error) string {
	switch {
	case errors.Is(err, battle.ErrIncompleteSetup):
		return "pick both pokemon first"
	case errors.Is(err, battle.ErrInvalidTransition):
		return "not now"
	case errors.Is(err, battle.ErrNetworkFailure):
		return "the battle service did not answer: " + err.Error()
	}
	return err.Error()
}
