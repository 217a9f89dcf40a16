// Command arena plays a battle in the terminal against the computer, either
// through the battle service or fully in-process with -offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"pokebattle/pkg/arena"
	"pokebattle/pkg/battle"
	"pokebattle/pkg/battleclient"
	"pokebattle/pkg/combatmath"
	"pokebattle/pkg/history"
	"pokebattle/pkg/logging"
	"pokebattle/pkg/pokeapi"
	"pokebattle/pkg/render"
	"pokebattle/pkg/utils"
)

func main() {
	var server, pokeAPI, frames, tuningPath, background string
	var offline, verbose bool
	var seed int64
	var roster int
	var timeout time.Duration
	flag.StringVar(&server, "server", "http://localhost:8080", "battle service url")
	flag.BoolVar(&offline, "offline", false, "resolve battles in-process instead of calling the service")
	flag.StringVar(&pokeAPI, "pokeapi", "https://pokeapi.co/api/v2", "pokeapi url (offline only)")
	flag.StringVar(&tuningPath, "tuning", "", "combat tuning yaml (offline only)")
	flag.IntVar(&roster, "roster", 151, "roster size (offline only)")
	flag.StringVar(&frames, "frames", "", "write a png per turn into this dir")
	flag.StringVar(&background, "background", "", "background image for frames (offline only)")
	flag.Int64Var(&seed, "seed", 0, "seed, 0 for time based")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	flag.BoolVar(&verbose, "v", false, "log to stderr")
	flag.Parse()

	if !verbose {
		logging.SetOutput(io.Discard)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var (
		combat battle.CombatService
		source battle.RosterSource
		scene  render.SceneFunc
		save   func(context.Context, history.Record) (history.Record, error)
	)
	if offline {
		tuning, err := combatmath.LoadTuning(tuningPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		combat = combatmath.New(tuning, combatmath.NewRand(seed))
		source = arena.NewRoster(pokeapi.New(pokeAPI, timeout, time.Hour), roster)
		renderer := render.New(utils.NewImageCache(timeout), "")
		renderer.Background = background
		scene = renderer.PNG
	} else {
		cl := battleclient.New(server, timeout)
		combat, source, scene, save = cl, cl, cl.Render, cl.SaveResult
	}

	out := &syncWriter{w: os.Stdout}
	presenters := battle.Presenters{&console{w: out}}
	var fp *render.FramePresenter
	if frames != "" {
		fp = &render.FramePresenter{Dir: frames, Render: scene}
		presenters = append(presenters, fp)
	}

	var ctrl *battle.Controller
	if save != nil {
		presenters = append(presenters, battle.PresenterFunc(func(ev battle.Event) {
			if ev.Kind != battle.EventEnd {
				return
			}
			rec := record(ctrl.Snapshot())
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if _, err := save(ctx, rec); err != nil {
				logging.Error("failed to save result", err, logging.Fields{"winner": rec.Winner})
			}
		}))
	}

	ctrl = battle.NewController(combat, source, presenters, battle.WithRand(combatmath.NewRand(seed)))
	if fp != nil {
		fp.Snapshot = ctrl.Snapshot
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := ctrl.LoadRoster(ctx); err != nil {
		fmt.Fprintln(out, "could not load the roster:", explain(err))
	}
	if err := repl(ctx, ctrl, os.Stdin, out); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func record(s battle.Session) history.Record {
	rec := history.Record{WinnerSide: s.Winner.String(), Turns: s.Turns, FinishedAt: time.Now()}
	if w := s.Slot(s.Winner); w != nil {
		rec.Winner = w.Name
	}
	if l := s.Slot(s.Winner.Other()); l != nil {
		rec.Loser = l.Name
	}
	return rec
}
