package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokebattle/pkg/battle"
	"pokebattle/pkg/combatmath"
)

type staticRoster map[string]battle.Combatant

func (r staticRoster) Names(context.Context) ([]string, error) {
	return []string{"pikachu", "onix"}, nil
}

func (r staticRoster) Lookup(_ context.Context, name string) (battle.Combatant, error) {
	c, ok := r[name]
	if !ok {
		return battle.Combatant{}, battle.ErrNetworkFailure
	}
	c.Prepare()
	return c, nil
}

func TestParseCommand(t *testing.T) {
	cmd, arg := parseCommand("  SELECT  Mr Mime ")
	assert.Equal(t, "select", cmd)
	assert.Equal(t, "Mr Mime", arg)

	cmd, _ = parseCommand("s")
	assert.Equal(t, "special", cmd)

	cmd, arg = parseCommand("   ")
	assert.Empty(t, cmd)
	assert.Empty(t, arg)
}

func TestHPBar(t *testing.T) {
	assert.Equal(t, "[#####.....]", hpBar(50, 100, 10))
	assert.Equal(t, "[#.........]", hpBar(1, 100, 10))
	assert.Equal(t, "[..........]", hpBar(0, 100, 10))
	assert.Equal(t, "[....]", hpBar(0, 0, 4))
}

func TestRecord(t *testing.T) {
	p := battle.Combatant{Name: "pikachu"}
	o := battle.Combatant{Name: "onix"}
	rec := record(battle.Session{Player: &p, Opponent: &o, Winner: battle.SideOpponent, Turns: 9})
	assert.Equal(t, "onix", rec.Winner)
	assert.Equal(t, "pikachu", rec.Loser)
	assert.Equal(t, "opponent", rec.WinnerSide)
	assert.Equal(t, 9, rec.Turns)
}

// safeBuffer is written by the prompt and by battle events at once.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testRoster() staticRoster {
	return staticRoster{
		"pikachu": {Name: "pikachu", Stats: battle.Stats{HP: 20, Attack: 200, Defense: 50}},
		"onix":    {Name: "onix", Stats: battle.Stats{HP: 200, Attack: 10, Defense: 50}},
	}
}

func TestReplPlaysABattle(t *testing.T) {
	roster := testRoster()
	onix := roster["onix"]
	onix.Stats.HP = 20
	roster["onix"] = onix
	tn := combatmath.DefaultTuning()
	tn.VarianceMin = 1
	out := &safeBuffer{}
	noSleep := func(context.Context, time.Duration) error { return nil }
	ctrl := battle.NewController(combatmath.New(tn, nil), roster, &console{w: out}, battle.WithSleeper(noSleep))
	require.NoError(t, ctrl.LoadRoster(context.Background()))

	in := strings.NewReader("help\nstart\nselect pikachu\nopponent onix\nstart\na\nquit\nattack\n")
	require.NoError(t, repl(context.Background(), ctrl, in, out))
	require.Equal(t, battle.StateFinished, ctrl.State(), "repl waits for the running move")
	status(ctrl, out)

	text := out.String()
	assert.Contains(t, text, "pick both pokemon first")
	assert.Contains(t, text, "Battle begins! pikachu vs onix!")
	assert.Contains(t, text, "pikachu wins the battle!")
	assert.Contains(t, text, "state: Finished")
}

func TestReplHandlesInputWhileComputerThinks(t *testing.T) {
	thinking := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	sleeper := func(_ context.Context, d time.Duration) error {
		if d >= battle.MinThinkDelay {
			once.Do(func() { close(thinking) })
			<-release
		}
		return nil
	}
	tn := combatmath.DefaultTuning()
	tn.VarianceMin = 1
	out := &safeBuffer{}
	ctrl := battle.NewController(combatmath.New(tn, nil), testRoster(), &console{w: out}, battle.WithSleeper(sleeper))
	require.NoError(t, ctrl.LoadRoster(context.Background()))

	inR, inW := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- repl(context.Background(), ctrl, inR, out) }()

	_, err := io.WriteString(inW, "select pikachu\nopponent onix\nstart\na\n")
	require.NoError(t, err)
	<-thinking
	require.Equal(t, battle.StateComputerThinking, ctrl.State())

	_, err = io.WriteString(inW, "a\n")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "error: not now") }, time.Second, 5*time.Millisecond)

	_, err = io.WriteString(inW, "reset\n")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return ctrl.State() == battle.StateSetup }, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, inW.Close())
	require.NoError(t, <-done)

	assert.Equal(t, battle.StateSetup, ctrl.State())
	assert.Contains(t, out.String(), "battle reset")
	assert.NotContains(t, out.String(), "onix decides to")
}
