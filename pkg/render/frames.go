package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pokebattle/pkg/battle"
	"pokebattle/pkg/logging"
)

// SceneFunc produces PNG bytes for a session, locally or via the service.
type SceneFunc func(ctx context.Context, s battle.Session) ([]byte, error)

// FramePresenter writes a numbered PNG whenever the turn changes and when the
// battle ends.
type FramePresenter struct {
	Dir      string
	Snapshot func() battle.Session
	Render   SceneFunc

	mu sync.Mutex
	n  int
}

func (f *FramePresenter) Present(ev battle.Event) {
	if ev.Kind != battle.EventTurn && ev.Kind != battle.EventEnd {
		return
	}
	if f.Snapshot == nil || f.Render == nil {
		return
	}
	if _, err := f.write(context.Background(), f.Snapshot()); err != nil {
		logging.Error("failed to write frame", err, logging.Fields{"dir": f.Dir})
	}
}

func (f *FramePresenter) write(ctx context.Context, s battle.Session) (string, error) {
	b, err := f.Render(ctx, s)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.n++
	name := filepath.Join(f.Dir, fmt.Sprintf("frame-%03d.png", f.n))
	f.mu.Unlock()

	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", err
	}
	return name, os.WriteFile(name, b, 0o644)
}

// Frames reports how many frames were written.
func (f *FramePresenter) Frames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}
