package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "battles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.Save(ctx, Record{Winner: "Pikachu", Loser: "Onix", WinnerSide: "player", Turns: 5, FinishedAt: base})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.Save(ctx, Record{Winner: "Mew", Loser: "Pikachu", WinnerSide: "opponent", Turns: 3, FinishedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	recs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Mew", recs[0].Winner)
	assert.Equal(t, first, recs[1])

	recs, err = s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSaveFillsFinishTime(t *testing.T) {
	s := openTemp(t)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	rec, err := s.Save(context.Background(), Record{Winner: "A", Loser: "B"})
	require.NoError(t, err)
	assert.Equal(t, fixed, rec.FinishedAt)
}

func TestSaveRejectsIncompleteRecords(t *testing.T) {
	s := openTemp(t)
	_, err := s.Save(context.Background(), Record{Winner: "  ", Loser: "B"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = s.Save(context.Background(), Record{Winner: "A", Loser: "B", Turns: -1})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	recs, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battles.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), Record{Winner: "A", Loser: "B"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	recs, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
