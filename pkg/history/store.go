package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrInvalidRecord is returned for records missing a winner or loser.
var ErrInvalidRecord = errors.New("invalid battle record")

// Record is the outcome of one finished battle.
type Record struct {
	ID         string    `json:"id"`
	Winner     string    `json:"winner"`
	Loser      string    `json:"loser"`
	WinnerSide string    `json:"winner_side"`
	Turns      int       `json:"turns"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store keeps battle records in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `CREATE TABLE IF NOT EXISTS battles (
	id          TEXT PRIMARY KEY,
	winner      TEXT NOT NULL,
	loser       TEXT NOT NULL,
	winner_side TEXT NOT NULL,
	turns       INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS battles_finished_at ON battles (finished_at DESC);`

// Open opens (creating when needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores rec, filling in the id and finish time when missing.
func (s *Store) Save(ctx context.Context, rec Record) (Record, error) {
	rec.Winner = strings.TrimSpace(rec.Winner)
	rec.Loser = strings.TrimSpace(rec.Loser)
	if rec.Winner == "" || rec.Loser == "" {
		return Record{}, fmt.Errorf("%w: winner and loser are required", ErrInvalidRecord)
	}
	if rec.Turns < 0 {
		return Record{}, fmt.Errorf("%w: negative turn count", ErrInvalidRecord)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = s.now()
	}
	rec.FinishedAt = rec.FinishedAt.UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO battles (id, winner, loser, winner_side, turns, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Winner, rec.Loser, rec.WinnerSide, rec.Turns, rec.FinishedAt.UnixMilli())
	if err != nil {
		return Record{}, fmt.Errorf("insert battle %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, winner, loser, winner_side, turns, finished_at FROM battles ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query battles: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		var ms int64
		if err := rows.Scan(&rec.ID, &rec.Winner, &rec.Loser, &rec.WinnerSide, &rec.Turns, &ms); err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		rec.FinishedAt = time.UnixMilli(ms).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
