package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a journal entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an entry with the same ID was recorded.
	ErrDuplicate = errors.New("duplicate entry")
)

// JournalEntry is one recorded event.
type JournalEntry struct {
	ID         string         `json:"id"`
	Event      string         `json:"event"`
	Source     string         `json:"source,omitempty"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// JournalStore persists journal entries.
type JournalStore struct {
	db *DB
}

// NewJournalStore creates a new SQLite journal store.
func NewJournalStore(db *DB) *JournalStore {
	return &JournalStore{db: db}
}

// Record stores an entry. RecordedAt defaults to now.
func (s *JournalStore) Record(ctx context.Context, e JournalEntry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_journal (id, event, source, payload, occurred_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Event, e.Source, string(payload), e.OccurredAt.UTC(), e.RecordedAt.UTC())
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("record %s: %w", e.ID, ErrDuplicate)
	}
	return err
}

// Get retrieves an entry by event ID.
func (s *JournalStore) Get(ctx context.Context, id string) (JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event, source, payload, occurred_at, recorded_at
		FROM event_journal
		WHERE id = ?
	`, id)

	return scanEntry(row)
}

// List returns entries newest first. An empty event matches every event;
// limit <= 0 means no limit.
func (s *JournalStore) List(ctx context.Context, event string, limit int) ([]JournalEntry, error) {
	query := `
		SELECT id, event, source, payload, occurred_at, recorded_at
		FROM event_journal`
	var args []any
	if event != "" {
		query += ` WHERE event = ?`
		args = append(args, event)
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded entries.
func (s *JournalStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_journal`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (JournalEntry, error) {
	var (
		e       JournalEntry
		payload string
	)
	err := row.Scan(&e.ID, &e.Event, &e.Source, &payload, &e.OccurredAt, &e.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return JournalEntry{}, ErrNotFound
	}
	if err != nil {
		return JournalEntry{}, err
	}
	if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
		return JournalEntry{}, fmt.Errorf("decode payload of %s: %w", e.ID, err)
	}
	return e, nil
}
