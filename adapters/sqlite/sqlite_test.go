package sqlite_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ComplyCloud/brane/adapters/sqlite"
)

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "brane-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()

	db, err := sqlite.Open(path)
	if err != nil {
		os.Remove(path)
		t.Fatalf("open database: %v", err)
	}

	if _, err := db.Migrate(context.Background()); err != nil {
		db.Close()
		os.Remove(path)
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(path)
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")
	}
	return db, cleanup
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := sqlite.Open(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	applied, err := db.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second Migrate applied %v, want nothing", applied)
	}
	versions, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if len(versions) != 1 || versions[0] != "001_event_journal" {
		t.Errorf("versions = %v, want [001_event_journal]", versions)
	}
}

func TestMigrate_FreshDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path = %q, want %q", db.Path(), path)
	}
	applied, err := db.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if len(applied) != 1 || applied[0] != "001_event_journal" {
		t.Errorf("applied = %v, want [001_event_journal]", applied)
	}
}

func TestJournalStore_RecordAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewJournalStore(db)
	ctx := context.Background()

	occurred := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	entry := sqlite.JournalEntry{
		ID:         "evt_1",
		Event:      "control.assessed",
		Source:     "control.assessed",
		Payload:    map[string]any{"control": "CC-1", "score": 3},
		OccurredAt: occurred,
	}
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Get(ctx, "evt_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Event != entry.Event {
		t.Errorf("Event = %s, want %s", got.Event, entry.Event)
	}
	if got.Payload["control"] != "CC-1" {
		t.Errorf("Payload = %v", got.Payload)
	}
	// JSON numbers decode as float64.
	if got.Payload["score"] != float64(3) {
		t.Errorf("score = %v", got.Payload["score"])
	}
	if !got.OccurredAt.Equal(occurred) {
		t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, occurred)
	}
	if got.RecordedAt.IsZero() {
		t.Error("RecordedAt should default to now")
	}
}

func TestJournalStore_Duplicate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewJournalStore(db)
	ctx := context.Background()
	entry := sqlite.JournalEntry{ID: "evt_dup", Event: "e", OccurredAt: time.Now()}

	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Record(ctx, entry); !errors.Is(err, sqlite.ErrDuplicate) {
		t.Errorf("second Record error = %v, want ErrDuplicate", err)
	}
}

func TestJournalStore_GetNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := sqlite.NewJournalStore(db).Get(context.Background(), "missing")
	if !errors.Is(err, sqlite.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestJournalStore_ListAndCount(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewJournalStore(db)
	ctx := context.Background()
	for i, ev := range []string{"a", "b", "a", "a"} {
		e := sqlite.JournalEntry{
			ID:         string(rune('1' + i)),
			Event:      ev,
			Payload:    map[string]any{"n": i},
			OccurredAt: time.Now(),
		}
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	n, err := store.Count(ctx)
	if err != nil || n != 4 {
		t.Errorf("Count = %d, %v; want 4", n, err)
	}

	all, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 || all[0].ID != "4" {
		t.Errorf("List all = %d entries, first %v; want 4 newest first", len(all), all)
	}

	onlyA, err := store.List(ctx, "a", 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(onlyA) != 2 || onlyA[0].ID != "4" || onlyA[1].ID != "3" {
		t.Errorf("List(a, 2) = %v", onlyA)
	}
}
