// Package journal provides the built-in journal module, which persists
// processed events to SQLite.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ComplyCloud/brane/adapters/sqlite"
	"github.com/ComplyCloud/brane/core/fault"
	"github.com/ComplyCloud/brane/core/service"
)

// Name is the module name consumers depend on.
const Name = "journal"

// Module owns the journal database.
type Module struct {
	path string

	mu    sync.RWMutex
	db    *sqlite.DB
	store *sqlite.JournalStore
	log   zerolog.Logger
}

// New creates a journal module backed by the SQLite file at path.
func New(path string) *Module {
	return &Module{path: path, log: zerolog.Nop()}
}

func (m *Module) Name() string           { return Name }
func (m *Module) Dependencies() []string { return []string{service.LoggerName} }

// Start opens the database and applies migrations.
func (m *Module) Start(ctx context.Context, params service.Params) error {
	if l, ok := service.Param[zerolog.Logger](params, service.LoggerName); ok {
		m.log = l
	}

	db, err := sqlite.Open(m.path)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	applied, err := db.Migrate(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("journal: %w", err)
	}
	versions, err := db.AppliedMigrations(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("journal: %w", err)
	}

	m.mu.Lock()
	m.db = db
	m.store = sqlite.NewJournalStore(db)
	m.mu.Unlock()

	ev := m.log.Info().Str("path", m.path).Strs("migrated", applied)
	if len(versions) > 0 {
		ev = ev.Str("schema_version", versions[len(versions)-1])
	}
	ev.Msg("journal opened")
	return nil
}

// Expose returns a *Recorder that attributes entries to consumer.
func (m *Module) Expose(_ context.Context, consumer service.Consumer, _ string) (any, error) {
	store := m.Store()
	if store == nil {
		return nil, fault.ServiceConfiguration("journal is not open")
	}
	return &Recorder{store: store, source: consumer.Name(), log: m.log}, nil
}

// Store returns the underlying store, or nil before Start.
func (m *Module) Store() *sqlite.JournalStore {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store
}

// Entries returns up to limit journaled events, newest first. An empty
// event matches every event.
func (m *Module) Entries(ctx context.Context, event string, limit int) ([]sqlite.JournalEntry, error) {
	store := m.Store()
	if store == nil {
		return nil, fault.ServiceConfiguration("journal is not open")
	}
	return store.List(ctx, event, limit)
}

// Count returns the number of journaled events.
func (m *Module) Count(ctx context.Context) (int64, error) {
	store := m.Store()
	if store == nil {
		return 0, fault.ServiceConfiguration("journal is not open")
	}
	return store.Count(ctx)
}

// Close closes the database. It is safe to call before Start.
func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	m.store = nil
	return err
}

// Recorder writes events to the journal on behalf of one consumer.
type Recorder struct {
	store  *sqlite.JournalStore
	source string
	log    zerolog.Logger
}

// Source returns the consumer name entries are attributed to.
func (r *Recorder) Source() string { return r.source }

// Record persists ev. Recording the same event twice fails with a Conflict.
func (r *Recorder) Record(ctx context.Context, ev *service.Event) error {
	err := r.store.Record(ctx, sqlite.JournalEntry{
		ID:         ev.ID,
		Event:      ev.Name(),
		Source:     r.source,
		Payload:    ev.Payload(),
		OccurredAt: ev.Timestamp,
	})
	if err != nil {
		if errors.Is(err, sqlite.ErrDuplicate) {
			return fault.Conflict("event %s already journaled", ev.ID)
		}
		return fmt.Errorf("journal event %s: %w", ev.ID, err)
	}
	r.log.Debug().Str("event_id", ev.ID).Str("source", r.source).Msg("event journaled")
	return nil
}
