package bootstrap

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ComplyCloud/brane/core/schema"
	"github.com/ComplyCloud/brane/core/service"
)

// EventWatcher re-registers declarative events when their definition files
// change. Modules are never reloaded; only event classes are replaced.
type EventWatcher struct {
	dir     string
	svc     *service.Service
	logger  zerolog.Logger
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	onReload []func(schema.Definition, error)
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewEventWatcher creates a watcher for the definitions under dir.
func NewEventWatcher(dir string, svc *service.Service, logger zerolog.Logger) *EventWatcher {
	return &EventWatcher{
		dir:    dir,
		svc:    svc,
		logger: logger.With().Str("component", "event-watcher").Logger(),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// OnReload registers fn to run after every reload attempt.
func (w *EventWatcher) OnReload(fn func(schema.Definition, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Start begins watching dir and its subdirectories.
func (w *EventWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	err = filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	w.watcher = watcher

	go w.watchLoop()

	w.logger.Info().Str("dir", w.dir).Msg("watching event definitions for changes")
	return nil
}

// Stop stops watching. Safe to call more than once, or without Start.
func (w *EventWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			w.watcher.Close()
			<-w.done
		}
	})
}

// Reload parses the definition at path and registers it, replacing any
// class of the same name. On error the registered class is left as is.
func (w *EventWatcher) Reload(path string) (schema.Definition, error) {
	def, err := schema.ParseFile(path)
	if err == nil {
		err = w.svc.AddEvent(DeclarativeEvent(def))
	}

	if err != nil {
		w.logger.Error().Err(err).Str("file", path).Msg("event reload failed, keeping previous definition")
	} else {
		w.logger.Info().Str("event", def.Name).Str("file", path).Msg("event definition reloaded")
	}

	w.mu.Lock()
	hooks := make([]func(schema.Definition, error), len(w.onReload))
	copy(hooks, w.onReload)
	w.mu.Unlock()
	for _, fn := range hooks {
		fn(def, err)
	}
	return def, err
}

func (w *EventWatcher) watchLoop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isDefinitionFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Debug().
					Str("op", event.Op.String()).
					Str("file", event.Name).
					Msg("event definition changed")
				w.Reload(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func isDefinitionFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
