// Package service assembles modules into a running application.
//
// Modules declare dependencies by name. Start builds a dependency graph,
// rejects cycles and unknown names, and starts every module after the
// modules it depends on, injecting what each provider exposes. Events are
// validated against a compiled schema, receive their own injected
// dependencies, are processed, and are recorded in an in-memory log.
package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ComplyCloud/brane/core/depgraph"
	"github.com/ComplyCloud/brane/core/eventlog"
	"github.com/ComplyCloud/brane/core/fault"
	"github.com/ComplyCloud/brane/core/schema"
)

// Reserved dependency names resolved by the service itself.
const (
	EventsDependency       = "events"
	ProcessEventDependency = "processEvent"
	ThingsDependency       = "things"
)

// LoggerName is the module name the event pipeline logs through when such a
// module is registered.
const LoggerName = "logger"

// IsReserved reports whether name is resolved internally.
func IsReserved(name string) bool {
	switch name {
	case EventsDependency, ProcessEventDependency, ThingsDependency:
		return true
	}
	return false
}

// State is the service lifecycle state.
type State int32

const (
	StateCreated State = iota
	StateStarting
	StateRunning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer receives lifecycle and dispatch measurements.
type Observer interface {
	ModuleStarted(name string, took time.Duration, err error)
	EventProcessed(event string, took time.Duration, err error)
	EventRejected(event string, err error)
}

type nopObserver struct{}

func (nopObserver) ModuleStarted(string, time.Duration, error)  {}
func (nopObserver) EventProcessed(string, time.Duration, error) {}
func (nopObserver) EventRejected(string, error)                 {}

// Service owns the module set, the event and thing registries and the event
// log.
type Service struct {
	mu      sync.RWMutex
	state   State
	modules []Module
	names   map[string]bool
	graph   *depgraph.Graph[Module]
	order   []string
	started map[string]bool

	events *EventRegistry
	things *ThingRegistry
	log    *eventlog.Log[*Event]

	logger   zerolog.Logger
	compiler schema.Compiler
	newID    func() string
	now      func() time.Time
	observer Observer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCompiler replaces the schema compiler.
func WithCompiler(c schema.Compiler) Option {
	return func(s *Service) { s.compiler = c }
}

// WithIDGenerator replaces event ID generation.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// WithClock replaces the time source used for event timestamps and timings.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithObserver registers an observer for startup and dispatch.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// New creates a Service.
func New(opts ...Option) *Service {
	s := &Service{
		names:    make(map[string]bool),
		started:  make(map[string]bool),
		events:   newEventRegistry(),
		things:   newThingRegistry(),
		log:      eventlog.New[*Event](),
		logger:   zerolog.Nop(),
		compiler: schema.NewJSONSchema(),
		newID:    uuid.NewString,
		now:      time.Now,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddModule registers a module. Modules can only be added before Start.
func (s *Service) AddModule(m Module) error {
	if m == nil {
		return fault.ServiceConfiguration("module is nil")
	}
	name := m.Name()
	if name == "" {
		return fault.ServiceConfiguration("module name is required")
	}
	if IsReserved(name) {
		return fault.ServiceConfiguration("module name %q is reserved", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCreated {
		return fault.ServiceConfiguration("cannot add module %q: service is %s", name, s.state)
	}
	if s.names[name] {
		return fault.ServiceConfiguration("duplicate module %q", name)
	}
	s.names[name] = true
	s.modules = append(s.modules, m)

	s.logger.Debug().Str("module", name).Strs("dependencies", m.Dependencies()).Msg("module registered")
	return nil
}

// Register adds modules and then event classes, stopping at the first error.
func (s *Service) Register(modules []Module, events []*EventClass) error {
	for _, m := range modules {
		if err := s.AddModule(m); err != nil {
			return err
		}
	}
	for _, c := range events {
		if err := s.AddEvent(c); err != nil {
			return err
		}
	}
	return nil
}

// AddEvent compiles the class schema and registers the class, replacing any
// class of the same name. Events already logged are unaffected. Once the
// service has resolved its graph, the class dependencies are checked
// immediately.
func (s *Service) AddEvent(class *EventClass) error {
	if class == nil {
		return fault.ServiceConfiguration("event class is nil")
	}
	if class.Name == "" {
		return fault.ServiceConfiguration("event name is required")
	}
	if class.Process == nil {
		return fault.ServiceConfiguration("event %q has no process function", class.Name)
	}

	validate, doc, err := schema.Build(s.compiler, class.Name, class.Schema)
	if err != nil {
		return fault.Wrap(fault.KindServiceConfiguration, err, "event %q", class.Name)
	}

	s.mu.Lock()
	if s.graph != nil {
		if err := checkDependencies(s.graph, class.Name, class.Dependencies); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	class.compiled.Store(&compiledSchema{validate: validate, doc: doc})
	replaced := s.events.put(class)
	s.mu.Unlock()

	s.logger.Debug().Str("event", class.Name).Bool("replaced", replaced).Msg("event registered")
	return nil
}

// AddThing registers a thing, replacing any thing of the same name.
func (s *Service) AddThing(t Thing) error {
	if t == nil {
		return fault.ServiceConfiguration("thing is nil")
	}
	if t.Name() == "" {
		return fault.ServiceConfiguration("thing name is required")
	}
	replaced := s.things.put(t)
	s.logger.Debug().Str("thing", t.Name()).Bool("replaced", replaced).Msg("thing registered")
	return nil
}

// State returns the lifecycle state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Order returns the module start order, or nil before Start resolved it.
func (s *Service) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.order == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Modules returns registered module names in registration order.
func (s *Service) Modules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.modules))
	for i, m := range s.modules {
		out[i] = m.Name()
	}
	return out
}

// EventLog returns the log of successfully processed events.
func (s *Service) EventLog() *eventlog.Log[*Event] { return s.log }

// Events returns the event class registry.
func (s *Service) Events() *EventRegistry { return s.events }

// Things returns the thing registry.
func (s *Service) Things() *ThingRegistry { return s.things }

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Service) currentGraph() *depgraph.Graph[Module] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}
