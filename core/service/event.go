package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ComplyCloud/brane/core/fault"
	"github.com/ComplyCloud/brane/core/schema"
)

// ProcessFunc handles one event instance. Its result is returned to the
// caller of ProcessEvent.
type ProcessFunc func(ctx context.Context, ev *Event, things *ThingRegistry) (any, error)

// Processor processes a constructed event. The processEvent dependency
// resolves to a Processor bound to the owning service.
type Processor func(ctx context.Context, ev *Event) (any, error)

// EventClass describes a kind of event: its payload schema, dependencies and
// process function.
type EventClass struct {
	Name         string
	Description  string
	Schema       schema.Fields
	Dependencies []string
	Process      ProcessFunc

	compiled atomic.Pointer[compiledSchema]
}

type compiledSchema struct {
	validate schema.Validator
	doc      schema.Document
}

// ValidatePayload checks payload against the class schema. The class must
// have been registered with a service, which compiles the schema.
func (c *EventClass) ValidatePayload(payload map[string]any) error {
	cs := c.compiled.Load()
	if cs == nil {
		return fault.ServiceConfiguration("event %q has not been registered", c.Name)
	}
	if err := cs.validate(payload); err != nil {
		return fault.InvalidPayload(c.Name, err)
	}
	return nil
}

// Document returns the compiled JSON Schema document, or nil before
// registration.
func (c *EventClass) Document() schema.Document {
	if cs := c.compiled.Load(); cs != nil {
		return cs.doc
	}
	return nil
}

// EventState tracks an event instance through dispatch. States only move
// forward.
type EventState int32

const (
	EventValidated EventState = iota
	EventInjected
	EventProcessed
	EventFailed
)

func (s EventState) String() string {
	switch s {
	case EventValidated:
		return "validated"
	case EventInjected:
		return "injected"
	case EventProcessed:
		return "processed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one occurrence of an EventClass.
type Event struct {
	ID        string
	Timestamp time.Time

	class   *EventClass
	payload map[string]any

	mu    sync.RWMutex
	deps  Params
	state atomic.Int32
}

// Name returns the event class name.
func (e *Event) Name() string {
	if e.class == nil {
		return ""
	}
	return e.class.Name
}

// Dependencies returns the dependency names declared by the event class.
func (e *Event) Dependencies() []string {
	if e.class == nil {
		return nil
	}
	return e.class.Dependencies
}

// Class returns the class the event was constructed from.
func (e *Event) Class() *EventClass { return e.class }

// Field returns a payload field.
func (e *Event) Field(name string) (any, bool) {
	v, ok := e.payload[name]
	return v, ok
}

// Payload returns a copy of the payload fields.
func (e *Event) Payload() map[string]any {
	return copyMap(e.payload)
}

// Dependency returns the capability injected under name.
func (e *Event) Dependency(name string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.deps[name]
	return v, ok
}

// Injected returns a copy of all injected capabilities.
func (e *Event) Injected() Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(Params, len(e.deps))
	for k, v := range e.deps {
		out[k] = v
	}
	return out
}

// State returns the dispatch state.
func (e *Event) State() EventState { return EventState(e.state.Load()) }

func (e *Event) setDependencies(p Params) {
	e.mu.Lock()
	e.deps = p
	e.mu.Unlock()
}

// MarshalJSON encodes the event without its injected capabilities.
func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string         `json:"id"`
		Event     string         `json:"event"`
		Timestamp time.Time      `json:"timestamp"`
		State     string         `json:"state"`
		Payload   map[string]any `json:"payload"`
	}{
		ID:        e.ID,
		Event:     e.Name(),
		Timestamp: e.Timestamp,
		State:     e.State().String(),
		Payload:   e.payload,
	})
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// EventRegistry holds registered event classes by name.
type EventRegistry struct {
	mu      sync.RWMutex
	classes map[string]*EventClass
}

func newEventRegistry() *EventRegistry {
	return &EventRegistry{classes: make(map[string]*EventClass)}
}

// Get returns the class registered under name.
func (r *EventRegistry) Get(name string) (*EventClass, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// Names returns registered names, sorted.
func (r *EventRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered classes.
func (r *EventRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes)
}

func (r *EventRegistry) put(c *EventClass) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced = r.classes[c.Name]
	r.classes[c.Name] = c
	return replaced
}

func (r *EventRegistry) list() []*EventClass {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*EventClass, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
