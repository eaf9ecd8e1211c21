package service

import (
	"sort"
	"sync"
)

// Thing is a named capability shared with every event process function.
type Thing interface {
	Name() string
}

// StaticThing is a Thing carrying fixed attributes.
type StaticThing struct {
	ThingName  string         `json:"name"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewThing creates a StaticThing.
func NewThing(name string, attrs map[string]any) *StaticThing {
	return &StaticThing{ThingName: name, Attributes: attrs}
}

func (t *StaticThing) Name() string { return t.ThingName }

// ThingRegistry holds registered things by name.
type ThingRegistry struct {
	mu     sync.RWMutex
	things map[string]Thing
}

func newThingRegistry() *ThingRegistry {
	return &ThingRegistry{things: make(map[string]Thing)}
}

// Get returns the thing registered under name.
func (r *ThingRegistry) Get(name string) (Thing, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.things[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *ThingRegistry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns registered names, sorted.
func (r *ThingRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.things))
	for n := range r.things {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered things.
func (r *ThingRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.things)
}

func (r *ThingRegistry) put(t Thing) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced = r.things[t.Name()]
	r.things[t.Name()] = t
	return replaced
}
