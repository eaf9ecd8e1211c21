package service

import "context"

// Consumer is anything that declares named dependencies: modules at startup
// and event instances at dispatch.
type Consumer interface {
	Name() string
	Dependencies() []string
}

// Module is a named unit of functionality. It is started exactly once, in
// dependency order, and lives for the lifetime of the process.
type Module interface {
	Consumer

	// Start initializes the module. params maps each declared dependency to
	// the capability its provider exposed for this module.
	Start(ctx context.Context, params Params) error

	// Expose returns the capability handed to consumer. scope is empty at
	// startup and the event ID during event dispatch. Expose is called once
	// per consumer and scope and may return a fresh value every time.
	Expose(ctx context.Context, consumer Consumer, scope string) (any, error)
}

// Params maps provider names to injected capabilities.
type Params map[string]any

// Param returns the capability injected under name as a T.
func Param[T any](p Params, name string) (T, bool) {
	var zero T
	v, ok := p[name]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Descriptor implements Module from plain functions. Nil functions are
// no-ops: Start succeeds and Expose returns nil.
type Descriptor struct {
	ID         string
	Requires   []string
	StartFunc  func(ctx context.Context, params Params) error
	ExposeFunc func(ctx context.Context, consumer Consumer, scope string) (any, error)
}

func (d *Descriptor) Name() string           { return d.ID }
func (d *Descriptor) Dependencies() []string { return d.Requires }

func (d *Descriptor) Start(ctx context.Context, params Params) error {
	if d.StartFunc == nil {
		return nil
	}
	return d.StartFunc(ctx, params)
}

func (d *Descriptor) Expose(ctx context.Context, consumer Consumer, scope string) (any, error) {
	if d.ExposeFunc == nil {
		return nil, nil
	}
	return d.ExposeFunc(ctx, consumer, scope)
}
