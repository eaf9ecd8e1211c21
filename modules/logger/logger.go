// Package logger provides the built-in logger module. Every consumer gets a
// zerolog.Logger tagged with its own name and, during event dispatch, the
// event ID.
package logger

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ComplyCloud/brane/core/service"
)

// Module exposes child loggers of a base logger.
type Module struct {
	base zerolog.Logger
}

// New creates the logger module.
func New(base zerolog.Logger) *Module {
	return &Module{base: base.With().Str("component", "brane").Logger()}
}

func (m *Module) Name() string           { return service.LoggerName }
func (m *Module) Dependencies() []string { return nil }

func (m *Module) Start(ctx context.Context, _ service.Params) error {
	m.base.Debug().Msg("logger module started")
	return nil
}

// Expose returns a zerolog.Logger scoped to consumer.
func (m *Module) Expose(_ context.Context, consumer service.Consumer, scope string) (any, error) {
	c := m.base.With().Str("consumer", consumer.Name())
	if scope != "" {
		c = c.Str("event_id", scope)
	}
	return c.Logger(), nil
}
