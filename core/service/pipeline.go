package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ComplyCloud/brane/core/depgraph"
	"github.com/ComplyCloud/brane/core/fault"
)

// NewEvent validates payload against the named class and constructs an
// event with a fresh ID and timestamp. Nothing is constructed when the
// payload is invalid.
func (s *Service) NewEvent(name string, payload map[string]any) (*Event, error) {
	class, ok := s.events.Get(name)
	if !ok {
		err := fault.NotFound("unknown event %q", name)
		s.observer.EventRejected(name, err)
		return nil, err
	}
	if err := class.ValidatePayload(payload); err != nil {
		s.observer.EventRejected(name, err)
		return nil, err
	}
	return &Event{
		ID:        s.newID(),
		Timestamp: s.now(),
		class:     class,
		payload:   copyMap(payload),
	}, nil
}

// ProcessEvent injects the event's dependencies, scoped to its ID, and runs
// the class process function. A successful event is appended to the event
// log. The process error, if any, is returned unchanged. An event can be
// processed only once.
func (s *Service) ProcessEvent(ctx context.Context, ev *Event) (any, error) {
	if ev == nil || ev.class == nil {
		return nil, fault.BadRequest("event was not constructed by a service")
	}
	g := s.currentGraph()
	if g == nil {
		return nil, fault.ServiceConfiguration("service not started")
	}
	if err := s.readyFor(ev); err != nil {
		return nil, err
	}
	if !ev.state.CompareAndSwap(int32(EventValidated), int32(EventInjected)) {
		return nil, fault.Conflict("event %s already %s", ev.ID, ev.State())
	}

	began := s.now()

	params, err := s.buildParams(ctx, g, ev, ev.ID)
	if err != nil {
		return nil, s.eventFailed(ctx, g, ev, began, err)
	}
	ev.setDependencies(params)

	result, err := ev.class.Process(ctx, ev, s.things)
	if err != nil {
		return nil, s.eventFailed(ctx, g, ev, began, err)
	}

	ev.state.Store(int32(EventProcessed))
	s.log.Append(ev)
	s.observer.EventProcessed(ev.Name(), s.now().Sub(began), nil)

	if l := s.eventLogger(ctx, g, ev); l != nil {
		l.Info().Str("event_id", ev.ID).Str("event", ev.Name()).Msg("event processed")
	}
	s.logger.Debug().Str("event_id", ev.ID).Str("event", ev.Name()).Msg("event processed")
	return result, nil
}

// Dispatch constructs and processes an event in one step.
func (s *Service) Dispatch(ctx context.Context, name string, payload map[string]any) (*Event, any, error) {
	ev, err := s.NewEvent(name, payload)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.ProcessEvent(ctx, ev)
	return ev, result, err
}

func (s *Service) eventFailed(ctx context.Context, g *depgraph.Graph[Module], ev *Event, began time.Time, err error) error {
	ev.state.Store(int32(EventFailed))
	s.observer.EventProcessed(ev.Name(), s.now().Sub(began), err)
	if l := s.eventLogger(ctx, g, ev); l != nil {
		l.Warn().Err(err).Str("event_id", ev.ID).Str("event", ev.Name()).Msg("event processing failed")
	}
	s.logger.Debug().Err(err).Str("event_id", ev.ID).Str("event", ev.Name()).Msg("event processing failed")
	return err
}

// eventLogger returns a logger scoped to ev from the logger module, reusing
// the injected one when the event declared it. A logger module that has not
// started yet is skipped. Failures are ignored: logging never changes an
// event's outcome.
func (s *Service) eventLogger(ctx context.Context, g *depgraph.Graph[Module], ev *Event) *zerolog.Logger {
	v, ok := ev.Dependency(LoggerName)
	if !ok {
		provider, err := g.NodeData(LoggerName)
		if err != nil || !s.isStarted(LoggerName) {
			return nil
		}
		v, err = provider.Expose(ctx, ev, ev.ID)
		if err != nil {
			s.logger.Debug().Err(err).Str("event_id", ev.ID).Msg("logger module unavailable")
			return nil
		}
	}
	switch l := v.(type) {
	case zerolog.Logger:
		return &l
	case *zerolog.Logger:
		return l
	}
	return nil
}
