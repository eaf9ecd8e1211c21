package service

import (
	"context"

	"github.com/ComplyCloud/brane/core/depgraph"
	"github.com/ComplyCloud/brane/core/fault"
)

// Start resolves the dependency graph and starts every module in order, one
// at a time. Cycles and unknown dependencies are reported before any module
// starts. The first module error aborts startup, leaves the service failed,
// and is returned unchanged. Modules already started are not stopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateCreated {
		st := s.state
		s.mu.Unlock()
		return fault.ServiceConfiguration("service already %s", st)
	}
	s.state = StateStarting
	modules := append([]Module(nil), s.modules...)
	s.mu.Unlock()

	began := s.now()

	// Planning and publishing the graph happen under the lock AddEvent
	// holds, so every event class is either scanned here or checked
	// against the published graph.
	s.mu.Lock()
	g, order, err := s.plan(modules)
	if err != nil {
		s.state = StateFailed
		s.mu.Unlock()
		s.logger.Error().Err(err).Msg("dependency resolution failed")
		return err
	}
	s.graph = g
	s.order = order
	s.mu.Unlock()

	s.logger.Debug().Strs("order", order).Msg("module start order resolved")

	for _, name := range order {
		if err := s.startModule(ctx, g, name); err != nil {
			s.setState(StateFailed)
			return err
		}
	}

	s.setState(StateRunning)
	s.logger.Info().
		Int("modules", len(order)).
		Int("events", s.events.Len()).
		Dur("took", s.now().Sub(began)).
		Msg("service started")
	return nil
}

func (s *Service) startModule(ctx context.Context, g *depgraph.Graph[Module], name string) error {
	m, err := g.NodeData(name)
	if err != nil {
		return err
	}

	began := s.now()
	params, err := s.buildParams(ctx, g, m, "")
	if err == nil {
		err = m.Start(ctx, params)
	}
	took := s.now().Sub(began)
	s.observer.ModuleStarted(name, took, err)

	if err != nil {
		s.logger.Error().Err(err).Str("module", name).Msg("module failed to start")
		return err
	}
	s.mu.Lock()
	s.started[name] = true
	s.mu.Unlock()

	s.logger.Debug().Str("module", name).Dur("took", took).Msg("module started")
	return nil
}

func (s *Service) isStarted(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started[name]
}

// readyFor reports whether ev can be processed now. A running service
// accepts every event. While starting, only events whose module
// dependencies have already started are accepted, so no provider exposes
// anything before its own Start. A failed service accepts nothing.
func (s *Service) readyFor(ev *Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.state {
	case StateRunning:
		return nil
	case StateFailed:
		return fault.ServiceConfiguration("service failed to start")
	case StateStarting:
		if s.graph == nil {
			return fault.ServiceConfiguration("service not started")
		}
		for _, dep := range ev.Dependencies() {
			if IsReserved(dep) || s.started[dep] {
				continue
			}
			return fault.ServiceConfiguration("event %q depends on %q, which has not started", ev.Name(), dep)
		}
		return nil
	default:
		return fault.ServiceConfiguration("service not started")
	}
}
