package service

import (
	"context"

	"github.com/ComplyCloud/brane/core/depgraph"
	"github.com/ComplyCloud/brane/core/fault"
)

// internal resolves a reserved dependency name.
func (s *Service) internal(name string) (any, bool) {
	switch name {
	case EventsDependency:
		return s.events, true
	case ProcessEventDependency:
		return Processor(s.ProcessEvent), true
	case ThingsDependency:
		return s.things, true
	}
	return nil, false
}

// buildParams resolves every dependency consumer declares. Reserved names
// map to the service's own registries; any other name is answered by the
// provider module's Expose, keyed by the provider's name. Expose errors are
// returned as is.
func (s *Service) buildParams(ctx context.Context, g *depgraph.Graph[Module], consumer Consumer, scope string) (Params, error) {
	deps := consumer.Dependencies()
	params := make(Params, len(deps))
	for _, name := range deps {
		if v, ok := s.internal(name); ok {
			params[name] = v
			continue
		}
		provider, err := g.NodeData(name)
		if err != nil {
			return nil, fault.UnknownDependency(name, consumer.Name(), err)
		}
		v, err := provider.Expose(ctx, consumer, scope)
		if err != nil {
			return nil, err
		}
		params[provider.Name()] = v
	}
	return params, nil
}
