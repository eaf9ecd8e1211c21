package service

import (
	"github.com/ComplyCloud/brane/core/depgraph"
	"github.com/ComplyCloud/brane/core/fault"
)

// buildGraph adds every module as a node before adding any edge, so a
// dependency may name a module registered after its consumer. Reserved
// names never become nodes or edges.
func buildGraph(modules []Module) (*depgraph.Graph[Module], error) {
	g := depgraph.New[Module]()
	for _, m := range modules {
		g.AddNode(m.Name(), m)
	}
	for _, m := range modules {
		for _, dep := range m.Dependencies() {
			if IsReserved(dep) {
				continue
			}
			if err := g.AddDependency(m.Name(), dep); err != nil {
				return nil, fault.UnknownDependency(dep, m.Name(), err)
			}
		}
	}
	return g, nil
}

func checkDependencies(g *depgraph.Graph[Module], consumer string, deps []string) error {
	for _, dep := range deps {
		if IsReserved(dep) || g.HasNode(dep) {
			continue
		}
		return fault.UnknownDependency(dep, consumer, &depgraph.NodeNotFoundError{Name: dep})
	}
	return nil
}

// plan builds the graph, orders it and checks every registered event class.
func (s *Service) plan(modules []Module) (*depgraph.Graph[Module], []string, error) {
	g, err := buildGraph(modules)
	if err != nil {
		return nil, nil, err
	}
	order, err := g.OverallOrder()
	if err != nil {
		return nil, nil, fault.Wrap(fault.KindServiceConfiguration, err, "cannot order modules")
	}
	for _, class := range s.events.list() {
		if err := checkDependencies(g, class.Name, class.Dependencies); err != nil {
			return nil, nil, err
		}
	}
	return g, order, nil
}

// Plan resolves the module start order and checks every dependency without
// starting anything.
func (s *Service) Plan() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, order, err := s.plan(append([]Module(nil), s.modules...))
	return order, err
}

// ModuleInfo describes a module's place in the dependency graph. Reserved
// dependencies are not listed.
type ModuleInfo struct {
	Name string `json:"name"`
	// Dependencies are the modules it names directly.
	Dependencies []string `json:"dependencies"`
	// Requires is every module it transitively needs, in start order.
	Requires []string `json:"requires"`
	// Dependants are the modules that transitively need it.
	Dependants []string `json:"dependants"`
	Started    bool     `json:"started"`
}

// Describe returns a ModuleInfo per module in start order. Before Start the
// graph is resolved on the fly.
func (s *Service) Describe() ([]ModuleInfo, error) {
	s.mu.RLock()
	g, order := s.graph, s.order
	modules := append([]Module(nil), s.modules...)
	started := make(map[string]bool, len(s.started))
	for name := range s.started {
		started[name] = true
	}
	s.mu.RUnlock()

	if g == nil {
		var err error
		if g, err = buildGraph(modules); err != nil {
			return nil, err
		}
		if order, err = g.OverallOrder(); err != nil {
			return nil, fault.Wrap(fault.KindServiceConfiguration, err, "cannot order modules")
		}
	}

	out := make([]ModuleInfo, 0, len(order))
	for _, name := range order {
		direct, err := g.DirectDependenciesOf(name)
		if err != nil {
			return nil, err
		}
		requires, err := g.DependenciesOf(name)
		if err != nil {
			return nil, err
		}
		dependants, err := g.DependantsOf(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ModuleInfo{
			Name:         name,
			Dependencies: nonNil(direct),
			Requires:     nonNil(requires),
			Dependants:   nonNil(dependants),
			Started:      started[name],
		})
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
