// Package depgraph implements a directed dependency graph with
// deterministic topological ordering.
//
// An edge from A to B means A depends on B, so B is ordered before A.
package depgraph

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNodeNotFound is matched by every NodeNotFoundError.
	ErrNodeNotFound = errors.New("node not found")
	// ErrCycle is matched by every CycleError.
	ErrCycle = errors.New("dependency cycle")
)

// NodeNotFoundError is returned when an operation names a node that was
// never added.
type NodeNotFoundError struct {
	Name string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.Name)
}

func (e *NodeNotFoundError) Is(target error) bool { return target == ErrNodeNotFound }

// CycleError reports a dependency cycle. Path starts and ends with the same
// node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle found: " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

type node[T any] struct {
	name string
	data T
	deps []string
	// dependents is kept for reverse lookups only; ordering never uses it.
	dependents []string
}

// Graph is a dependency graph whose nodes carry a payload of type T.
// It is safe for concurrent use.
type Graph[T any] struct {
	mu    sync.RWMutex
	nodes map[string]*node[T]
	order []string
}

// New creates an empty graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{nodes: make(map[string]*node[T])}
}

// AddNode adds a node. Adding an existing name replaces its payload and
// keeps its edges and insertion position.
func (g *Graph[T]) AddNode(name string, data T) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n, ok := g.nodes[name]; ok {
		n.data = data
		return
	}
	g.nodes[name] = &node[T]{name: name, data: data}
	g.order = append(g.order, name)
}

// HasNode reports whether name was added.
func (g *Graph[T]) HasNode(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[name]
	return ok
}

// NodeData returns the payload of name.
func (g *Graph[T]) NodeData(name string) (T, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[name]
	if !ok {
		var zero T
		return zero, &NodeNotFoundError{Name: name}
	}
	return n.data, nil
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Nodes returns node names in insertion order.
func (g *Graph[T]) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// AddDependency records that from depends on to. Both nodes must exist.
// Repeated edges are ignored. A self-dependency is accepted here and
// reported as a cycle by OverallOrder.
func (g *Graph[T]) AddDependency(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.nodes[from]
	if !ok {
		return &NodeNotFoundError{Name: from}
	}
	dst, ok := g.nodes[to]
	if !ok {
		return &NodeNotFoundError{Name: to}
	}
	for _, d := range src.deps {
		if d == to {
			return nil
		}
	}
	src.deps = append(src.deps, to)
	dst.dependents = append(dst.dependents, from)
	return nil
}

// DirectDependenciesOf returns the names name depends on directly, in
// declaration order.
func (g *Graph[T]) DirectDependenciesOf(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[name]
	if !ok {
		return nil, &NodeNotFoundError{Name: name}
	}
	out := make([]string, len(n.deps))
	copy(out, n.deps)
	return out, nil
}

// DependenciesOf returns every node name transitively depends on, ordered
// so that each appears after its own dependencies.
func (g *Graph[T]) DependenciesOf(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[name]; !ok {
		return nil, &NodeNotFoundError{Name: name}
	}
	w := g.newWalker()
	if err := w.visit(name); err != nil {
		return nil, err
	}
	// The walk ends with name itself.
	return w.out[:len(w.out)-1], nil
}

// DependantsOf returns every node that transitively depends on name.
func (g *Graph[T]) DependantsOf(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[name]; !ok {
		return nil, &NodeNotFoundError{Name: name}
	}
	seen := map[string]bool{name: true}
	queue := []string{name}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range g.nodes[cur].dependents {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
			queue = append(queue, d)
		}
	}
	return out, nil
}

// OverallOrder returns every node exactly once, each after all of the nodes
// it transitively depends on. Roots are visited in insertion order and
// dependencies in declaration order, so the result is stable for a given
// sequence of AddNode and AddDependency calls. A cycle anywhere in the
// graph yields a *CycleError and no order.
func (g *Graph[T]) OverallOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	w := g.newWalker()
	for _, name := range g.order {
		if err := w.visit(name); err != nil {
			return nil, err
		}
	}
	return w.out, nil
}

type walker[T any] struct {
	g       *Graph[T]
	done    map[string]bool
	onStack map[string]bool
	stack   []string
	out     []string
}

func (g *Graph[T]) newWalker() *walker[T] {
	return &walker[T]{
		g:       g,
		done:    make(map[string]bool),
		onStack: make(map[string]bool),
	}
}

func (w *walker[T]) visit(name string) error {
	if w.done[name] {
		return nil
	}
	if w.onStack[name] {
		return &CycleError{Path: w.cyclePath(name)}
	}

	w.onStack[name] = true
	w.stack = append(w.stack, name)

	for _, dep := range w.g.nodes[name].deps {
		if err := w.visit(dep); err != nil {
			return err
		}
	}

	w.stack = w.stack[:len(w.stack)-1]
	delete(w.onStack, name)
	w.done[name] = true
	w.out = append(w.out, name)
	return nil
}

func (w *walker[T]) cyclePath(name string) []string {
	for i, n := range w.stack {
		if n == name {
			path := make([]string, 0, len(w.stack)-i+1)
			path = append(path, w.stack[i:]...)
			return append(path, name)
		}
	}
	return []string{name, name}
}
