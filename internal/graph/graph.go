// Package graph orders classes by their declared dependencies.
package graph

import (
	"reflect"
	"sync"

	"github.com/junioryono/ioc/internal/typecache"
)

// NodeKey uniquely identifies a node in the graph.
type NodeKey struct {
	Type reflect.Type
}

// String returns a string representation of the node key.
func (k NodeKey) String() string {
	return typecache.Format(k.Type)
}

// Node represents a class in the dependency graph.
type Node struct {
	Key NodeKey

	// Order is the insertion position, used to break ties deterministically.
	Order int

	// Dependencies are the classes this node needs registered first.
	Dependencies []NodeKey
}

// DependencyGraph manages the dependency relationships between classes.
// Only edges between nodes present in the graph take part in ordering.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[NodeKey]*Node
	order []NodeKey
}

// NewDependencyGraph creates a new dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[NodeKey]*Node),
	}
}

// AddNode adds t to the graph, or appends deps to an existing node.
func (g *DependencyGraph) AddNode(t reflect.Type, deps ...reflect.Type) {
	if t == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := NodeKey{Type: t}
	node, exists := g.nodes[key]
	if !exists {
		node = &Node{Key: key, Order: len(g.order)}
		g.nodes[key] = node
		g.order = append(g.order, key)
	}

	for _, dep := range deps {
		if dep == nil || dep == t {
			continue
		}

		depKey := NodeKey{Type: dep}
		duplicate := false
		for _, existing := range node.Dependencies {
			if existing == depKey {
				duplicate = true
				break
			}
		}
		if !duplicate {
			node.Dependencies = append(node.Dependencies, depKey)
		}
	}
}

// HasNode checks if a node exists in the graph.
func (g *DependencyGraph) HasNode(t reflect.Type) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.nodes[NodeKey{Type: t}]
	return exists
}

// GetDependencies returns the direct dependencies of a node.
func (g *DependencyGraph) GetDependencies(t reflect.Type) []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, exists := g.nodes[NodeKey{Type: t}]; exists {
		result := make([]NodeKey, len(node.Dependencies))
		copy(result, node.Dependencies)
		return result
	}

	return nil
}

// Size returns the number of nodes in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

// TopologicalSort returns the node types with dependencies first. Nodes
// without an ordering constraint keep their insertion order. When the graph
// contains a cycle the error is a *CircularDependencyError.
func (g *DependencyGraph) TopologicalSort() ([]reflect.Type, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[NodeKey]int, len(g.nodes))
	result := make([]reflect.Type, 0, len(g.nodes))
	var stack []NodeKey

	var visit func(key NodeKey) error
	visit = func(key NodeKey) error {
		node, ok := g.nodes[key]
		if !ok {
			return nil
		}

		switch state[key] {
		case visited:
			return nil
		case visiting:
			return &CircularDependencyError{Node: key, Path: cyclePath(stack, key)}
		}

		state[key] = visiting
		stack = append(stack, key)

		for _, dep := range node.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[key] = visited
		result = append(result, key.Type)
		return nil
	}

	for _, key := range g.order {
		if err := visit(key); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// DetectCycles checks if the graph contains any cycles.
func (g *DependencyGraph) DetectCycles() error {
	_, err := g.TopologicalSort()
	return err
}

// Types returns the node types in insertion order.
func (g *DependencyGraph) Types() []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	types := make([]reflect.Type, len(g.order))
	for i, key := range g.order {
		types[i] = key.Type
	}
	return types
}

// Clear removes all nodes from the graph.
func (g *DependencyGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[NodeKey]*Node)
	g.order = nil
}

// cyclePath returns the portion of stack starting at key.
func cyclePath(stack []NodeKey, key NodeKey) []NodeKey {
	for i, k := range stack {
		if k == key {
			path := make([]NodeKey, len(stack)-i)
			copy(path, stack[i:])
			return path
		}
	}

	return []NodeKey{key}
}
