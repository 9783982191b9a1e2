package graph

import (
	"fmt"
	"strings"
)

// CircularDependencyError represents a dependency cycle between classes.
type CircularDependencyError struct {
	Node NodeKey
	Path []NodeKey
}

func (e *CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	path := e.Path
	if len(path) == 0 {
		path = []NodeKey{e.Node}
	}

	for _, node := range path {
		b.WriteString(fmt.Sprintf("    %s\n", node.String()))
		b.WriteString("      ↓\n")
	}
	b.WriteString(fmt.Sprintf("    %s (cycle)\n", path[0].String()))

	return b.String()
}
