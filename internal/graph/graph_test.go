package graph_test

import (
	"reflect"
	"sync"
	"testing"

	"github.com/junioryono/ioc/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	Config     struct{}
	Database   struct{}
	Repository struct{}
	Service    struct{}
	Handler    struct{}
)

var (
	configType     = reflect.TypeOf(Config{})
	databaseType   = reflect.TypeOf(Database{})
	repositoryType = reflect.TypeOf(Repository{})
	serviceType    = reflect.TypeOf(Service{})
	handlerType    = reflect.TypeOf(Handler{})
)

func TestTopologicalSort_DependencyOrder(t *testing.T) {
	t.Run("dependencies first", func(t *testing.T) {
		g := graph.NewDependencyGraph()
		g.AddNode(handlerType, serviceType)
		g.AddNode(serviceType, repositoryType)
		g.AddNode(repositoryType, databaseType)
		g.AddNode(databaseType, configType)
		g.AddNode(configType)

		sorted, err := g.TopologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []reflect.Type{configType, databaseType, repositoryType, serviceType, handlerType}, sorted)
	})

	t.Run("independent nodes keep insertion order", func(t *testing.T) {
		g := graph.NewDependencyGraph()
		g.AddNode(serviceType)
		g.AddNode(configType)
		g.AddNode(handlerType)

		sorted, err := g.TopologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []reflect.Type{serviceType, configType, handlerType}, sorted)
	})

	t.Run("edges to unknown nodes are ignored", func(t *testing.T) {
		g := graph.NewDependencyGraph()
		g.AddNode(serviceType, databaseType)

		sorted, err := g.TopologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []reflect.Type{serviceType}, sorted)
	})

	t.Run("self edges are dropped", func(t *testing.T) {
		g := graph.NewDependencyGraph()
		g.AddNode(serviceType, serviceType)
		assert.Empty(t, g.GetDependencies(serviceType))
		assert.NoError(t, g.DetectCycles())
	})
}

func TestTopologicalSort_Cycle(t *testing.T) {
	g := graph.NewDependencyGraph()
	g.AddNode(serviceType, repositoryType)
	g.AddNode(repositoryType, databaseType)
	g.AddNode(databaseType, serviceType)

	_, err := g.TopologicalSort()
	require.Error(t, err)

	var cycleErr *graph.CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []graph.NodeKey{{Type: serviceType}, {Type: repositoryType}, {Type: databaseType}}, cycleErr.Path)
	assert.Contains(t, err.Error(), "graph_test.Service (cycle)")
	assert.Error(t, g.DetectCycles())
}

func TestDependencyGraph_AddNode(t *testing.T) {
	g := graph.NewDependencyGraph()
	g.AddNode(nil)
	assert.Equal(t, 0, g.Size())

	g.AddNode(serviceType, databaseType, nil)
	g.AddNode(serviceType, databaseType, configType)

	assert.True(t, g.HasNode(serviceType))
	assert.False(t, g.HasNode(databaseType))
	assert.Equal(t, []graph.NodeKey{{Type: databaseType}, {Type: configType}}, g.GetDependencies(serviceType))
	assert.Nil(t, g.GetDependencies(handlerType))
	assert.Equal(t, []reflect.Type{serviceType}, g.Types())

	g.Clear()
	assert.Equal(t, 0, g.Size())
}

func TestDependencyGraph_ConcurrentOperations(t *testing.T) {
	g := graph.NewDependencyGraph()
	types := []reflect.Type{configType, databaseType, repositoryType, serviceType, handlerType}

	var wg sync.WaitGroup
	for i := range types {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if idx == 0 {
				g.AddNode(types[idx])
				return
			}
			g.AddNode(types[idx], types[idx-1])
		}(i)
	}
	wg.Wait()

	sorted, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, types, sorted)
}

func TestNodeKey_String(t *testing.T) {
	assert.Equal(t, "graph_test.Service", graph.NodeKey{Type: serviceType}.String())
	assert.Equal(t, "<nil>", graph.NodeKey{}.String())
}
