package ioc_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/event"
	"github.com/junioryono/ioc/internal/testutil"
)

type modRepo struct{}

type modService struct {
	Repo *modRepo `inject:""`
	Name string   `inject:"mod.name"`
}

type modHandler struct {
	Service *modService `inject:""`
}

var (
	modDatabase = ioc.NewModule("database", ioc.TypeOf[modRepo]())

	modApp = ioc.NewModule("app",
		modDatabase,
		ioc.TypeOf[modHandler](),
		ioc.Value("mod.name", "app"),
		ioc.TypeOf[modService](),
	)
)

func TestNewModule(t *testing.T) {
	m := ioc.NewModule("m", nil, modDatabase, ioc.TypeOf[modRepo](), ioc.Value("x", 1))
	assert.Equal(t, "m", m.Name)
	assert.Equal(t, []*ioc.Module{modDatabase}, m.Imports)
	assert.Len(t, m.Types, 2)
}

func TestContainer_Use(t *testing.T) {
	t.Run("dependencies first", func(t *testing.T) {
		c := testutil.NewContainer(t)

		classes, err := c.Use(modApp)
		require.NoError(t, err)
		assert.Equal(t, []reflect.Type{
			ioc.TypeOf[modRepo](),
			ioc.TypeOf[modService](),
			ioc.TypeOf[modHandler](),
		}, classes)

		h := testutil.AssertResolvable[*modHandler](t, c.Injector)
		require.NotNil(t, h.Service)
		assert.Equal(t, "app", h.Service.Name)
		assert.NotNil(t, h.Service.Repo)
	})

	t.Run("shared imports are registered once", func(t *testing.T) {
		c := testutil.NewContainer(t)
		other := ioc.NewModule("other", modDatabase)

		classes, err := c.Use(modApp, other)
		require.NoError(t, err)
		assert.Len(t, classes, 3)

		classes, err = c.Use(modApp)
		require.NoError(t, err)
		assert.Empty(t, classes, "registered classes are skipped")
	})

	t.Run("loaded events", func(t *testing.T) {
		logger := &testutil.RecordingLogger{}
		c := testutil.NewContainer(t, ioc.WithLogger(logger))

		_, err := c.Use(modApp)
		require.NoError(t, err)

		loaded := testutil.EventsOf[*event.ModuleLoaded](logger)
		require.Len(t, loaded, 2)
		assert.Equal(t, "database", loaded[0].Name)
		assert.Equal(t, []string{"ioc_test.modRepo"}, loaded[0].TypeNames)
		assert.Equal(t, "app", loaded[1].Name)
		assert.Equal(t, []string{"ioc_test.modService", "ioc_test.modHandler"}, loaded[1].TypeNames)
	})

	t.Run("failures do not stop other items", func(t *testing.T) {
		c := testutil.NewContainer(t)
		broken := ioc.NewModule("broken", ioc.TypeOf[int](), 42, ioc.TypeOf[modRepo]())

		classes, err := c.Use(broken)
		require.Error(t, err)
		assert.Equal(t, []reflect.Type{ioc.TypeOf[modRepo]()}, classes)

		modErr := testutil.AssertErrorType[ioc.ModuleError](t, err)
		assert.Equal(t, "broken", modErr.Module)
		assert.ErrorIs(t, err, ioc.ErrNotAClass)
		assert.ErrorIs(t, err, ioc.ErrInvalidProvider)
	})
}

func TestContainer_Load(t *testing.T) {
	t.Run("registers in loader order", func(t *testing.T) {
		c := testutil.NewContainer(t)

		classes, err := c.Load(context.Background(),
			func(context.Context) (*ioc.Module, error) { return modDatabase, nil },
			nil,
			func(context.Context) (*ioc.Module, error) {
				return ioc.NewModule("late", ioc.TypeOf[svcRock]()), nil
			},
		)
		require.NoError(t, err)
		assert.Equal(t, []reflect.Type{ioc.TypeOf[modRepo](), ioc.TypeOf[svcRock]()}, classes)
	})

	t.Run("a failing loader registers nothing", func(t *testing.T) {
		c := testutil.NewContainer(t)

		_, err := c.Load(context.Background(),
			func(context.Context) (*ioc.Module, error) { return modDatabase, nil },
			func(context.Context) (*ioc.Module, error) { return nil, testutil.ErrIntentional },
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, testutil.ErrIntentional)

		modErr := testutil.AssertErrorType[ioc.ModuleError](t, err)
		assert.Equal(t, "loader #1", modErr.Module)
		assert.False(t, c.IsRegistered(ioc.TypeOf[modRepo]()))
	})

	t.Run("loaders see a cancelled context", func(t *testing.T) {
		c := testutil.NewContainer(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Load(ctx, func(ctx context.Context) (*ioc.Module, error) {
			return nil, ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
