package ioc_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

type resolutionService struct {
	Name string `inject:"resolution.name" optional:"true"`
}

func TestResolveGeneric(t *testing.T) {
	c := testutil.NewContainer(t)
	c.RegisterValue("resolution.name", "generic")

	svc, err := ioc.Resolve[*resolutionService](c.Injector)
	require.NoError(t, err)
	assert.Equal(t, "generic", svc.Name)
	assert.True(t, c.IsRegistered(ioc.TypeOf[resolutionService]()))

	override, err := ioc.Resolve[*resolutionService](c.Injector, ioc.Value("resolution.name", "adhoc"))
	require.NoError(t, err)
	assert.Equal(t, "adhoc", override.Name)
	assert.NotSame(t, svc, override)

	_, err = ioc.Resolve[svcAnimal](c.Injector)
	assert.True(t, ioc.IsNotFound(err))

	_, err = ioc.Resolve[*resolutionService](nil)
	assert.ErrorIs(t, err, ioc.ErrInjectorClosed)
}

func TestResolveToken(t *testing.T) {
	c := testutil.NewContainer(t)
	c.RegisterValue("port", 8080)
	c.RegisterValue("svc", &resolutionService{Name: "value"})

	tests := []struct {
		name    string
		resolve func() (any, error)
		want    any
		check   func(t *testing.T, err error)
	}{
		{
			name:    "value",
			resolve: func() (any, error) { return ioc.ResolveToken[int](c.Injector, "port") },
			want:    8080,
		},
		{
			name:    "ad hoc provider",
			resolve: func() (any, error) { return ioc.ResolveToken[int](c.Injector, "port", ioc.Value("port", 1)) },
			want:    1,
		},
		{
			name: "pointer to struct",
			resolve: func() (any, error) {
				svc, err := ioc.ResolveToken[resolutionService](c.Injector, "svc")
				return svc.Name, err
			},
			want: "value",
		},
		{
			name:    "type mismatch",
			resolve: func() (any, error) { return ioc.ResolveToken[string](c.Injector, "port") },
			check: func(t *testing.T, err error) {
				mismatch := testutil.AssertErrorType[ioc.TypeMismatchError](t, err)
				assert.Equal(t, reflect.TypeOf(""), mismatch.Expected)
				assert.Equal(t, reflect.TypeOf(0), mismatch.Actual)
			},
		},
		{
			name:    "missing",
			resolve: func() (any, error) { return ioc.ResolveToken[int](c.Injector, "missing") },
			check: func(t *testing.T, err error) {
				assert.True(t, ioc.IsNotFound(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resolve()
			if tt.check != nil {
				require.Error(t, err)
				tt.check(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMustResolve(t *testing.T) {
	c := testutil.NewContainer(t)

	assert.NotPanics(t, func() {
		svc := ioc.MustResolve[*resolutionService](c.Injector)
		assert.NotNil(t, svc)
	})

	testutil.AssertPanicsWithError(t, ioc.ErrNotFound, func() {
		ioc.MustResolve[svcAnimal](c.Injector)
	})
}
