package ioc_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
)

type reflectBase struct {
	Shared string
}

type reflectMiddle struct {
	reflectBase
}

type reflectLeaf struct {
	reflectMiddle

	Store   *reflectStore `inject:""`
	Named   string        `inject:"app.name" optional:"true"`
	Primary *reflectStore `inject:"" alias:"primary"`
	Plain   int
}

func (l *reflectLeaf) Start() error { return nil }
func (l *reflectLeaf) Stop() error  { return nil }

type reflectStore struct{}

type reflectNamer interface{ Name() string }

type reflectNamed struct{}

func (reflectNamed) Name() string { return "named" }

type reflectExplicit struct{}

type reflectDeclared struct {
	Value string
}

func newReflectDeclared(store *reflectStore, name string) *reflectDeclared {
	return &reflectDeclared{Value: name}
}

type reflectBadField struct{}

type reflectBadMethod struct{}

type reflectBadCtor struct{}

type reflectBadParam struct{}

type reflectTwoCtors struct{}

type reflectUnexported struct {
	hidden *reflectStore `inject:""`
}

type reflectCustom struct{}

func init() {
	ioc.Declare[reflectLeaf](
		ioc.Singleton(),
		ioc.TTL(time.Second),
		ioc.AutoRun("Stop", 2),
		ioc.AutoRun("Start", 1),
		ioc.ProvidedAs("leaf"),
		ioc.Refs(ioc.TypeOf[reflectExplicit](), "ref", "x"),
	)

	ioc.Declare[reflectExplicit](ioc.Extends(ioc.TypeOf[reflectMiddle]()))

	ioc.Declare[reflectDeclared](
		ioc.Constructor(newReflectDeclared),
		ioc.Param(1, "app.name"),
		ioc.InjectDefault("Value", "value", "fallback"),
	)

	ioc.Declare[reflectBadField](ioc.Inject("Missing", "x"))
	ioc.Declare[reflectBadMethod](ioc.AutoRun("Missing", 0))
	ioc.Declare[reflectBadCtor](ioc.Constructor(func() *reflectStore { return nil }))
	ioc.Declare[reflectBadParam](ioc.Param(0, "x"))
	ioc.Declare[reflectTwoCtors](
		ioc.Constructor(func() *reflectTwoCtors { return nil }),
		ioc.Constructor(func() *reflectTwoCtors { return nil }),
	)
	ioc.Declare[reflectCustom](ioc.Custom("Tagged", ioc.TargetClass, "", "red"))
}

func TestReflectStore_Create(t *testing.T) {
	store := ioc.NewReflectStore()

	r, err := store.Create(ioc.TypeOf[reflectLeaf]())
	require.NoError(t, err)

	t.Run("cached per class", func(t *testing.T) {
		again, err := store.Create(reflect.TypeOf(&reflectLeaf{}))
		require.NoError(t, err)
		assert.Same(t, r, again)
		assert.True(t, store.Has(ioc.TypeOf[reflectLeaf]()))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("class flags", func(t *testing.T) {
		assert.True(t, r.Singleton)
		assert.True(t, r.HasTTL)
		assert.Equal(t, time.Second, r.TTL)
		assert.False(t, r.HasConstructor())
	})

	t.Run("auto run sorted by order", func(t *testing.T) {
		require.Len(t, r.AutoRuns, 2)
		assert.Equal(t, "Start", r.AutoRuns[0].Method)
		assert.Equal(t, "Stop", r.AutoRuns[1].Method)
	})

	t.Run("provided tokens", func(t *testing.T) {
		require.Len(t, r.Provides, 1)
		assert.Equal(t, "leaf", r.Provides[0].Token)

		require.Len(t, r.Refs, 1)
		assert.Equal(t, "ref", r.Refs[0].Provide)
		assert.Equal(t, "x", r.Refs[0].Alias)
	})

	t.Run("extension chain from embedding", func(t *testing.T) {
		assert.Equal(t, []reflect.Type{ioc.TypeOf[reflectMiddle](), ioc.TypeOf[reflectBase]()}, r.Extends)
	})

	t.Run("tagged properties", func(t *testing.T) {
		require.Len(t, r.Properties, 3)

		store := r.Property("Store")
		require.NotNil(t, store)
		assert.True(t, store.Injected)
		assert.Nil(t, store.Token)
		assert.Equal(t, ioc.KeyOf(ioc.TypeOf[reflectStore]()), store.Key())

		named := r.Property("Named")
		require.NotNil(t, named)
		assert.Equal(t, "app.name", named.Token)
		assert.True(t, named.Optional)

		primary := r.Property("Primary")
		require.NotNil(t, primary)
		assert.Equal(t, ioc.KeyOf(ioc.TypeOf[reflectStore](), "primary"), primary.Key())

		assert.Nil(t, r.Property("Plain"))
	})

	t.Run("annotation names", func(t *testing.T) {
		assert.True(t, r.HasAnnotation(ioc.AnnotationAutoRun))
		assert.False(t, r.HasAnnotation(ioc.AnnotationConstructor))

		names := r.AnnotationNames()
		assert.Equal(t, []string{
			ioc.AnnotationSingleton,
			ioc.AnnotationTTL,
			ioc.AnnotationAutoRun,
			ioc.AnnotationProvidedAs,
			ioc.AnnotationRefs,
			ioc.AnnotationInject,
		}, names)

		for _, a := range r.ClassAnnotations() {
			assert.Equal(t, ioc.TargetClass, a.Target)
		}
		assert.Len(t, r.AnnotationsFor(ioc.TargetProperty), 3)
		assert.Len(t, r.AnnotationsFor(ioc.TargetMethod), 2)
		assert.Len(t, r.Methods["Start"].Annotations, 1)
	})
}

func TestReflectStore_Declarations(t *testing.T) {
	store := ioc.NewReflectStore()

	r, err := store.Create(ioc.TypeOf[reflectDeclared]())
	require.NoError(t, err)
	assert.True(t, r.HasConstructor())

	params, err := r.Params()
	require.NoError(t, err)
	require.Len(t, params, 2)

	assert.Nil(t, params[0].Token)
	assert.Equal(t, ioc.KeyOf(ioc.TypeOf[reflectStore]()), params[0].Key())
	assert.Equal(t, "app.name", params[1].Token)

	value := r.Property("Value")
	require.NotNil(t, value)
	assert.Equal(t, "value", value.Token)
	assert.Equal(t, "fallback", value.Default)
}

func TestReflectStore_Extends(t *testing.T) {
	store := ioc.NewReflectStore()

	r, err := store.Create(ioc.TypeOf[reflectExplicit]())
	require.NoError(t, err)
	assert.Equal(t, []reflect.Type{ioc.TypeOf[reflectMiddle](), ioc.TypeOf[reflectBase]()}, r.Extends)

	tests := []struct {
		name  string
		token ioc.Token
		base  ioc.Token
		want  bool
	}{
		{"same class", ioc.TypeOf[reflectLeaf](), ioc.TypeOf[reflectLeaf](), true},
		{"embedded parent", ioc.TypeOf[reflectLeaf](), ioc.TypeOf[reflectMiddle](), true},
		{"embedded grandparent", ioc.TypeOf[reflectLeaf](), ioc.TypeOf[reflectBase](), true},
		{"declared base", ioc.TypeOf[reflectExplicit](), ioc.TypeOf[reflectBase](), true},
		{"reverse", ioc.TypeOf[reflectBase](), ioc.TypeOf[reflectLeaf](), false},
		{"unrelated", ioc.TypeOf[reflectStore](), ioc.TypeOf[reflectBase](), false},
		{"interface", ioc.TypeOf[reflectNamed](), ioc.TypeOf[reflectNamer](), true},
		{"interface not implemented", ioc.TypeOf[reflectStore](), ioc.TypeOf[reflectNamer](), false},
		{"name token", "leaf", ioc.TypeOf[reflectBase](), false},
		{"nil base", ioc.TypeOf[reflectLeaf](), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.IsExtends(tt.token, tt.base))
		})
	}
}

func TestReflectStore_InvalidAnnotations(t *testing.T) {
	tests := []struct {
		name       string
		token      ioc.Token
		annotation string
		params     bool
	}{
		{name: "unknown field", token: ioc.TypeOf[reflectBadField](), annotation: ioc.AnnotationInject},
		{name: "unknown method", token: ioc.TypeOf[reflectBadMethod](), annotation: ioc.AnnotationAutoRun},
		{name: "constructor of another class", token: ioc.TypeOf[reflectBadCtor](), annotation: ioc.AnnotationConstructor},
		{name: "two constructors", token: ioc.TypeOf[reflectTwoCtors](), annotation: ioc.AnnotationConstructor},
		{name: "unexported tagged field", token: ioc.TypeOf[reflectUnexported](), annotation: ioc.AnnotationInject},
		{name: "param without constructor", token: ioc.TypeOf[reflectBadParam](), annotation: ioc.AnnotationParam, params: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := ioc.NewReflectStore()

			r, err := store.Create(tt.token)
			if tt.params {
				require.NoError(t, err)
				_, err = r.Params()
			}

			require.Error(t, err)
			var annErr ioc.InvalidAnnotationError
			require.ErrorAs(t, err, &annErr)
			assert.Equal(t, tt.annotation, annErr.Annotation)
		})
	}

	t.Run("not a class", func(t *testing.T) {
		_, err := ioc.NewReflectStore().Create("name")
		assert.ErrorIs(t, err, ioc.ErrNotAClass)
	})
}

func TestReflectStore_RegisterParser(t *testing.T) {
	store := ioc.NewReflectStore()
	store.RegisterParser("Tagged", func(r *ioc.TypeReflect, a ioc.Annotation) error {
		r.Provides = append(r.Provides, ioc.ProvideMeta{Token: a.Metadata})
		return nil
	})

	r, err := store.Create(ioc.TypeOf[reflectCustom]())
	require.NoError(t, err)
	require.Len(t, r.Provides, 1)
	assert.Equal(t, "red", r.Provides[0].Token)

	c, err := ioc.New()
	require.NoError(t, err)
	defer c.Close()

	c.Reflects().RegisterParser("Tagged", func(r *ioc.TypeReflect, a ioc.Annotation) error {
		r.Provides = append(r.Provides, ioc.ProvideMeta{Token: a.Metadata})
		return nil
	})
	require.NoError(t, c.RegisterType(ioc.TypeOf[reflectCustom]()))

	v, err := c.Get("red")
	require.NoError(t, err)
	assert.IsType(t, &reflectCustom{}, v)

	owner := c.Reflects()
	got, ok := owner.Get(ioc.TypeOf[reflectCustom]())
	require.True(t, ok)
	assert.Same(t, c.Injector, got.Injector())
}

func TestDeclarations(t *testing.T) {
	decls := ioc.Declarations(ioc.TypeOf[reflectLeaf]())
	assert.Len(t, decls, 6)

	decls[0].Name = "mutated"
	assert.Equal(t, ioc.AnnotationSingleton, ioc.Declarations(ioc.TypeOf[reflectLeaf]())[0].Name)

	assert.Equal(t, decls[1:], ioc.Declarations(reflect.TypeOf(&reflectLeaf{}))[1:])
	assert.Empty(t, ioc.Declarations(ioc.TypeOf[reflectStore]()))
}
