package ioc_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

type errSubject struct{}

func TestSentinelErrors(t *testing.T) {
	sentinelErrors := []struct {
		err     error
		message string
	}{
		{ioc.ErrNotFound, "no provider found"},
		{ioc.ErrNilToken, "token cannot be nil"},
		{ioc.ErrMaxDepth, "maximum resolution depth exceeded"},
		{ioc.ErrNilResult, "constructor returned nil"},
		{ioc.ErrNotAClass, "type is not a class"},
		{ioc.ErrInvalidHandler, "invalid handler reference"},
		{ioc.ErrInvalidProvider, "invalid provider"},
		{ioc.ErrInjectorClosed, "injector has been closed"},
	}

	for _, tt := range sentinelErrors {
		t.Run(tt.message, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestNotFoundError(t *testing.T) {
	subject := reflect.TypeOf(errSubject{})

	tests := []struct {
		name     string
		err      ioc.NotFoundError
		contains []string
		excludes []string
	}{
		{
			name:     "named token",
			err:      ioc.NotFoundError{Key: ioc.KeyOf("Config")},
			contains: []string{`no provider for "Config"`},
			excludes: []string{"required by", "Regify"},
		},
		{
			name:     "with requester",
			err:      ioc.NotFoundError{Key: ioc.KeyOf("Config"), Requester: subject},
			contains: []string{"required by", "errSubject"},
		},
		{
			name:     "class token suggests regify",
			err:      ioc.NotFoundError{Key: ioc.KeyOf(subject)},
			contains: []string{"errSubject", "Regify"},
		},
		{
			name:     "aliased class token",
			err:      ioc.NotFoundError{Key: ioc.KeyOf(subject, "primary")},
			contains: []string{"[primary]"},
			excludes: []string{"Regify"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, msg, s)
			}
			assert.ErrorIs(t, tt.err, ioc.ErrNotFound)
			assert.True(t, ioc.IsNotFound(tt.err))
		})
	}
}

func TestWrappedErrors(t *testing.T) {
	subject := reflect.TypeOf(errSubject{})

	tests := []struct {
		name     string
		err      error
		cause    error
		contains string
	}{
		{
			name:     "registration",
			err:      ioc.RegistrationError{Type: subject, Operation: "register", Cause: testutil.ErrTest},
			cause:    testutil.ErrTest,
			contains: "failed to register",
		},
		{
			name:     "registration by key",
			err:      ioc.RegistrationError{Key: ioc.KeyOf("Config"), Operation: "bind", Cause: testutil.ErrTest},
			cause:    testutil.ErrTest,
			contains: `failed to bind "Config"`,
		},
		{
			name:     "invalid annotation",
			err:      ioc.InvalidAnnotationError{Type: subject, Annotation: "Inject", Member: "Field", Cause: testutil.ErrTest},
			cause:    testutil.ErrTest,
			contains: "errSubject.Field",
		},
		{
			name:     "handler",
			err:      ioc.HandlerError{Type: subject, Annotation: "Custom", Stage: ioc.StageRuntime, Phase: ioc.PhaseProperty, Cause: testutil.ErrTest},
			cause:    testutil.ErrTest,
			contains: "Custom handler",
		},
		{
			name:     "constructor",
			err:      ioc.ConstructorError{Type: subject, Cause: testutil.ErrConstructor},
			cause:    testutil.ErrConstructor,
			contains: "failed to construct",
		},
		{
			name:     "max depth",
			err:      ioc.MaxDepthError{Type: subject, Depth: 4},
			cause:    ioc.ErrMaxDepth,
			contains: "depth 4",
		},
		{
			name:     "module",
			err:      ioc.ModuleError{Module: "infra", Cause: testutil.ErrTest},
			cause:    testutil.ErrTest,
			contains: `module "infra"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.cause)
			assert.Contains(t, tt.err.Error(), tt.contains)
		})
	}
}

func TestConstructorPanicError(t *testing.T) {
	err := ioc.ConstructorPanicError{
		Type:  reflect.TypeOf(errSubject{}),
		Panic: "boom",
		Stack: []byte("goroutine 1"),
	}

	msg := err.Error()
	assert.Contains(t, msg, "panicked: boom")
	assert.Contains(t, msg, "OnInit")
	assert.Contains(t, msg, "Stack trace:")
	assert.Contains(t, msg, "goroutine 1")
}

func TestTypeMismatchError(t *testing.T) {
	err := ioc.TypeMismatchError{
		Expected: reflect.TypeOf(""),
		Actual:   reflect.TypeOf(0),
		Context:  "property Name of errSubject",
	}

	assert.Contains(t, err.Error(), "property Name of errSubject")
	assert.Contains(t, err.Error(), "expected string")
}

func TestDisposalError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := ioc.DisposalError{InjectorID: "root", Errors: []error{testutil.ErrDisposal}}

		assert.Contains(t, err.Error(), "injector root disposal failed")
		assert.ErrorIs(t, err, testutil.ErrDisposal)
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := ioc.DisposalError{
			InjectorID: "root",
			Errors:     []error{testutil.ErrDisposal, testutil.ErrAlreadyClosed},
		}

		assert.Contains(t, err.Error(), "2 errors")
		assert.Contains(t, err.Error(), "1. disposal error")
		assert.Contains(t, err.Error(), "2. already closed")
		assert.ErrorIs(t, err, testutil.ErrDisposal)
		assert.ErrorIs(t, err, testutil.ErrAlreadyClosed)
	})
}

func TestIsCircularDependency(t *testing.T) {
	c := testutil.NewContainer(t)
	require.NoError(t, c.RegisterType(ioc.TypeOf[testutil.CircularServiceA]()))

	_, err := c.Get(ioc.TypeOf[testutil.CircularServiceB]())
	require.Error(t, err)
	assert.True(t, ioc.IsCircularDependency(err))
	assert.True(t, ioc.IsCircularDependency(fmt.Errorf("wrapped: %w", err)))
	assert.Contains(t, err.Error(), "circular dependency detected")

	assert.False(t, ioc.IsCircularDependency(testutil.ErrTest))
	assert.False(t, ioc.IsCircularDependency(nil))
	assert.False(t, errors.Is(err, ioc.ErrNotFound))
}
