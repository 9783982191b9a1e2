package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
)

// AssertResolvable checks if T can be resolved
func AssertResolvable[T any](t *testing.T, inj *ioc.Injector) T {
	t.Helper()
	service, err := ioc.Resolve[T](inj)
	require.NoError(t, err, "failed to resolve %T", *new(T))
	require.NotNil(t, service, "resolved service is nil")
	return service
}

// AssertTokenResolvable checks if token resolves to a T
func AssertTokenResolvable[T any](t *testing.T, inj *ioc.Injector, token ioc.Token) T {
	t.Helper()
	service, err := ioc.ResolveToken[T](inj, token)
	require.NoError(t, err, "failed to resolve %s", ioc.KeyOf(token))
	require.NotNil(t, service, "resolved service is nil")
	return service
}

// AssertAbsent checks that token has no provider and that absence is not an
// error
func AssertAbsent(t *testing.T, inj *ioc.Injector, token ioc.Token) {
	t.Helper()
	v, err := inj.Get(token)
	require.NoError(t, err)
	assert.Nil(t, v, "expected no provider for %s", ioc.KeyOf(token))
}

// AssertNotFound checks if a required lookup fails with not found error
func AssertNotFound(t *testing.T, inj *ioc.Injector, token ioc.Token) {
	t.Helper()
	_, err := inj.Resolve(ioc.Request{Token: token, Required: true})
	assert.Error(t, err)
	assert.True(t, ioc.IsNotFound(err), "expected not found error, got: %v", err)
}

// AssertPanicsWithError checks if a function panics with specific error
func AssertPanicsWithError(t *testing.T, expectedError error, f func(), msgAndArgs ...interface{}) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			assert.Fail(t, "function did not panic", msgAndArgs...)
			return
		}

		err, ok := r.(error)
		if !ok {
			assert.Fail(t, "panic value is not an error: %v", r)
			return
		}

		assert.ErrorIs(t, err, expectedError, msgAndArgs...)
	}()
	f()
}

// AssertSameInstance verifies two services are the same instance
func AssertSameInstance(t *testing.T, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances verifies two services are different instances
func AssertDifferentInstances(t *testing.T, first, second interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...interface{}) T {
	t.Helper()
	var target T
	assert.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}

// AssertCircularDependency checks if an error is a circular dependency error
func AssertCircularDependency(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, ioc.IsCircularDependency(err), "expected circular dependency error, got: %v", err)
}

// RequireNoError is a helper that uses require.NoError
func RequireNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	require.NoError(t, err, msgAndArgs...)
}
