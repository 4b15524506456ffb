package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormat(t *testing.T) {
	err := New(ErrCodeCacheWrite, "put failed")
	assert.Equal(t, "[CACHE_002] put failed", err.Error())

	withDetail := err.WithDetail("query_hash=abc123")
	assert.Equal(t, "[CACHE_002] put failed: query_hash=abc123", withDetail.Error())
	assert.Empty(t, err.Detail, "WithDetail must not mutate the receiver")
}

func TestWrapPreservesChain(t *testing.T) {
	root := stderrors.New("connection refused")
	wrapped := Wrap(root, ErrCodeIndexUnavailable, "similarity query failed")

	require.NotNil(t, wrapped)
	assert.ErrorIs(t, wrapped, root)
	assert.True(t, IsCode(wrapped, ErrCodeIndexUnavailable))

	rewrapped := Wrap(wrapped, ErrCodeInternal, "answer path failed")
	assert.True(t, IsCode(rewrapped, ErrCodeInternal))
	assert.True(t, IsCode(rewrapped, ErrCodeIndexUnavailable), "inner codes stay findable")
	assert.ErrorIs(t, rewrapped, root)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeCacheWrite, "put failed"))
}

func TestWrapUnknownCodeAdoptsInnerCode(t *testing.T) {
	inner := New(ErrCodeModelTimeout, "deadline exceeded")
	outer := Wrap(inner, CodeUnknown, "loop aborted")
	assert.Equal(t, ErrCodeModelTimeout, outer.Code)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeBadRequest, GetCode(InvalidParam("empty question")))

	wrapped := fmt.Errorf("outer: %w", New(ErrCodeCacheRead, "fetch failed"))
	assert.Equal(t, ErrCodeCacheRead, GetCode(wrapped))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(New(ErrCodeTimeout, "deadline")))
	assert.True(t, IsTimeout(New(ErrCodeModelTimeout, "model deadline")))
	assert.False(t, IsTimeout(New(ErrCodeInternal, "boom")))
	assert.False(t, IsTimeout(nil))
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeBadRequest))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeValidation))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrCodeIndexUnavailable))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(ErrCodeModelTimeout))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeInternal))
}

func TestStackCaptured(t *testing.T) {
	err := New(ErrCodeInternal, "boom")
	assert.Contains(t, err.Stack, "errors_test.go")
}
