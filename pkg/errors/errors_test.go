package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	cases := map[Code]Metadata{
		CodeValidation:        {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
		CodeUnauthorized:      {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
		CodeStateConflict:     {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
		CodeDependency:        {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
		CodeEmptyOrder:        {HTTPStatus: http.StatusBadRequest, PublicMessage: "order has no line items"},
		CodeInsufficientStock: {HTTPStatus: http.StatusBadRequest, PublicMessage: "insufficient stock", DetailsAllowed: true},
		CodeInvalidTransition: {HTTPStatus: http.StatusConflict, PublicMessage: "invalid status transition", DetailsAllowed: true},
		CodeBusy:              {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "resource busy, retry the request", Retryable: true},
		CodeCanceled:          {HTTPStatus: 499, PublicMessage: "request canceled", Retryable: true},
		CodeInconsistent:      {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error"},
		"SOMETHING_UNKNOWN":   {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
	}
	for code, want := range cases {
		assert.Equal(t, want, MetadataFor(code), "code %s", code)
	}
}

func TestEveryDeclaredCodeIsRegistered(t *testing.T) {
	codes := []Code{
		CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict,
		CodeStateConflict, CodeIdempotency, CodeRateLimit, CodeInternal, CodeDependency,
		CodeCanceled, CodeEmptyOrder, CodeInsufficientStock, CodeInvalidTransition, CodeBusy, CodeInconsistent,
	}
	for _, code := range codes {
		_, ok := registry[code]
		assert.True(t, ok, "code %s has no metadata", code)
	}
	assert.Len(t, registry, len(codes))
}

func TestWrapKeepsCauseAndDetails(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeConflict, cause, "reserve").WithDetails(map[string]any{"sku": "tea"})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeConflict, err.Code())
	assert.Equal(t, "reserve", err.Message())
	assert.Equal(t, map[string]any{"sku": "tea"}, err.Details())
	assert.Equal(t, "CONFLICT: reserve: boom", err.Error())
	assert.Equal(t, "NOT_FOUND: missing", New(CodeNotFound, "missing").Error())
	assert.Nil(t, Wrap(CodeInternal, nil, "no cause").Unwrap())
}

func TestNilErrorAccessors(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Nil(t, e.Details())
	assert.Nil(t, e.WithDetails("x"))
	assert.Empty(t, e.Error())
}

func TestAsIsCodeAndRetryable(t *testing.T) {
	busy := Wrap(CodeBusy, stdErrors.New("lock timeout"), "reserve stock")
	wrapped := fmt.Errorf("place order: %w", busy)

	got := As(wrapped)
	require.NotNil(t, got)
	assert.Same(t, busy, got)
	assert.True(t, IsCode(wrapped, CodeBusy))
	assert.True(t, Retryable(wrapped))

	assert.False(t, Retryable(New(CodeInvalidTransition, "completed is terminal")))
	assert.False(t, Retryable(stdErrors.New("plain")))
	assert.False(t, IsCode(nil, CodeBusy))
	assert.False(t, IsCode(stdErrors.New("plain"), ""))
	assert.Nil(t, As(nil))
}

func TestIsCanceled(t *testing.T) {
	assert.True(t, IsCanceled(context.Canceled))
	assert.True(t, IsCanceled(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.True(t, IsCanceled(Wrap(CodeInternal, context.Canceled, "create order")))
	assert.False(t, IsCanceled(New(CodeBusy, "order changed concurrently")))
	assert.False(t, IsCanceled(nil))
}
