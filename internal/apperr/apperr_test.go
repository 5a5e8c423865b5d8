package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[*Error]int{
		BadRequest("x"):      http.StatusBadRequest,
		Unauthorized("x"):    http.StatusUnauthorized,
		Forbidden("x"):       http.StatusForbidden,
		NotFound("x"):        http.StatusNotFound,
		Conflict("x"):        http.StatusConflict,
		TooLarge("x"):        http.StatusRequestEntityTooLarge,
		TooManyRequests("x"): http.StatusTooManyRequests,
		Internal(nil):        http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, err.HTTPStatus(), err.Kind)
	}
}

func TestFromKeepsClassifiedErrors(t *testing.T) {
	wrapped := fmt.Errorf("update pin: %w", Forbidden("Not allowed to edit this pin"))

	got := From(wrapped)
	assert.Equal(t, KindForbidden, got.Kind)
	assert.Equal(t, "Not allowed to edit this pin", got.Message)
	assert.True(t, IsKind(wrapped, KindForbidden))
}

func TestFromClassifiesUnknownErrorsAsInternal(t *testing.T) {
	cause := errors.New("connection reset")

	got := From(cause)
	require.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, "Internal server error", got.Message)
	assert.ErrorIs(t, got, cause)
}
