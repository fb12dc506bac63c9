package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeDuplicateContent, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeUnsupportedMedia, http.StatusUnsupportedMediaType},
		{CodeProcessing, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
		{Code("bogus"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.HTTPStatus(), string(tt.code))
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("post %s not found", "42")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestError_WrappedCauseSurvives(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := Wrap(cause, CodeInternal, "failed to persist")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Contains(t, err.Error(), "failed to persist")
}

func TestError_WithCause(t *testing.T) {
	cause := fmt.Errorf("root")
	err := ErrProcessing.WithCause(cause)

	require.ErrorIs(t, err, ErrProcessing)
	assert.Equal(t, cause, Unwrap(err))
}

func TestValidationWithDetails(t *testing.T) {
	err := ValidationWithDetails("validation failed", map[string]string{
		"tags": "is required",
	})

	var domainErr *Error
	require.ErrorAs(t, error(err), &domainErr)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
	assert.Equal(t, "is required", domainErr.Details["tags"])
}
