package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"registration-system/internal/status"

	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiStatus(t *testing.T, err error) int {
	t.Helper()

	var apiErr *router.ApiError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Status
}

func TestMapWorkflowError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"Event not found", status.ErrEventNotFound, http.StatusNotFound},
		{"Registration not found", status.ErrRegistrationNotFound, http.StatusNotFound},
		{"Already registered", status.ErrAlreadyRegistered, http.StatusConflict},
		{"Event in past", status.ErrEventInPast, http.StatusBadRequest},
		{"Not approved", status.ErrNotApproved, http.StatusBadRequest},
		{"Already checked in", status.ErrAlreadyCheckedIn, http.StatusBadRequest},
		{"Malformed token", status.ErrMalformedToken, http.StatusBadRequest},
		{"Token event mismatch", status.ErrTokenEventMismatch, http.StatusBadRequest},
		{"Token expired", status.ErrTokenExpired, http.StatusBadRequest},
		{"Invalid secret", status.ErrInvalidSecret, http.StatusForbidden},
		{"Wrapped storage failure", fmt.Errorf("%w: disk full", status.ErrStorage), http.StatusInternalServerError},
		{"Unknown error", errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apiStatus(t, mapWorkflowError(tt.err)))
		})
	}
}

func TestCreateEventError(t *testing.T) {
	// Input validation stays a 400.
	err := createEventError(errors.New("event title is required"))
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))

	// A persistence failure surfaces as a retryable 5xx, not a 400.
	err = createEventError(fmt.Errorf("%w: database is locked", status.ErrStorage))
	assert.Equal(t, http.StatusInternalServerError, apiStatus(t, err))
}

func TestTokenFailureReason(t *testing.T) {
	assert.Equal(t, "malformed", tokenFailureReason(status.ErrMalformedToken))
	assert.Equal(t, "event_mismatch", tokenFailureReason(status.ErrTokenEventMismatch))
	assert.Equal(t, "expired", tokenFailureReason(status.ErrTokenExpired))
	assert.Equal(t, "", tokenFailureReason(status.ErrNotApproved))
}
