package handlers

import (
	"errors"
	"net/http"

	"registration-system/internal/status"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// requireAdmin is the single capability check used by every admin
// entry point instead of ad-hoc inline auth logic.
func requireAdmin(e *core.RequestEvent) error {
	if e.Auth == nil || !e.Auth.IsSuperuser() {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}
	return nil
}

func requireAuth(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	return nil
}

// mapWorkflowError turns a typed workflow failure into an API error.
// Unexpected storage failures surface as a retryable 5xx.
func mapWorkflowError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound):
		return apis.NewNotFoundError("Event not found", err)
	case errors.Is(err, status.ErrRegistrationNotFound):
		return apis.NewNotFoundError("Registration not found", err)
	case errors.Is(err, status.ErrAlreadyRegistered):
		return apis.NewApiError(http.StatusConflict, "Already registered for this event", err)
	case errors.Is(err, status.ErrEventInPast):
		return apis.NewBadRequestError("Event has already started", err)
	case errors.Is(err, status.ErrNotApproved):
		return apis.NewBadRequestError("Registration is not approved", err)
	case errors.Is(err, status.ErrAlreadyCheckedIn):
		return apis.NewBadRequestError("Already checked in", err)
	case errors.Is(err, status.ErrMalformedToken),
		errors.Is(err, status.ErrTokenEventMismatch),
		errors.Is(err, status.ErrTokenExpired):
		return apis.NewBadRequestError("Invalid check-in token", err)
	case errors.Is(err, status.ErrInvalidSecret):
		return apis.NewForbiddenError("Invalid location secret", err)
	default:
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, status.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, status.ErrTokenEventMismatch):
		return "event_mismatch"
	case errors.Is(err, status.ErrTokenExpired):
		return "expired"
	}
	return ""
}
