package status

import "errors"

var (
	ErrEventNotFound        = errors.New("event: event not found")
	ErrEventInPast          = errors.New("event: event already started")
	ErrRegistrationNotFound = errors.New("registration: registration not found")
	ErrAlreadyRegistered    = errors.New("registration: already registered for event")
	ErrNotApproved          = errors.New("registration: registration not approved")
	ErrAlreadyCheckedIn     = errors.New("registration: already checked in")
	ErrMalformedToken       = errors.New("token: malformed check-in token")
	ErrTokenEventMismatch   = errors.New("token: token issued for different event")
	ErrTokenExpired         = errors.New("token: check-in token expired")
	ErrInvalidSecret        = errors.New("event: invalid location secret")
	ErrStorage              = errors.New("storage: persistence failure")
)
