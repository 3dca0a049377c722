package services

import (
	"time"

	"registration-system/internal/status"
	"registration-system/models"
	"registration-system/utils"
)

const refCodeBytes = 4

// RegistrationService drives the registration state machine:
//
//	UNREGISTERED -> PENDING -> {APPROVED, REJECTED}
//	APPROVED -> CHECKED_IN -> APPROVED (admin revoke)
//
// It performs no side effects beyond ledger mutations; notification,
// stats and metrics are the handlers' business.
type RegistrationService struct {
	Ledger RegistrationLedger
	Tokens *CheckinTokenService
}

func NewRegistrationService(ledger RegistrationLedger, tokens *CheckinTokenService) *RegistrationService {
	return &RegistrationService{
		Ledger: ledger,
		Tokens: tokens,
	}
}

// Register creates a pending registration for a future event.
func (s *RegistrationService) Register(userID, eventID string) (*models.Registration, error) {
	event, err := s.Ledger.FindEvent(eventID)
	if err != nil {
		return nil, err
	}

	if !event.StartAt.After(time.Now()) {
		return nil, status.ErrEventInPast
	}

	refCode, err := utils.GenerateCode(refCodeBytes)
	if err != nil {
		return nil, err
	}

	return s.Ledger.CreateRegistration(userID, eventID, refCode)
}

// Cancel removes the user's own registration. Self-cancellation is
// refused once the user has checked in; an admin delete has no such
// guard (see AdminDelete).
func (s *RegistrationService) Cancel(userID, eventID string) error {
	reg, err := s.Ledger.FindRegistration(userID, eventID)
	if err != nil {
		return err
	}

	if reg.CheckedIn {
		return status.ErrAlreadyCheckedIn
	}

	return s.Ledger.DeleteRegistration(reg.ID)
}

// AdminDelete removes a registration regardless of its state.
func (s *RegistrationService) AdminDelete(regID string) error {
	return s.Ledger.DeleteRegistration(regID)
}

// SetApproval overwrites the approval flag. Any state is reachable from
// any other; repeating the same value is a no-op.
func (s *RegistrationService) SetApproval(regID string, approved *bool) (*models.Registration, error) {
	return s.Ledger.SetApproval(regID, approved)
}

// CheckIn records attendance. Guards, in order: registration exists,
// approval granted, not already checked in, token valid for this event.
func (s *RegistrationService) CheckIn(userID, eventID, token string) (*models.Registration, error) {
	reg, err := s.Ledger.FindRegistration(userID, eventID)
	if err != nil {
		return nil, err
	}

	if !reg.IsApproved() {
		return nil, status.ErrNotApproved
	}
	if reg.CheckedIn {
		return nil, status.ErrAlreadyCheckedIn
	}

	if err := s.Tokens.Validate(eventID, token); err != nil {
		return nil, err
	}

	return s.Ledger.SetCheckedIn(reg.ID, true)
}

// RevokeCheckIn flips a registration back to not-checked-in and clears
// the timestamp. Revoking a never-checked-in registration is a no-op.
func (s *RegistrationService) RevokeCheckIn(regID string) (*models.Registration, error) {
	return s.Ledger.SetCheckedIn(regID, false)
}

func (s *RegistrationService) GetRegistration(regID string) (*models.Registration, error) {
	return s.Ledger.FindRegistrationById(regID)
}

func (s *RegistrationService) ListByEvent(eventID string) ([]*models.Registration, error) {
	return s.Ledger.ListByEvent(eventID)
}

func (s *RegistrationService) ListByUser(userID string) ([]*models.Registration, error) {
	return s.Ledger.ListByUser(userID)
}
