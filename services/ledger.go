package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"registration-system/internal/status"
	"registration-system/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

const (
	eventsCollection        = "events"
	registrationsCollection = "registrations"
)

// RegistrationLedger is the authoritative mapping from (user, event) to
// registration state. At most one registration exists per pair; the
// backing store enforces it with a unique index so that concurrent
// creates resolve to exactly one winner.
type RegistrationLedger interface {
	FindEvent(eventID string) (*models.Event, error)
	FindRegistration(userID, eventID string) (*models.Registration, error)
	FindRegistrationById(id string) (*models.Registration, error)
	CreateRegistration(userID, eventID, refCode string) (*models.Registration, error)
	DeleteRegistration(id string) error
	SetApproval(id string, approved *bool) (*models.Registration, error)
	SetCheckedIn(id string, value bool) (*models.Registration, error)
	ListByEvent(eventID string) ([]*models.Registration, error)
	ListByUser(userID string) ([]*models.Registration, error)
}

type pbLedger struct {
	app core.App
}

// NewRegistrationLedger returns the PocketBase-backed ledger.
func NewRegistrationLedger(app core.App) RegistrationLedger {
	return &pbLedger{app: app}
}

func (l *pbLedger) FindEvent(eventID string) (*models.Event, error) {
	record, err := l.app.FindRecordById(eventsCollection, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrEventNotFound
		}
		return nil, storageErr(err)
	}
	return eventFromRecord(record), nil
}

func (l *pbLedger) FindRegistration(userID, eventID string) (*models.Registration, error) {
	record, err := l.app.FindFirstRecordByFilter(
		registrationsCollection,
		"user = {:user} && event = {:event}",
		dbx.Params{"user": userID, "event": eventID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrRegistrationNotFound
		}
		return nil, storageErr(err)
	}
	return registrationFromRecord(record), nil
}

func (l *pbLedger) FindRegistrationById(id string) (*models.Registration, error) {
	record, err := l.findRegistrationRecord(id)
	if err != nil {
		return nil, err
	}
	return registrationFromRecord(record), nil
}

func (l *pbLedger) CreateRegistration(userID, eventID, refCode string) (*models.Registration, error) {
	collection, err := l.app.FindCollectionByNameOrId(registrationsCollection)
	if err != nil {
		return nil, storageErr(err)
	}

	record := core.NewRecord(collection)
	record.Set("user", userID)
	record.Set("event", eventID)
	record.Set("approval", "")
	record.Set("checked_in", false)
	record.Set("ref_code", refCode)

	if err := l.app.Save(record); err != nil {
		// The unique (user, event) index resolves concurrent creates:
		// the loser surfaces here as a constraint violation.
		if isUniqueViolation(err) {
			return nil, status.ErrAlreadyRegistered
		}
		return nil, storageErr(err)
	}

	return registrationFromRecord(record), nil
}

func (l *pbLedger) DeleteRegistration(id string) error {
	record, err := l.findRegistrationRecord(id)
	if err != nil {
		return err
	}
	if err := l.app.Delete(record); err != nil {
		return storageErr(err)
	}
	return nil
}

func (l *pbLedger) SetApproval(id string, approved *bool) (*models.Registration, error) {
	record, err := l.findRegistrationRecord(id)
	if err != nil {
		return nil, err
	}

	record.Set("approval", models.StoredApprovalValue(approved))
	if err := l.app.Save(record); err != nil {
		return nil, storageErr(err)
	}
	return registrationFromRecord(record), nil
}

func (l *pbLedger) SetCheckedIn(id string, value bool) (*models.Registration, error) {
	record, err := l.findRegistrationRecord(id)
	if err != nil {
		return nil, err
	}

	record.Set("checked_in", value)
	if value {
		record.Set("checked_in_at", types.NowDateTime())
	} else {
		record.Set("checked_in_at", "")
	}

	if err := l.app.Save(record); err != nil {
		return nil, storageErr(err)
	}
	return registrationFromRecord(record), nil
}

func (l *pbLedger) ListByEvent(eventID string) ([]*models.Registration, error) {
	records, err := l.app.FindRecordsByFilter(
		registrationsCollection,
		"event = {:event}",
		"-created",
		0,
		0,
		dbx.Params{"event": eventID},
	)
	if err != nil {
		return nil, storageErr(err)
	}
	return registrationsFromRecords(records), nil
}

func (l *pbLedger) ListByUser(userID string) ([]*models.Registration, error) {
	records, err := l.app.FindRecordsByFilter(
		registrationsCollection,
		"user = {:user}",
		"-created",
		0,
		0,
		dbx.Params{"user": userID},
	)
	if err != nil {
		return nil, storageErr(err)
	}
	return registrationsFromRecords(records), nil
}

func (l *pbLedger) findRegistrationRecord(id string) (*core.Record, error) {
	record, err := l.app.FindRecordById(registrationsCollection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrRegistrationNotFound
		}
		return nil, storageErr(err)
	}
	return record, nil
}

func eventFromRecord(r *core.Record) *models.Event {
	return &models.Event{
		ID:              r.Id,
		Title:           r.GetString("title"),
		Description:     r.GetString("description"),
		StartAt:         r.GetDateTime("start_at").Time(),
		Location:        r.GetString("location"),
		PreciseLocation: r.GetString("precise_location"),
		ApprovedMessage: r.GetString("approved_message"),
		RejectedMessage: r.GetString("rejected_message"),
		Price:           r.GetString("price"),
		Status:          r.GetString("status"),
		SecretHash:      r.GetString("secret_hash"),
	}
}

func registrationFromRecord(r *core.Record) *models.Registration {
	reg := &models.Registration{
		ID:        r.Id,
		UserID:    r.GetString("user"),
		EventID:   r.GetString("event"),
		Approved:  models.ApprovalFromLabel(r.GetString("approval")),
		CheckedIn: r.GetBool("checked_in"),
		RefCode:   r.GetString("ref_code"),
		CreatedAt: r.GetDateTime("created").Time(),
	}
	if ts := r.GetDateTime("checked_in_at"); !ts.IsZero() {
		t := ts.Time()
		reg.CheckedInAt = &t
	}
	return reg
}

func registrationsFromRecords(records []*core.Record) []*models.Registration {
	regs := make([]*models.Registration, 0, len(records))
	for _, r := range records {
		regs = append(regs, registrationFromRecord(r))
	}
	return regs
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "must be unique")
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", status.ErrStorage, err)
}
