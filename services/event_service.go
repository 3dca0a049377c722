package services

import (
	"database/sql"
	"errors"
	"time"

	"registration-system/internal/status"
	"registration-system/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type EventService struct {
	app core.App
}

func NewEventService(app core.App) *EventService {
	return &EventService{app: app}
}

type EventInput struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartAt         time.Time `json:"start_at"`
	Location        string    `json:"location"`
	PreciseLocation string    `json:"precise_location"`
	ApprovedMessage string    `json:"approved_message"`
	RejectedMessage string    `json:"rejected_message"`
	Price           string    `json:"price"`
	Secret          string    `json:"secret"`
	Status          string    `json:"status"`
}

func (s *EventService) Create(in EventInput) (*models.Event, error) {
	if in.Title == "" {
		return nil, errors.New("event title is required")
	}
	if in.StartAt.IsZero() {
		return nil, errors.New("event start time is required")
	}

	if in.Price != "" {
		price, err := decimal.NewFromString(in.Price)
		if err != nil || price.IsNegative() {
			return nil, errors.New("invalid event price")
		}
		in.Price = price.StringFixed(2)
	}

	if in.Status == "" {
		in.Status = "publish"
	}

	collection, err := s.app.FindCollectionByNameOrId(eventsCollection)
	if err != nil {
		return nil, storageErr(err)
	}

	record := core.NewRecord(collection)
	record.Set("title", in.Title)
	record.Set("description", in.Description)
	record.Set("start_at", in.StartAt)
	record.Set("location", in.Location)
	record.Set("precise_location", in.PreciseLocation)
	record.Set("approved_message", in.ApprovedMessage)
	record.Set("rejected_message", in.RejectedMessage)
	record.Set("price", in.Price)
	record.Set("status", in.Status)

	if in.Secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		record.Set("secret_hash", string(hash))
	}

	if err := s.app.Save(record); err != nil {
		return nil, storageErr(err)
	}

	return eventFromRecord(record), nil
}

func (s *EventService) Get(eventID string) (*models.Event, error) {
	record, err := s.app.FindRecordById(eventsCollection, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrEventNotFound
		}
		return nil, storageErr(err)
	}
	return eventFromRecord(record), nil
}

// ListPublished returns published events, soonest first.
func (s *EventService) ListPublished() ([]*models.Event, error) {
	records, err := s.app.FindRecordsByFilter(
		eventsCollection,
		"status = {:status}",
		"start_at",
		0,
		0,
		dbx.Params{"status": "publish"},
	)
	if err != nil {
		return nil, storageErr(err)
	}

	events := make([]*models.Event, 0, len(records))
	for _, r := range records {
		events = append(events, eventFromRecord(r))
	}
	return events, nil
}

func (s *EventService) Delete(eventID string) error {
	record, err := s.app.FindRecordById(eventsCollection, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrEventNotFound
		}
		return storageErr(err)
	}
	if err := s.app.Delete(record); err != nil {
		return storageErr(err)
	}
	return nil
}

// UnlockLocation discloses the precise location to holders of the
// event's shared passphrase.
func (s *EventService) UnlockLocation(eventID, secret string) (string, error) {
	event, err := s.Get(eventID)
	if err != nil {
		return "", err
	}

	if !event.HasSecret() {
		return "", status.ErrInvalidSecret
	}
	if bcrypt.CompareHashAndPassword([]byte(event.SecretHash), []byte(secret)) != nil {
		return "", status.ErrInvalidSecret
	}

	return event.PreciseLocation, nil
}
