package models

import (
	"time"
)

type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartAt         time.Time `json:"start_at"`
	Location        string    `json:"location"`
	PreciseLocation string    `json:"precise_location,omitempty"`
	ApprovedMessage string    `json:"approved_message,omitempty"`
	RejectedMessage string    `json:"rejected_message,omitempty"`
	Price           string    `json:"price,omitempty"`
	Status          string    `json:"status"` // publish, unpublish
	SecretHash      string    `json:"-"`
}

// HasSecret reports whether the event discloses its precise location
// only to holders of the shared passphrase.
func (e *Event) HasSecret() bool {
	return e.SecretHash != ""
}
