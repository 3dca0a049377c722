package models

import (
	"time"
)

type CheckinEntry struct {
	UserID      string    `json:"user_id"`
	EventID     string    `json:"event_id"`
	RefCode     string    `json:"ref_code"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

type AttendanceStats struct {
	EventID        string         `json:"event_id"`
	EventTitle     string         `json:"event_title"`
	StartAt        time.Time      `json:"start_at"`
	Registered     int64          `json:"registered"`
	CheckedIn      int64          `json:"checked_in"`
	RecentCheckins []CheckinEntry `json:"recent_checkins"`
	LastUpdated    time.Time      `json:"last_updated"`
}
