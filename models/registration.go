package models

import (
	"time"
)

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Registration links one user to one event. Approved is tri-state:
// nil while the registration awaits an admin decision.
type Registration struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	EventID     string     `json:"event_id"`
	Approved    *bool      `json:"approved"`
	CheckedIn   bool       `json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	RefCode     string     `json:"ref_code"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (r *Registration) ApprovalState() string {
	return ApprovalToLabel(r.Approved)
}

func (r *Registration) IsApproved() bool {
	return r.Approved != nil && *r.Approved
}

// ApprovalFromLabel maps the stored select value to the tri-state flag.
// An empty or unknown label means pending.
func ApprovalFromLabel(label string) *bool {
	switch label {
	case ApprovalApproved:
		v := true
		return &v
	case ApprovalRejected:
		v := false
		return &v
	}
	return nil
}

func ApprovalToLabel(approved *bool) string {
	if approved == nil {
		return ApprovalPending
	}
	if *approved {
		return ApprovalApproved
	}
	return ApprovalRejected
}

// StoredApprovalValue is what goes into the registrations.approval select
// field. Pending is stored as the empty string.
func StoredApprovalValue(approved *bool) string {
	if approved == nil {
		return ""
	}
	return ApprovalToLabel(approved)
}
