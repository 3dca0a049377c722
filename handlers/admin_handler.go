package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"registration-system/models"
	"registration-system/monitoring"
	"registration-system/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type AdminHandler struct {
	app           *pocketbase.PocketBase
	registrations *services.RegistrationService
	events        *services.EventService
	tokens        *services.CheckinTokenService
	stats         *services.StatsService
	notifier      *services.Notifier
	redis         *redis.Client
}

func NewAdminHandler(
	app *pocketbase.PocketBase,
	registrations *services.RegistrationService,
	events *services.EventService,
	tokens *services.CheckinTokenService,
	stats *services.StatsService,
	notifier *services.Notifier,
	redisClient *redis.Client,
) *AdminHandler {
	return &AdminHandler{
		app:           app,
		registrations: registrations,
		events:        events,
		tokens:        tokens,
		stats:         stats,
		notifier:      notifier,
		redis:         redisClient,
	}
}

// SetApproval - Approve, reject or reset a registration
func (h *AdminHandler) SetApproval(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	regID := e.Request.PathValue("id")
	if regID == "" {
		return apis.NewBadRequestError("Registration ID required", nil)
	}

	var req struct {
		Approved *bool `json:"approved"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	reg, err := h.registrations.SetApproval(regID, req.Approved)
	if err != nil {
		monitoring.TrackOperation("set_approval", "error")
		return mapWorkflowError(err)
	}
	monitoring.TrackOperation("set_approval", "ok")

	slog.Info("approval updated",
		"admin", e.Auth.Id, "registration", regID, "approval", reg.ApprovalState())

	payload := map[string]any{
		"type":     "approval_updated",
		"event_id": reg.EventID,
		"approval": reg.ApprovalState(),
	}
	if event, err := h.events.Get(reg.EventID); err == nil && reg.Approved != nil {
		if *reg.Approved {
			payload["message"] = event.ApprovedMessage
		} else {
			payload["message"] = event.RejectedMessage
		}
	}
	h.notifier.NotifyUser(reg.UserID, payload)

	return e.JSON(http.StatusOK, reg)
}

// RevokeCheckIn - Flip a registration back to not-checked-in
func (h *AdminHandler) RevokeCheckIn(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	regID := e.Request.PathValue("id")
	if regID == "" {
		return apis.NewBadRequestError("Registration ID required", nil)
	}
	ctx := e.Request.Context()

	// Only decrement the live counter when there was a check-in to revoke.
	current, err := h.registrations.GetRegistration(regID)
	if err != nil {
		return mapWorkflowError(err)
	}
	wasCheckedIn := current.CheckedIn

	reg, err := h.registrations.RevokeCheckIn(regID)
	if err != nil {
		monitoring.TrackOperation("revoke_checkin", "error")
		return mapWorkflowError(err)
	}
	monitoring.TrackOperation("revoke_checkin", "ok")

	if wasCheckedIn {
		if err := h.stats.TrackCheckinRevoked(ctx, reg.EventID); err != nil {
			slog.Warn("stats update failed", "event_id", reg.EventID, "error", err)
		}
	}

	return e.JSON(http.StatusOK, reg)
}

// DeleteRegistration - Remove a registration regardless of state
func (h *AdminHandler) DeleteRegistration(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	regID := e.Request.PathValue("id")
	if regID == "" {
		return apis.NewBadRequestError("Registration ID required", nil)
	}

	if err := h.registrations.AdminDelete(regID); err != nil {
		monitoring.TrackOperation("admin_delete", "error")
		return mapWorkflowError(err)
	}
	monitoring.TrackOperation("admin_delete", "ok")

	return e.JSON(http.StatusOK, map[string]any{"message": "Registration deleted"})
}

// ListEventRegistrations - All registrations for one event
func (h *AdminHandler) ListEventRegistrations(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	eventID := e.Request.PathValue("eventId")
	if eventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}

	regs, err := h.registrations.ListByEvent(eventID)
	if err != nil {
		return mapWorkflowError(err)
	}

	result := []map[string]any{}
	for _, reg := range regs {
		item := map[string]any{
			"id":            reg.ID,
			"user_id":       reg.UserID,
			"approval":      reg.ApprovalState(),
			"checked_in":    reg.CheckedIn,
			"checked_in_at": reg.CheckedInAt,
			"ref_code":      reg.RefCode,
			"created_at":    reg.CreatedAt,
		}
		if user, err := h.app.FindRecordById("users", reg.UserID); err == nil {
			item["user_email"] = user.GetString("email")
		}
		result = append(result, item)
	}

	return e.JSON(http.StatusOK, result)
}

// IssueToken - Issue a fresh check-in token for the event display
func (h *AdminHandler) IssueToken(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	eventID := e.Request.PathValue("eventId")
	if eventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}

	if _, err := h.events.Get(eventID); err != nil {
		return mapWorkflowError(err)
	}

	token := h.tokens.Issue(eventID)

	return e.JSON(http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": h.tokens.TTL().Seconds(),
	})
}

// Attendance - Live attendance dashboard for all published events
func (h *AdminHandler) Attendance(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}
	ctx := e.Request.Context()

	eventIDs, err := h.redis.SMembers(ctx, "active_events").Result()
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to get active events", err)
	}

	dashboard := []models.AttendanceStats{}
	for _, eventID := range eventIDs {
		event, err := h.events.Get(eventID)
		if err != nil {
			continue
		}

		registered, _ := h.stats.RegisteredCount(ctx, eventID)
		checkedIn, _ := h.stats.CheckinCount(ctx, eventID)
		recent, _ := h.stats.RecentCheckins(ctx, eventID)

		dashboard = append(dashboard, models.AttendanceStats{
			EventID:        eventID,
			EventTitle:     event.Title,
			StartAt:        event.StartAt,
			Registered:     registered,
			CheckedIn:      checkedIn,
			RecentCheckins: recent,
			LastUpdated:    time.Now(),
		})
	}

	return e.JSON(http.StatusOK, dashboard)
}
