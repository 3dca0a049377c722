package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"registration-system/models"
	"registration-system/monitoring"
	"registration-system/security"
	"registration-system/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type RegistrationHandler struct {
	app           *pocketbase.PocketBase
	registrations *services.RegistrationService
	events        *services.EventService
	stats         *services.StatsService
	notifier      *services.Notifier
	limiter       *security.RateLimiter
}

func NewRegistrationHandler(
	app *pocketbase.PocketBase,
	registrations *services.RegistrationService,
	events *services.EventService,
	stats *services.StatsService,
	notifier *services.Notifier,
	limiter *security.RateLimiter,
) *RegistrationHandler {
	return &RegistrationHandler{
		app:           app,
		registrations: registrations,
		events:        events,
		stats:         stats,
		notifier:      notifier,
		limiter:       limiter,
	}
}

// Register - Register the authenticated user for an event
func (h *RegistrationHandler) Register(e *core.RequestEvent) error {
	if err := requireAuth(e); err != nil {
		return err
	}

	var req struct {
		EventID string `json:"event_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}
	ctx := e.Request.Context()

	if ok, _ := h.limiter.Allow(ctx, "register", e.Auth.Id); !ok {
		return e.JSON(http.StatusTooManyRequests, map[string]string{
			"error": "Too many requests. Please try again later.",
		})
	}

	reg, err := h.registrations.Register(e.Auth.Id, req.EventID)
	if err != nil {
		monitoring.TrackOperation("register", "error")
		return mapWorkflowError(err)
	}
	monitoring.TrackOperation("register", "ok")

	if err := h.stats.TrackRegistration(ctx, req.EventID); err != nil {
		slog.Warn("stats update failed", "event_id", req.EventID, "error", err)
	}
	h.notifier.NotifyAdmins(map[string]any{
		"type":     "registration_created",
		"event_id": req.EventID,
		"user_id":  e.Auth.Id,
	})

	return e.JSON(http.StatusOK, map[string]any{
		"registration_id": reg.ID,
		"approved":        reg.Approved,
		"ref_code":        reg.RefCode,
		"created_at":      reg.CreatedAt,
	})
}

// Cancel - Cancel the authenticated user's registration
func (h *RegistrationHandler) Cancel(e *core.RequestEvent) error {
	if err := requireAuth(e); err != nil {
		return err
	}

	var req struct {
		EventID string `json:"event_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}
	ctx := e.Request.Context()

	if err := h.registrations.Cancel(e.Auth.Id, req.EventID); err != nil {
		monitoring.TrackOperation("cancel", "error")
		return mapWorkflowError(err)
	}
	monitoring.TrackOperation("cancel", "ok")

	if err := h.stats.TrackCancellation(ctx, req.EventID); err != nil {
		slog.Warn("stats update failed", "event_id", req.EventID, "error", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Registration cancelled"})
}

// MyRegistrations - List the authenticated user's registrations with
// event details and the post-decision message, if any
func (h *RegistrationHandler) MyRegistrations(e *core.RequestEvent) error {
	if err := requireAuth(e); err != nil {
		return err
	}

	regs, err := h.registrations.ListByUser(e.Auth.Id)
	if err != nil {
		return mapWorkflowError(err)
	}

	result := []map[string]any{}
	for _, reg := range regs {
		item := map[string]any{
			"id":            reg.ID,
			"event_id":      reg.EventID,
			"approval":      reg.ApprovalState(),
			"checked_in":    reg.CheckedIn,
			"checked_in_at": reg.CheckedInAt,
			"ref_code":      reg.RefCode,
			"created_at":    reg.CreatedAt,
		}

		event, err := h.events.Get(reg.EventID)
		if err == nil {
			item["event_title"] = event.Title
			item["event_start_at"] = event.StartAt
			item["event_location"] = event.Location
			if reg.Approved != nil {
				if *reg.Approved {
					item["message"] = event.ApprovedMessage
				} else {
					item["message"] = event.RejectedMessage
				}
			}
		}

		result = append(result, item)
	}

	return e.JSON(http.StatusOK, result)
}

// CheckIn - Record attendance using a token from the event display
func (h *RegistrationHandler) CheckIn(e *core.RequestEvent) error {
	if err := requireAuth(e); err != nil {
		return err
	}

	var req struct {
		EventID string `json:"event_id"`
		Token   string `json:"token"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" || req.Token == "" {
		return apis.NewBadRequestError("Event ID and token required", nil)
	}
	ctx := e.Request.Context()

	if ok, _ := h.limiter.Allow(ctx, "checkin", e.Auth.Id); !ok {
		return e.JSON(http.StatusTooManyRequests, map[string]string{
			"error": "Too many requests. Please try again later.",
		})
	}

	reg, err := h.registrations.CheckIn(e.Auth.Id, req.EventID, req.Token)
	if err != nil {
		monitoring.TrackOperation("checkin", "error")
		if reason := tokenFailureReason(err); reason != "" {
			monitoring.TrackTokenFailure(reason)
		}
		return mapWorkflowError(err)
	}
	monitoring.TrackOperation("checkin", "ok")
	monitoring.TrackCheckin(req.EventID)

	checkedInAt := time.Now()
	if reg.CheckedInAt != nil {
		checkedInAt = *reg.CheckedInAt
	}

	if err := h.stats.TrackCheckin(ctx, models.CheckinEntry{
		UserID:      e.Auth.Id,
		EventID:     req.EventID,
		RefCode:     reg.RefCode,
		CheckedInAt: checkedInAt,
	}); err != nil {
		slog.Warn("stats update failed", "event_id", req.EventID, "error", err)
	}

	h.notifier.NotifyUser(e.Auth.Id, map[string]any{
		"type":     "checked_in",
		"event_id": req.EventID,
	})

	return e.JSON(http.StatusOK, map[string]any{
		"registration_id": reg.ID,
		"checked_in":      reg.CheckedIn,
		"checked_in_at":   reg.CheckedInAt,
	})
}

// UnlockLocation - Exchange the event passphrase for the precise location
func (h *RegistrationHandler) UnlockLocation(e *core.RequestEvent) error {
	if err := requireAuth(e); err != nil {
		return err
	}

	eventID := e.Request.PathValue("eventId")
	if eventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}

	var req struct {
		Secret string `json:"secret"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	location, err := h.events.UnlockLocation(eventID, req.Secret)
	if err != nil {
		return mapWorkflowError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"precise_location": location})
}
