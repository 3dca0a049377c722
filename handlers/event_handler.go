package handlers

import (
	"errors"
	"net/http"

	"registration-system/internal/status"
	"registration-system/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type EventHandler struct {
	app    *pocketbase.PocketBase
	events *services.EventService
}

func NewEventHandler(app *pocketbase.PocketBase, events *services.EventService) *EventHandler {
	return &EventHandler{
		app:    app,
		events: events,
	}
}

// CreateEvent - Create a new event (admin)
func (h *EventHandler) CreateEvent(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req services.EventInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	event, err := h.events.Create(req)
	if err != nil {
		return createEventError(err)
	}

	return e.JSON(http.StatusOK, event)
}

// createEventError keeps validation failures as 400s while storage
// failures stay retryable 5xxs.
func createEventError(err error) error {
	if errors.Is(err, status.ErrStorage) {
		return mapWorkflowError(err)
	}
	return apis.NewBadRequestError("Failed to create event", err)
}

// ListEvents - List published events
func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	events, err := h.events.ListPublished()
	if err != nil {
		return mapWorkflowError(err)
	}
	return e.JSON(http.StatusOK, events)
}

// GetEvent - Get a single event
func (h *EventHandler) GetEvent(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	if eventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}

	event, err := h.events.Get(eventID)
	if err != nil {
		return mapWorkflowError(err)
	}
	return e.JSON(http.StatusOK, event)
}

// DeleteEvent - Delete an event (admin)
func (h *EventHandler) DeleteEvent(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	eventID := e.Request.PathValue("eventId")
	if eventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}

	if err := h.events.Delete(eventID); err != nil {
		return mapWorkflowError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Event deleted"})
}
