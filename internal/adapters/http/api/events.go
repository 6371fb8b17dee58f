package api

import (
	"context"
	"net/http"

	"github.com/okian/rslist/internal/domain/model"
)

// EventDependencies defines the interface for adding events.
type EventDependencies interface {
	AddEvent(ctx context.Context, name, keyword string, userID uint) (model.Event, error)
}

// eventRequest is the body of POST /rs/event.
type eventRequest struct {
	EventName string `json:"eventName"`
	Keyword   string `json:"keyword"`
	UserID    uint   `json:"userId"`
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
	errs *responder
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, errs *responder) *EventsHandler {
	return &EventsHandler{deps: deps, errs: errs}
}

// HandleAddEvent handles POST /rs/event.
func (h *EventsHandler) HandleAddEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_event"
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := h.deps.AddEvent(r.Context(), req.EventName, req.Keyword, req.UserID)
	if err != nil {
		h.errs.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: e.ID})
}
