package api

import (
	"context"
	"net/http"
	"strconv"

	service "github.com/okian/rslist/internal/app"
	"github.com/okian/rslist/internal/domain/model"
	"github.com/okian/rslist/internal/domain/types"
)

// ListDependencies defines the read operations on the ranked list.
type ListDependencies interface {
	List(ctx context.Context) ([]model.Event, error)
	ListWindow(ctx context.Context, start, end int) ([]model.Event, error)
	Get(ctx context.Context, index int) (model.Event, error)
}

// ListHandler handles ranked list requests.
type ListHandler struct {
	deps ListDependencies
	errs *responder
}

// NewListHandler creates a new list handler.
func NewListHandler(deps ListDependencies, errs *responder) *ListHandler {
	return &ListHandler{deps: deps, errs: errs}
}

// HandleList handles GET /rs/list?start=S&end=E. The window applies only
// when both bounds are given.
func (h *ListHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list"
	q := r.URL.Query()
	startStr, endStr := q.Get("start"), q.Get("end")

	var (
		events []model.Event
		err    error
	)
	if startStr == "" || endStr == "" {
		events, err = h.deps.List(r.Context())
	} else {
		start, serr := strconv.Atoi(startStr)
		end, eerr := strconv.Atoi(endStr)
		if serr != nil || eerr != nil {
			h.errs.fail(w, r, NewKind(op, service.ErrInvalidIndex))
			return
		}
		events, err = h.deps.ListWindow(r.Context(), start, end)
	}
	if err != nil {
		h.errs.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewEventViews(events))
}

// HandleGet handles GET /rs/{index}.
func (h *ListHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get"
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.errs.fail(w, r, NewKind(op, service.ErrInvalidIndex))
		return
	}
	e, err := h.deps.Get(r.Context(), index)
	if err != nil {
		h.errs.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewEventView(e))
}
