package api

import (
	"context"
	"net/http"

	"github.com/okian/rslist/internal/domain/model"
)

// BuyDependencies defines the rank purchase operation.
type BuyDependencies interface {
	Buy(ctx context.Context, bid model.Bid, eventID uint) error
}

// buyRequest is the body of POST /rs/buy/{id}.
type buyRequest struct {
	Amount int `json:"amount"`
	Rank   int `json:"rank"`
}

// BuyHandler handles rank purchase requests.
type BuyHandler struct {
	deps BuyDependencies
	errs *responder
}

// NewBuyHandler creates a new buy handler.
func NewBuyHandler(deps BuyDependencies, errs *responder) *BuyHandler {
	return &BuyHandler{deps: deps, errs: errs}
}

// HandleBuy handles POST /rs/buy/{id}.
func (h *BuyHandler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	const op = "api.buy"
	eventID, err := pathID(r, "id")
	if err != nil {
		h.errs.fail(w, r, Wrap(op, err))
		return
	}
	var req buyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Buy(r.Context(), model.Bid{Amount: req.Amount, Rank: req.Rank}, eventID); err != nil {
		h.errs.fail(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusOK)
}
