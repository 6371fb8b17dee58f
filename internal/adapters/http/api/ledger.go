package api

import (
	"context"
	"net/http"

	"github.com/okian/rslist/internal/domain/model"
	"github.com/okian/rslist/internal/domain/types"
)

// LedgerDependencies exposes the purchase history.
type LedgerDependencies interface {
	Ledger(ctx context.Context) ([]model.LedgerEntry, error)
}

// LedgerHandler handles ledger requests.
type LedgerHandler struct {
	deps LedgerDependencies
	errs *responder
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(deps LedgerDependencies, errs *responder) *LedgerHandler {
	return &LedgerHandler{deps: deps, errs: errs}
}

// HandleLedger handles GET /rs/ledger.
func (h *LedgerHandler) HandleLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Ledger(r.Context())
	if err != nil {
		h.errs.fail(w, r, Wrap("api.ledger", err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewLedgerViews(entries))
}
