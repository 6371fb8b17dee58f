package api

import (
	"context"
	"net/http"

	"github.com/okian/rslist/internal/domain/model"
)

// UserDependencies defines user registration.
type UserDependencies interface {
	RegisterUser(ctx context.Context, name, email string, budget *int) (model.User, error)
}

// userRequest is the body of POST /user. A missing voteNum grants the
// default budget.
type userRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	VoteNum  *int   `json:"voteNum"`
}

// UserHandler handles user registration.
type UserHandler struct {
	deps UserDependencies
	errs *responder
}

// NewUserHandler creates a new user handler.
func NewUserHandler(deps UserDependencies, errs *responder) *UserHandler {
	return &UserHandler{deps: deps, errs: errs}
}

// HandleRegister handles POST /user.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_user"
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	u, err := h.deps.RegisterUser(r.Context(), req.UserName, req.Email, req.VoteNum)
	if err != nil {
		h.errs.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: u.ID})
}
