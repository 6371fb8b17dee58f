package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/rslist/internal/domain/model"
)

// VoteDependencies defines the vote operation.
type VoteDependencies interface {
	Vote(ctx context.Context, v model.Vote, eventID uint) error
}

// voteRequest is the body of POST /rs/vote/{id}.
type voteRequest struct {
	UserID   uint   `json:"userId"`
	VoteNum  int    `json:"voteNum"`
	VoteTime string `json:"voteTime"`
}

// Layouts accepted for voteTime, tried in order.
var voteTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}

func (v voteRequest) toVote() (model.Vote, error) {
	out := model.Vote{UserID: v.UserID, Num: v.VoteNum}
	raw := strings.TrimSpace(v.VoteTime)
	if raw == "" {
		return out, nil
	}
	for _, layout := range voteTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			out.Time = t.UTC()
			return out, nil
		}
	}
	return model.Vote{}, fmt.Errorf("invalid voteTime %q", raw)
}

// VoteHandler handles vote requests.
type VoteHandler struct {
	deps VoteDependencies
	errs *responder
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(deps VoteDependencies, errs *responder) *VoteHandler {
	return &VoteHandler{deps: deps, errs: errs}
}

// HandleVote handles POST /rs/vote/{id}.
func (h *VoteHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.vote"
	eventID, err := pathID(r, "id")
	if err != nil {
		h.errs.fail(w, r, Wrap(op, err))
		return
	}
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	v, err := req.toVote()
	if err != nil {
		h.errs.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Vote(r.Context(), v, eventID); err != nil {
		h.errs.fail(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusOK)
}
