// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/rslist/internal/app"
	"github.com/okian/rslist/internal/domain/keylock"
	"github.com/okian/rslist/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ListDependencies
	EventDependencies
	VoteDependencies
	BuyDependencies
	UserDependencies
	LedgerDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	listHandler   *ListHandler
	eventsHandler *EventsHandler
	voteHandler   *VoteHandler
	buyHandler    *BuyHandler
	userHandler   *UserHandler
	ledgerHandler *LedgerHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	log logger.Logger
}

// WithLogger sets the logger used to report failed requests.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Get()
	}
	errs := &responder{log: cfg.log}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		listHandler:   NewListHandler(deps, errs),
		eventsHandler: NewEventsHandler(deps, errs),
		voteHandler:   NewVoteHandler(deps, errs),
		buyHandler:    NewBuyHandler(deps, errs),
		userHandler:   NewUserHandler(deps, errs),
		ledgerHandler: NewLedgerHandler(deps, errs),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /rs/list", MetricsMiddleware(s.listHandler.HandleList, "rs_list"))
	mux.HandleFunc("GET /rs/ledger", MetricsMiddleware(s.ledgerHandler.HandleLedger, "rs_ledger"))
	mux.HandleFunc("GET /rs/{index}", MetricsMiddleware(s.listHandler.HandleGet, "rs_get"))
	mux.HandleFunc("POST /rs/event", MetricsMiddleware(s.eventsHandler.HandleAddEvent, "rs_event"))
	mux.HandleFunc("POST /rs/vote/{id}", MetricsMiddleware(s.voteHandler.HandleVote, "rs_vote"))
	mux.HandleFunc("POST /rs/buy/{id}", MetricsMiddleware(s.buyHandler.HandleBuy, "rs_buy"))
	mux.HandleFunc("POST /user", MetricsMiddleware(s.userHandler.HandleRegister, "user"))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type idResponse struct {
	ID uint `json:"id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	if cs, ok := w.(codeSetter); ok {
		cs.setErrorCode(code)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// responder maps service errors to HTTP responses.
type responder struct {
	log logger.Logger
}

func (rs *responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *Error
	op := "api"
	if errors.As(err, &apiErr) {
		op = apiErr.Op
	}

	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidPath):
		writeError(w, http.StatusBadRequest, codeBadRequest, clientMessage(err))
	case errors.Is(err, service.ErrInvalidIndex):
		writeError(w, http.StatusBadRequest, codeInvalidIndex, service.ErrInvalidIndex.Error())
	case errors.Is(err, service.ErrInsufficientAmount):
		writeError(w, http.StatusBadRequest, codeInsufficientAmount, service.ErrInsufficientAmount.Error())
	case errors.Is(err, service.ErrInvalidBid):
		writeError(w, http.StatusBadRequest, codeInvalidBid, clientMessage(err))
	case errors.Is(err, service.ErrVoteRejected):
		writeError(w, http.StatusBadRequest, codeVoteRejected, clientMessage(err))
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrInvalidEvent),
		errors.Is(err, service.ErrInvalidUser):
		writeError(w, http.StatusBadRequest, codeBadRequest, clientMessage(err))
	case errors.Is(err, keylock.ErrLockCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, ErrUnavailable.Error())
	default:
		rs.log.Error(r.Context(), "request failed",
			logger.String("op", op), logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, ErrInternal.Error())
	}
}

// clientMessage strips the handler op so only the domain reason is returned.
func clientMessage(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch {
	case apiErr.Err == nil && apiErr.Kind != nil:
		return apiErr.Kind.Error()
	case apiErr.Err == nil:
		return err.Error()
	case apiErr.Kind != nil && !errors.Is(apiErr.Err, apiErr.Kind):
		return apiErr.Kind.Error() + ": " + apiErr.Err.Error()
	default:
		return apiErr.Err.Error()
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("malformed body: %w", err)
	}
	return nil
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (uint, error) {
	raw := r.PathValue(name)
	n, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidPath, name, raw)
	}
	return uint(n), nil
}
