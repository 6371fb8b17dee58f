// Package service implements the rslist operations behind the HTTP API:
// ranked list composition, rank slot purchases and votes.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rslist/internal/adapters/repository"
	"github.com/okian/rslist/internal/domain/keylock"
	"github.com/okian/rslist/internal/domain/model"
	"github.com/okian/rslist/internal/domain/ranking"
	"github.com/okian/rslist/pkg/logger"
	"github.com/okian/rslist/pkg/metrics"
)

const (
	defaultVoteBudget    = 10
	defaultBuyMaxRetries = 3
)

// Service implements the API dependencies for the ranked event list.
type Service struct {
	mu sync.RWMutex

	store repository.Store
	locks keylock.Locker

	defaultVoteBudget int
	resolution        ranking.Resolution
	buyMaxRetries     int
	now               func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service. Without WithStore it keeps state in memory.
func New(opts ...Option) *Service {
	s := &Service{
		defaultVoteBudget: defaultVoteBudget,
		resolution:        ranking.ByIndex,
		buyMaxRetries:     defaultBuyMaxRetries,
		now:               func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.locks == nil {
		s.locks = keylock.New()
	}
	return s
}

// Start marks the service ready and publishes the initial store gauges.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.started = true
	s.mu.Unlock()

	s.log().Info(ctx, "rslist service started",
		logger.String("slotResolution", string(s.resolution)),
		logger.Int("defaultVoteBudget", s.defaultVoteBudget),
		logger.Int("buyMaxRetries", s.buyMaxRetries),
	)
	return s.RefreshGauges(ctx)
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.log().Warn(context.Background(), "closing store", logger.Error(err))
	}
	s.started = false
	s.log().Info(context.Background(), "rslist service stopped")
}

func (s *Service) log() logger.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logger.Get()
}

// RegisterUser creates a user. A nil budget grants the default budget.
func (s *Service) RegisterUser(ctx context.Context, name, email string, budget *int) (model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	u := model.User{Name: name, Email: strings.TrimSpace(email), VoteBudget: s.defaultVoteBudget}
	if budget != nil {
		if *budget < 0 {
			return model.User{}, fmt.Errorf("%w: vote budget must not be negative", ErrInvalidUser)
		}
		u.VoteBudget = *budget
	}
	if err := s.store.SaveUser(ctx, &u); err != nil {
		return model.User{}, err
	}
	s.log().Debug(ctx, "user registered", logger.Uint("userId", u.ID), logger.Int("voteBudget", u.VoteBudget))
	return u, nil
}

// AddEvent creates an event with zero votes owned by userID.
func (s *Service) AddEvent(ctx context.Context, name, keyword string, userID uint) (model.Event, error) {
	name, keyword = strings.TrimSpace(name), strings.TrimSpace(keyword)
	switch {
	case name == "":
		return model.Event{}, fmt.Errorf("%w: eventName is required", ErrInvalidEvent)
	case keyword == "":
		return model.Event{}, fmt.Errorf("%w: keyword is required", ErrInvalidEvent)
	case userID == 0:
		return model.Event{}, fmt.Errorf("%w: userId is required", ErrInvalidEvent)
	}

	e := model.Event{Name: name, Keyword: keyword, UserID: userID}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrUserNotFound, userID)
			}
			return err
		}
		return tx.SaveEvent(ctx, &e)
	})
	if err != nil {
		return model.Event{}, err
	}
	s.log().Debug(ctx, "event added", logger.Uint("eventId", e.ID), logger.Uint("userId", userID))
	return e, nil
}

// List composes the full ranked list.
func (s *Service) List(ctx context.Context) ([]model.Event, error) {
	return s.compose(ctx)
}

// ListWindow composes the ranked list and returns positions start..end,
// both 1-based and inclusive.
func (s *Service) ListWindow(ctx context.Context, start, end int) ([]model.Event, error) {
	return s.compose(ctx, ranking.WithWindow(start, end))
}

func (s *Service) compose(ctx context.Context, opts ...ranking.Option) ([]model.Event, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	begin := time.Now()
	out, err := ranking.Compose(snap.Events, snap.Slots, append(opts, ranking.WithResolution(s.resolution))...)
	metrics.RecordComposeLatency(float64(time.Since(begin).Microseconds()) / 1000)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, ranking.ErrInvalidRange):
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	case errors.Is(err, ranking.ErrSlotOutOfRange), errors.Is(err, ranking.ErrDuplicateRank):
		metrics.RecordComposeError()
		s.log().Error(ctx, "cannot compose ranked list", logger.Error(err),
			logger.Int("events", len(snap.Events)), logger.Int("slots", len(snap.Slots)))
		return nil, fmt.Errorf("%w: %w", ErrInconsistentState, err)
	default:
		return nil, err
	}
}

// Get returns the event at 1-based position index of the store order.
func (s *Service) Get(ctx context.Context, index int) (model.Event, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return model.Event{}, err
	}
	if index < 1 || index > len(events) {
		return model.Event{}, fmt.Errorf("%w: %d outside 1..%d", ErrInvalidIndex, index, len(events))
	}
	return events[index-1], nil
}

// Ledger returns every successful purchase in append order.
func (s *Service) Ledger(ctx context.Context) ([]model.LedgerEntry, error) {
	return s.store.ListLedger(ctx)
}

type buyOutcome struct {
	outcome string
	evicted uint
	entry   model.LedgerEntry
}

// Buy places bid on a rank for eventID. A free rank is taken at any amount;
// a held rank is taken only by a strictly higher amount, which deletes the
// previous occupant event.
func (s *Service) Buy(ctx context.Context, bid model.Bid, eventID uint) error {
	if bid.Amount < 0 || bid.Rank < 1 {
		metrics.RecordPurchase(metrics.OutcomeRejected)
		return fmt.Errorf("%w: amount %d rank %d", ErrInvalidBid, bid.Amount, bid.Rank)
	}

	unlock, err := s.locks.Lock(ctx, fmt.Sprintf("rank:%d", bid.Rank))
	if err != nil {
		return err
	}
	defer unlock()

	begin := time.Now()
	var res buyOutcome
	for attempt := 0; ; attempt++ {
		res, err = s.buyOnce(ctx, bid, eventID)
		if err == nil || !errors.Is(err, repository.ErrConflict) || attempt >= s.buyMaxRetries {
			break
		}
		metrics.RecordPurchase(metrics.OutcomeConflict)
		s.log().Debug(ctx, "purchase conflicted, retrying",
			logger.Int("rank", bid.Rank), logger.Int("attempt", attempt+1), logger.Error(err))
	}
	elapsed := time.Since(begin)
	metrics.RecordPurchaseLatency(float64(elapsed.Microseconds()) / 1000)
	metrics.RecordStoreLatency("buy", float64(elapsed.Microseconds())/1000)

	if err != nil {
		if errors.Is(err, ErrInsufficientAmount) {
			metrics.RecordPurchase(metrics.OutcomeRejected)
			s.log().Info(ctx, "purchase rejected",
				logger.Int("rank", bid.Rank), logger.Int("amount", bid.Amount), logger.Uint("eventId", eventID))
		}
		return err
	}

	metrics.RecordPurchase(res.outcome)
	fields := []logger.Field{
		logger.String("outcome", res.outcome),
		logger.Int("rank", bid.Rank),
		logger.Int("amount", bid.Amount),
		logger.Uint("eventId", eventID),
		logger.String("ledgerId", res.entry.ID),
	}
	if res.outcome == metrics.OutcomeReplaced {
		metrics.RecordEviction()
		fields = append(fields, logger.Uint("evictedEventId", res.evicted))
	}
	s.log().Info(ctx, "purchase accepted", fields...)
	return nil
}

func (s *Service) buyOnce(ctx context.Context, bid model.Bid, eventID uint) (buyOutcome, error) {
	var res buyOutcome
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		current, err := tx.FindSlotByRank(ctx, bid.Rank)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			res.outcome = metrics.OutcomeCreated
		case err != nil:
			return err
		case bid.Amount <= current.Price:
			return fmt.Errorf("%w: offered %d, rank %d costs %d", ErrInsufficientAmount, bid.Amount, bid.Rank, current.Price)
		default:
			res.outcome = metrics.OutcomeReplaced
			res.evicted = current.EventID
			if err := tx.DeleteEvent(ctx, current.EventID); err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					return err
				}
				s.log().Warn(ctx, "outbid occupant already gone",
					logger.Int("rank", bid.Rank), logger.Uint("eventId", current.EventID))
			}
			if err := tx.DeleteSlot(ctx, current.ID); err != nil {
				return err
			}
		}

		slot := model.RankSlot{RankPos: bid.Rank, Price: bid.Amount, EventID: eventID}
		if err := tx.SaveSlot(ctx, &slot); err != nil {
			return err
		}
		res.entry = model.LedgerEntry{
			ID:        uuid.NewString(),
			Price:     bid.Amount,
			RankPos:   bid.Rank,
			EventID:   eventID,
			CreatedAt: s.now(),
		}
		return tx.AppendLedger(ctx, &res.entry)
	})
	return res, err
}

// Vote moves v.Num votes from the user's budget to the event. Every refusal
// wraps ErrVoteRejected and leaves the stores unchanged.
func (s *Service) Vote(ctx context.Context, v model.Vote, eventID uint) error {
	if v.Num < 1 {
		metrics.RecordVote(false, v.Num)
		return fmt.Errorf("%w: %w", ErrVoteRejected, ErrInvalidVote)
	}

	unlock, err := keylock.LockAll(ctx, s.locks,
		fmt.Sprintf("user:%d", v.UserID), fmt.Sprintf("event:%d", eventID))
	if err != nil {
		return err
	}
	defer unlock()

	when := v.Time
	if when.IsZero() {
		when = s.now()
	}

	begin := time.Now()
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		e, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %w: %d", ErrVoteRejected, ErrEventNotFound, eventID)
			}
			return err
		}
		u, err := tx.GetUser(ctx, v.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %w: %d", ErrVoteRejected, ErrUserNotFound, v.UserID)
			}
			return err
		}
		if v.Num > u.VoteBudget {
			return fmt.Errorf("%w: %w: %d > %d", ErrVoteRejected, ErrBudgetExceeded, v.Num, u.VoteBudget)
		}

		rec := model.VoteRecord{ID: uuid.NewString(), UserID: u.ID, EventID: e.ID, Num: v.Num, VotedAt: when}
		if err := tx.AppendVote(ctx, &rec); err != nil {
			return err
		}
		u.VoteBudget -= v.Num
		if err := tx.SaveUser(ctx, &u); err != nil {
			return err
		}
		e.Votes += v.Num
		return tx.SaveEvent(ctx, &e)
	})
	metrics.RecordStoreLatency("vote", float64(time.Since(begin).Microseconds())/1000)

	if err != nil {
		if errors.Is(err, ErrVoteRejected) {
			metrics.RecordVote(false, v.Num)
			s.log().Info(ctx, "vote rejected", logger.Uint("userId", v.UserID),
				logger.Uint("eventId", eventID), logger.Int("voteNum", v.Num), logger.Error(err))
		}
		return err
	}
	metrics.RecordVote(true, v.Num)
	s.log().Debug(ctx, "vote accepted", logger.Uint("userId", v.UserID),
		logger.Uint("eventId", eventID), logger.Int("voteNum", v.Num))
	return nil
}

// RefreshGauges publishes store sizes to the metrics gauges.
func (s *Service) RefreshGauges(ctx context.Context) error {
	c, err := s.store.Counts(ctx)
	if err != nil {
		return err
	}
	metrics.UpdateStoreSizes(c.Events, c.Slots, c.Ledger)
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           started,
		"slotResolution":    string(s.resolution),
		"defaultVoteBudget": s.defaultVoteBudget,
		"buyMaxRetries":     s.buyMaxRetries,
		"activeLocks":       s.locks.Size(),
	}
	c, err := s.store.Counts(ctx)
	if err != nil {
		stats["storeError"] = err.Error()
		return stats
	}
	stats["events"] = c.Events
	stats["users"] = c.Users
	stats["rankSlots"] = c.Slots
	stats["ledgerEntries"] = c.Ledger
	stats["voteRecords"] = c.Votes
	metrics.UpdateStoreSizes(c.Events, c.Slots, c.Ledger)
	return stats
}
