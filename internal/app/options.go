package service

import (
	"time"

	"github.com/okian/rslist/internal/adapters/repository"
	"github.com/okian/rslist/internal/domain/keylock"
	"github.com/okian/rslist/internal/domain/ranking"
	"github.com/okian/rslist/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the backing store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLocker replaces the per-key locker.
func WithLocker(l keylock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locks = l
		}
	}
}

// WithDefaultVoteBudget sets the budget of users registered without one.
func WithDefaultVoteBudget(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.defaultVoteBudget = n
		}
	}
}

// WithSlotResolution selects index or identity slot resolution.
func WithSlotResolution(mode string) Option {
	return func(s *Service) {
		switch r := ranking.Resolution(mode); r {
		case ranking.ByIndex, ranking.ByIdentity:
			s.resolution = r
		}
	}
}

// WithBuyMaxRetries bounds how often a purchase is retried after a conflict.
func WithBuyMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.buyMaxRetries = n
		}
	}
}

// WithClock overrides the time source for ledger and vote timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
