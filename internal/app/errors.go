package service

import "errors"

// Sentinel errors returned by the service. Handlers classify them with errors.Is.
var (
	// ErrInvalidIndex is returned for a list window or lookup index outside 1..N.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrInsufficientAmount rejects a bid that does not beat the current price.
	ErrInsufficientAmount = errors.New("The amount you pay is not enough to buy that rank") //nolint:stylecheck,revive // message is part of the API

	// ErrInvalidBid rejects a negative amount or a rank below 1.
	ErrInvalidBid = errors.New("invalid bid")

	// ErrVoteRejected wraps every reason a vote is refused.
	ErrVoteRejected   = errors.New("vote rejected")
	ErrEventNotFound  = errors.New("event not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrBudgetExceeded = errors.New("vote budget exceeded")
	ErrInvalidVote    = errors.New("vote count must be positive")

	ErrInvalidEvent = errors.New("invalid event")
	ErrInvalidUser  = errors.New("invalid user")

	// ErrInconsistentState means stored slots cannot be applied to the stored events.
	ErrInconsistentState = errors.New("inconsistent rank slot state")
)
