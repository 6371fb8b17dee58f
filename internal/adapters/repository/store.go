// Package repository defines the rslist store contracts and their memory and
// PostgreSQL implementations.
package repository

import (
	"context"

	"github.com/okian/rslist/internal/domain/model"
)

// EventStore persists events. ListEvents returns events in store order
// (ascending id).
type EventStore interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	// GetEvent returns ErrNotFound if the event is unknown.
	GetEvent(ctx context.Context, id uint) (model.Event, error)
	// SaveEvent inserts e when e.ID is zero, assigning the next id, and
	// updates it otherwise.
	SaveEvent(ctx context.Context, e *model.Event) error
	// DeleteEvent returns ErrNotFound if the event is unknown.
	DeleteEvent(ctx context.Context, id uint) error
}

// UserStore persists users.
type UserStore interface {
	GetUser(ctx context.Context, id uint) (model.User, error)
	SaveUser(ctx context.Context, u *model.User) error
}

// RankSlotStore persists live rank slots. At most one live slot exists per
// rank position.
type RankSlotStore interface {
	// FindSlotByRank returns ErrNotFound when the position is free. Inside a
	// transaction the row stays locked until commit.
	FindSlotByRank(ctx context.Context, rank int) (model.RankSlot, error)
	// SaveSlot inserts a new row and assigns its id. It returns ErrConflict
	// when the position is already taken.
	SaveSlot(ctx context.Context, s *model.RankSlot) error
	DeleteSlot(ctx context.Context, id uint) error
	// ListSlots returns slots in store order (ascending id).
	ListSlots(ctx context.Context) ([]model.RankSlot, error)
}

// LedgerStore is the append-only purchase history.
type LedgerStore interface {
	AppendLedger(ctx context.Context, e *model.LedgerEntry) error
	ListLedger(ctx context.Context) ([]model.LedgerEntry, error)
}

// VoteRecordStore is the append-only vote audit.
type VoteRecordStore interface {
	AppendVote(ctx context.Context, v *model.VoteRecord) error
	ListVotes(ctx context.Context) ([]model.VoteRecord, error)
}

// Tx is the view of the store available inside a transaction.
type Tx interface {
	EventStore
	UserStore
	RankSlotStore
	LedgerStore
	VoteRecordStore
}

// Snapshot is a consistent read of events and slots.
type Snapshot struct {
	Events []model.Event
	Slots  []model.RankSlot
}

// Counts summarizes store sizes.
type Counts struct {
	Events int `json:"events"`
	Users  int `json:"users"`
	Slots  int `json:"rank_slots"`
	Ledger int `json:"ledger_entries"`
	Votes  int `json:"vote_records"`
}

// Store bundles the stores with transaction and snapshot support.
type Store interface {
	Tx

	// InTx runs fn in one transaction. If fn returns an error every write
	// made through tx is discarded. fn must not call InTx or Snapshot.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Snapshot reads events and slots at a single point in time.
	Snapshot(ctx context.Context) (Snapshot, error)

	Counts(ctx context.Context) (Counts, error)

	Close() error
}
