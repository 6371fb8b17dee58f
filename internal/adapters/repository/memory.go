package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/rslist/internal/domain/model"
)

// memState holds the tables. It is not safe for concurrent use on its own.
type memState struct {
	events      map[uint]model.Event
	nextEventID uint
	users       map[uint]model.User
	nextUserID  uint
	slots       map[uint]model.RankSlot
	slotByRank  map[int]uint
	nextSlotID  uint
	ledger      []model.LedgerEntry
	votes       []model.VoteRecord
}

// MemoryStore is an in-memory Store. Writes inside InTx are recorded in an
// undo log and reverted when the transaction function fails.
type MemoryStore struct {
	mu sync.RWMutex
	st memState
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: memState{
		events:     make(map[uint]model.Event),
		users:      make(map[uint]model.User),
		slots:      make(map[uint]model.RankSlot),
		slotByRank: make(map[int]uint),
	}}
}

// memTx applies writes to the shared state and logs how to revert them.
type memTx struct {
	st   *memState
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) ListEvents(_ context.Context) ([]model.Event, error) {
	out := make([]model.Event, 0, len(t.st.events))
	for _, e := range t.st.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) GetEvent(_ context.Context, id uint) (model.Event, error) {
	e, ok := t.st.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: event %d", ErrNotFound, id)
	}
	return e, nil
}

func (t *memTx) SaveEvent(_ context.Context, e *model.Event) error {
	st := t.st
	if e.ID == 0 {
		prevNext := st.nextEventID
		st.nextEventID++
		e.ID = st.nextEventID
		id := e.ID
		st.events[id] = *e
		t.undo = append(t.undo, func() {
			delete(st.events, id)
			st.nextEventID = prevNext
		})
		return nil
	}
	old, existed := st.events[e.ID]
	st.events[e.ID] = *e
	id := e.ID
	t.undo = append(t.undo, func() {
		if existed {
			st.events[id] = old
		} else {
			delete(st.events, id)
		}
	})
	return nil
}

func (t *memTx) DeleteEvent(_ context.Context, id uint) error {
	st := t.st
	old, ok := st.events[id]
	if !ok {
		return fmt.Errorf("%w: event %d", ErrNotFound, id)
	}
	delete(st.events, id)
	t.undo = append(t.undo, func() { st.events[id] = old })
	return nil
}

func (t *memTx) GetUser(_ context.Context, id uint) (model.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return u, nil
}

func (t *memTx) SaveUser(_ context.Context, u *model.User) error {
	st := t.st
	if u.ID == 0 {
		prevNext := st.nextUserID
		st.nextUserID++
		u.ID = st.nextUserID
		id := u.ID
		st.users[id] = *u
		t.undo = append(t.undo, func() {
			delete(st.users, id)
			st.nextUserID = prevNext
		})
		return nil
	}
	old, existed := st.users[u.ID]
	st.users[u.ID] = *u
	id := u.ID
	t.undo = append(t.undo, func() {
		if existed {
			st.users[id] = old
		} else {
			delete(st.users, id)
		}
	})
	return nil
}

func (t *memTx) FindSlotByRank(_ context.Context, rank int) (model.RankSlot, error) {
	id, ok := t.st.slotByRank[rank]
	if !ok {
		return model.RankSlot{}, fmt.Errorf("%w: rank %d", ErrNotFound, rank)
	}
	return t.st.slots[id], nil
}

func (t *memTx) SaveSlot(_ context.Context, s *model.RankSlot) error {
	st := t.st
	if _, taken := st.slotByRank[s.RankPos]; taken {
		return fmt.Errorf("%w: rank %d already held", ErrConflict, s.RankPos)
	}
	prevNext := st.nextSlotID
	st.nextSlotID++
	s.ID = st.nextSlotID
	id, rank := s.ID, s.RankPos
	st.slots[id] = *s
	st.slotByRank[rank] = id
	t.undo = append(t.undo, func() {
		delete(st.slots, id)
		delete(st.slotByRank, rank)
		st.nextSlotID = prevNext
	})
	return nil
}

func (t *memTx) DeleteSlot(_ context.Context, id uint) error {
	st := t.st
	old, ok := st.slots[id]
	if !ok {
		return fmt.Errorf("%w: slot %d", ErrNotFound, id)
	}
	delete(st.slots, id)
	delete(st.slotByRank, old.RankPos)
	t.undo = append(t.undo, func() {
		st.slots[id] = old
		st.slotByRank[old.RankPos] = id
	})
	return nil
}

func (t *memTx) ListSlots(_ context.Context) ([]model.RankSlot, error) {
	out := make([]model.RankSlot, 0, len(t.st.slots))
	for _, s := range t.st.slots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) AppendLedger(_ context.Context, e *model.LedgerEntry) error {
	st := t.st
	n := len(st.ledger)
	st.ledger = append(st.ledger, *e)
	t.undo = append(t.undo, func() { st.ledger = st.ledger[:n] })
	return nil
}

func (t *memTx) ListLedger(_ context.Context) ([]model.LedgerEntry, error) {
	return append([]model.LedgerEntry(nil), t.st.ledger...), nil
}

func (t *memTx) AppendVote(_ context.Context, v *model.VoteRecord) error {
	st := t.st
	n := len(st.votes)
	st.votes = append(st.votes, *v)
	t.undo = append(t.undo, func() { st.votes = st.votes[:n] })
	return nil
}

func (t *memTx) ListVotes(_ context.Context) ([]model.VoteRecord, error) {
	return append([]model.VoteRecord(nil), t.st.votes...), nil
}

// InTx runs fn holding the write lock.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{st: &s.st}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryStore) read() *memTx { return &memTx{st: &s.st} }

// write runs a single write as its own transaction.
func (s *MemoryStore) write(ctx context.Context, fn func(tx *memTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{st: &s.st})
}

// Snapshot copies events and slots under one read lock.
func (s *MemoryStore) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events, _ := s.read().ListEvents(ctx)
	slots, _ := s.read().ListSlots(ctx)
	return Snapshot{Events: events, Slots: slots}, nil
}

func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Events: len(s.st.events),
		Users:  len(s.st.users),
		Slots:  len(s.st.slots),
		Ledger: len(s.st.ledger),
		Votes:  len(s.st.votes),
	}, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListEvents(ctx)
}

func (s *MemoryStore) GetEvent(ctx context.Context, id uint) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetEvent(ctx, id)
}

func (s *MemoryStore) SaveEvent(ctx context.Context, e *model.Event) error {
	return s.write(ctx, func(tx *memTx) error { return tx.SaveEvent(ctx, e) })
}

func (s *MemoryStore) DeleteEvent(ctx context.Context, id uint) error {
	return s.write(ctx, func(tx *memTx) error { return tx.DeleteEvent(ctx, id) })
}

func (s *MemoryStore) GetUser(ctx context.Context, id uint) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetUser(ctx, id)
}

func (s *MemoryStore) SaveUser(ctx context.Context, u *model.User) error {
	return s.write(ctx, func(tx *memTx) error { return tx.SaveUser(ctx, u) })
}

func (s *MemoryStore) FindSlotByRank(ctx context.Context, rank int) (model.RankSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindSlotByRank(ctx, rank)
}

func (s *MemoryStore) SaveSlot(ctx context.Context, slot *model.RankSlot) error {
	return s.write(ctx, func(tx *memTx) error { return tx.SaveSlot(ctx, slot) })
}

func (s *MemoryStore) DeleteSlot(ctx context.Context, id uint) error {
	return s.write(ctx, func(tx *memTx) error { return tx.DeleteSlot(ctx, id) })
}

func (s *MemoryStore) ListSlots(ctx context.Context) ([]model.RankSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListSlots(ctx)
}

func (s *MemoryStore) AppendLedger(ctx context.Context, e *model.LedgerEntry) error {
	return s.write(ctx, func(tx *memTx) error { return tx.AppendLedger(ctx, e) })
}

func (s *MemoryStore) ListLedger(ctx context.Context) ([]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListLedger(ctx)
}

func (s *MemoryStore) AppendVote(ctx context.Context, v *model.VoteRecord) error {
	return s.write(ctx, func(tx *memTx) error { return tx.AppendVote(ctx, v) })
}

func (s *MemoryStore) ListVotes(ctx context.Context) ([]model.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListVotes(ctx)
}
