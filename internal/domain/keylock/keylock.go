// Package keylock provides per-key mutual exclusion for transactions that
// must serialize on a rank position, a user or an event.
package keylock

import (
	"context"
	"fmt"
	"sync"
)

// Locker serializes holders of the same key. Distinct keys never block each
// other.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func is the
	// unlock: it releases the key, and calls after the first are no-ops.
	Lock(ctx context.Context, key string) (func(), error)

	// Size reports how many keys are currently held or awaited.
	Size() int
}

// entry is a single key's lock. sem has capacity 1; a token in it means the
// key is held.
type entry struct {
	sem  chan struct{}
	refs int
}

func (e *entry) reset() {
	e.refs = 0
}

type keyLocker struct {
	mu      sync.Mutex
	entries map[string]*entry
	pool    sync.Pool
}

// New creates a Locker.
func New(opts ...Option) Locker {
	l := &keyLocker{
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.pool.New = func() interface{} {
		return &entry{sem: make(chan struct{}, 1)}
	}
	return l
}

func (l *keyLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = l.pool.Get().(*entry)
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, fmt.Errorf("%w: %s: %w", ErrLockCancelled, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *keyLocker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
		e.reset()
		l.pool.Put(e)
	}
}

func (l *keyLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// LockAll acquires keys in the given order and returns a func releasing them
// in reverse. On failure the keys already taken are released.
func LockAll(ctx context.Context, l Locker, keys ...string) (func(), error) {
	unlocks := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, k := range keys {
		unlock, err := l.Lock(ctx, k)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return releaseAll, nil
}
