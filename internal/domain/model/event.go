// Package model contains domain models passed between layers.
package model

import "time"

// Event is a ranked entry. ID is store-assigned and sequential from 1.
type Event struct {
	ID      uint
	Name    string
	Keyword string
	Votes   int
	UserID  uint
}

// User owns events and spends a vote budget on them.
type User struct {
	ID         uint
	Name       string
	Email      string
	VoteBudget int
}

// RankSlot pins an event to a 1-based rank position. Rows are never updated
// in place; a winning re-bid deletes the row and inserts a new one.
type RankSlot struct {
	ID      uint
	RankPos int
	Price   int
	EventID uint
}

// LedgerEntry records one successful purchase. Entries are append-only.
type LedgerEntry struct {
	ID        string
	Price     int
	RankPos   int
	EventID   uint
	CreatedAt time.Time
}

// VoteRecord is the audit row for a successful vote.
type VoteRecord struct {
	ID      string
	UserID  uint
	EventID uint
	Num     int
	VotedAt time.Time
}

// Bid is an offer to buy a rank position.
type Bid struct {
	Amount int
	Rank   int
}

// Vote moves Num votes from a user's budget to an event.
type Vote struct {
	UserID uint
	Num    int
	Time   time.Time
}
