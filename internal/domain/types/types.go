// Package types contains the JSON views returned by the HTTP API.
package types

import (
	"time"

	"github.com/okian/rslist/internal/domain/model"
)

// EventView is an event as rendered in list and get responses. The owning
// user is deliberately not exposed.
type EventView struct {
	ID        uint   `json:"id"`
	EventName string `json:"eventName"`
	Keyword   string `json:"keyword"`
	VoteNum   int    `json:"voteNum"`
}

// LedgerView is a purchase ledger entry as rendered by GET /rs/ledger.
type LedgerView struct {
	ID        string    `json:"id"`
	Amount    int       `json:"amount"`
	Rank      int       `json:"rank"`
	EventID   uint      `json:"eventId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewEventView converts a domain event.
func NewEventView(e model.Event) EventView {
	return EventView{ID: e.ID, EventName: e.Name, Keyword: e.Keyword, VoteNum: e.Votes}
}

// NewEventViews converts a slice of events preserving order.
func NewEventViews(events []model.Event) []EventView {
	out := make([]EventView, len(events))
	for i, e := range events {
		out[i] = NewEventView(e)
	}
	return out
}

// NewLedgerViews converts ledger entries preserving order.
func NewLedgerViews(entries []model.LedgerEntry) []LedgerView {
	out := make([]LedgerView, len(entries))
	for i, e := range entries {
		out[i] = LedgerView{ID: e.ID, Amount: e.Price, Rank: e.RankPos, EventID: e.EventID, CreatedAt: e.CreatedAt}
	}
	return out
}
