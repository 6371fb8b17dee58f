// Package loadgen drives a running rslist server with concurrent votes and
// rank purchases, then checks the ranked list is still consistent.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Users     int           // Number of users to register
	Events    int           // Number of events to add
	Budget    int           // Vote budget per user
	Votes     int           // Number of vote requests
	Bids      int           // Number of buy requests
	Ranks     int           // Bids target ranks 1..Ranks
	MaxAmount int           // Bid amounts are drawn from 0..MaxAmount
	Workers   int           // Concurrent requests in flight
	Timeout   time.Duration // HTTP request timeout
	Seed      uint64        // Seed for the traffic plan
	Report    string        // Optional JSON report path
	Verbose   bool          // Log every rejected request
}

// Defaults used by the command line tool.
const (
	DefaultUsers     = 20
	DefaultEvents    = 50
	DefaultBudget    = 10
	DefaultVotes     = 500
	DefaultBids      = 200
	DefaultRanks     = 5
	DefaultMaxAmount = 1000
	DefaultTimeout   = 10 * time.Second
)

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Users <= 0 {
		out.Users = DefaultUsers
	}
	if out.Events <= 0 {
		out.Events = DefaultEvents
	}
	if out.Budget <= 0 {
		out.Budget = DefaultBudget
	}
	if out.Ranks <= 0 {
		out.Ranks = DefaultRanks
	}
	if out.MaxAmount <= 0 {
		out.MaxAmount = DefaultMaxAmount
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return &out
}

// Stats holds counters for a run.
type Stats struct {
	UsersRegistered int           `json:"usersRegistered"`
	EventsAdded     int           `json:"eventsAdded"`
	VotesAccepted   int           `json:"votesAccepted"`
	VotesRejected   int           `json:"votesRejected"`
	BidsAccepted    int           `json:"bidsAccepted"`
	BidsRejected    int           `json:"bidsRejected"`
	Failed          int           `json:"failed"`
	EventsEvicted   int           `json:"eventsEvicted"`
	PinsChecked     int           `json:"pinsChecked"`
	StartTime       time.Time     `json:"startTime"`
	EndTime         time.Time     `json:"endTime"`
	Duration        time.Duration `json:"duration"`
}

// Report is the outcome of a run.
type Report struct {
	Stats      Stats    `json:"stats"`
	Resolution string   `json:"slotResolution"`
	Problems   []string `json:"problems,omitempty"`
}

// OK reports whether verification found no problems.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

// event is the list and get view returned by the server.
type event struct {
	ID        uint   `json:"id"`
	EventName string `json:"eventName"`
	VoteNum   int    `json:"voteNum"`
}

type ledgerEntry struct {
	ID      string `json:"id"`
	Amount  int    `json:"amount"`
	Rank    int    `json:"rank"`
	EventID uint   `json:"eventId"`
}
