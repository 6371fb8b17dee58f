package loadgen

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

const resolutionIdentity = "identity"

// verify checks the server state after the traffic has settled and returns
// the problems found. The error is reserved for requests that could not be
// made at all.
func verify(ctx context.Context, c *client, cfg *Config, seeded []uint, t *tally, report *Report) error {
	var list []event
	status, apiErr, err := c.do(ctx, http.MethodGet, "/rs/list", nil, &list)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		report.Problems = append(report.Problems,
			fmt.Sprintf("GET /rs/list returned %d: %s", status, apiErr.Error))
		return nil
	}

	stored, err := storedIDs(ctx, c, len(list))
	if err != nil {
		return err
	}
	report.Problems = append(report.Problems, checkPermutation(list, stored, seeded)...)
	report.Stats.EventsEvicted = len(seeded) - len(list)

	for _, e := range list {
		if want := t.votesFor(e.ID); e.VoteNum != want {
			report.Problems = append(report.Problems,
				fmt.Sprintf("event %d has %d votes, %d were accepted", e.ID, e.VoteNum, want))
		}
	}

	var ledger []ledgerEntry
	if err := c.expect(ctx, http.StatusOK, http.MethodGet, "/rs/ledger", nil, &ledger); err != nil {
		return err
	}
	if got, want := len(ledger), int(t.bidsAccepted.Load()); got != want {
		report.Problems = append(report.Problems,
			fmt.Sprintf("ledger has %d entries, %d bids were accepted", got, want))
	}
	for _, l := range ledger {
		if l.Rank < 1 || l.Rank > cfg.Ranks {
			report.Problems = append(report.Problems, fmt.Sprintf("ledger entry %s has rank %d", l.ID, l.Rank))
		}
	}

	var stats map[string]any
	if err := c.expect(ctx, http.StatusOK, http.MethodGet, "/stats", nil, &stats); err != nil {
		return err
	}
	report.Resolution, _ = stats["slotResolution"].(string)
	if n, ok := stats["events"].(float64); ok && int(n) != len(list) {
		report.Problems = append(report.Problems,
			fmt.Sprintf("stats report %d events, list has %d", int(n), len(list)))
	}

	if report.Resolution == resolutionIdentity {
		checked, problems := checkPins(list, ledger)
		report.Stats.PinsChecked = checked
		report.Problems = append(report.Problems, problems...)
	}
	return nil
}

// storedIDs reads the stored order through GET /rs/{index} and confirms the
// store holds exactly n events.
func storedIDs(ctx context.Context, c *client, n int) ([]uint, error) {
	ids := make([]uint, 0, n)
	for i := 1; i <= n; i++ {
		var e event
		if err := c.expect(ctx, http.StatusOK, http.MethodGet, "/rs/"+strconv.Itoa(i), nil, &e); err != nil {
			return nil, err
		}
		ids = append(ids, e.ID)
	}
	status, _, err := c.do(ctx, http.MethodGet, "/rs/"+strconv.Itoa(n+1), nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusBadRequest {
		return nil, fmt.Errorf("%w: GET /rs/%d: %d, store holds more events than the list", ErrUnexpectedStatus, n+1, status)
	}
	return ids, nil
}

func checkPermutation(list []event, stored, seeded []uint) []string {
	var problems []string
	known := make(map[uint]bool, len(seeded))
	for _, id := range seeded {
		known[id] = true
	}
	inList := make(map[uint]bool, len(list))
	for i, e := range list {
		if inList[e.ID] {
			problems = append(problems, fmt.Sprintf("event %d listed twice (position %d)", e.ID, i+1))
		}
		if !known[e.ID] {
			problems = append(problems, fmt.Sprintf("event %d was never added", e.ID))
		}
		inList[e.ID] = true
	}
	for _, id := range stored {
		if !inList[id] {
			problems = append(problems, fmt.Sprintf("stored event %d missing from the list", id))
		}
	}
	return problems
}

// checkPins confirms every rank's current owner sits at that rank. The owner
// is the event of the last ledger entry for the rank. Events owning more
// than one rank, evicted owners and ranks past the list end are skipped.
func checkPins(list []event, ledger []ledgerEntry) (int, []string) {
	owner := make(map[int]uint)
	for _, l := range ledger {
		owner[l.Rank] = l.EventID
	}
	holds := make(map[uint]int)
	for _, id := range owner {
		holds[id]++
	}
	alive := make(map[uint]bool, len(list))
	for _, e := range list {
		alive[e.ID] = true
	}

	checked := 0
	var problems []string
	for rank, id := range owner {
		if holds[id] != 1 || !alive[id] || rank > len(list) {
			continue
		}
		checked++
		if got := list[rank-1].ID; got != id {
			problems = append(problems, fmt.Sprintf("rank %d holds event %d, bought by event %d", rank, got, id))
		}
	}
	return checked, problems
}
