// Package ranking composes the visible event ordering from vote counts and
// purchased rank slots.
package ranking

import (
	"fmt"
	"sort"

	"github.com/okian/rslist/internal/domain/model"
)

type composer struct {
	resolution Resolution
	windowed   bool
	start, end int
}

// Compose merges events and slots into the ranked list.
//
// Slots are applied in the order given: each removes its event from the
// working list and places it at RankPos. The remaining events fill the free
// positions front to back in descending vote order, ties keeping store order.
// Inputs are not modified.
func Compose(events []model.Event, slots []model.RankSlot, opts ...Option) ([]model.Event, error) {
	c := composer{resolution: ByIndex}
	for _, opt := range opts {
		opt(&c)
	}

	n := len(events)
	out := make([]model.Event, n)
	filled := make([]bool, n)
	working := append(make([]model.Event, 0, n), events...)

	var err error
	if c.resolution == ByIdentity {
		working = pinByIdentity(working, slots, out, filled)
	} else {
		working, err = pinByIndex(working, slots, out, filled)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(working, func(i, j int) bool {
		return working[i].Votes > working[j].Votes
	})

	next := 0
	for i := range out {
		if filled[i] {
			continue
		}
		out[i] = working[next]
		next++
	}

	if !c.windowed {
		return out, nil
	}
	if c.start < 1 || c.end > n || c.start > c.end {
		return nil, fmt.Errorf("%w: [%d, %d] outside 1..%d", ErrInvalidRange, c.start, c.end, n)
	}
	return out[c.start-1 : c.end], nil
}

func pinByIndex(working []model.Event, slots []model.RankSlot, out []model.Event, filled []bool) ([]model.Event, error) {
	for _, s := range slots {
		idx := int(s.EventID) - 1
		if idx < 0 || idx >= len(working) {
			return nil, fmt.Errorf("%w: slot %d event index %d, %d events left", ErrSlotOutOfRange, s.ID, s.EventID, len(working))
		}
		pos := s.RankPos - 1
		if pos < 0 || pos >= len(out) {
			return nil, fmt.Errorf("%w: slot %d rank %d, list size %d", ErrSlotOutOfRange, s.ID, s.RankPos, len(out))
		}
		if filled[pos] {
			return nil, fmt.Errorf("%w: rank %d", ErrDuplicateRank, s.RankPos)
		}
		out[pos] = working[idx]
		filled[pos] = true
		working = append(working[:idx], working[idx+1:]...)
	}
	return working, nil
}

func pinByIdentity(working []model.Event, slots []model.RankSlot, out []model.Event, filled []bool) []model.Event {
	for _, s := range slots {
		pos := s.RankPos - 1
		if pos < 0 || pos >= len(out) || filled[pos] {
			continue
		}
		idx := -1
		for i := range working {
			if working[i].ID == s.EventID {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		out[pos] = working[idx]
		filled[pos] = true
		working = append(working[:idx], working[idx+1:]...)
	}
	return working
}
