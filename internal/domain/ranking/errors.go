package ranking

import "errors"

// Sentinel errors for list composition.
var (
	// ErrSlotOutOfRange means a slot points outside the working event list
	// or the output list. It indicates inconsistent store data.
	ErrSlotOutOfRange = errors.New("rank slot out of range")
	// ErrDuplicateRank means two live slots claim the same rank position.
	ErrDuplicateRank = errors.New("duplicate rank position")
	// ErrInvalidRange means the requested [start, end] window is not within 1..N.
	ErrInvalidRange = errors.New("invalid index")
)
