package ranking

// Resolution selects how a rank slot finds the event it pins.
type Resolution string

const (
	// ByIndex treats RankSlot.EventID as a 1-based index into the working
	// list, which shrinks as earlier slots remove their events.
	ByIndex Resolution = "index"
	// ByIdentity matches RankSlot.EventID against Event.ID. Slots whose
	// event is gone or whose rank is beyond the list are skipped.
	ByIdentity Resolution = "identity"
)

// Option applies a configuration option to a composition.
type Option func(*composer)

// WithResolution sets the slot resolution mode. Unknown modes are ignored.
func WithResolution(r Resolution) Option {
	return func(c *composer) {
		switch r {
		case ByIndex, ByIdentity:
			c.resolution = r
		}
	}
}

// WithWindow restricts the result to the inclusive 1-based range [start, end].
func WithWindow(start, end int) Option {
	return func(c *composer) {
		c.windowed = true
		c.start = start
		c.end = end
	}
}
