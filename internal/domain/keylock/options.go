package keylock

// Option applies a configuration option to the key locker.
type Option func(*keyLocker)

// WithExpectedKeys presizes the key table.
func WithExpectedKeys(n int) Option {
	return func(l *keyLocker) {
		if n > 0 {
			l.entries = make(map[string]*entry, n)
		}
	}
}
