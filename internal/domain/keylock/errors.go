package keylock

import "errors"

// ErrLockCancelled is returned when the context ends before the key is held.
var ErrLockCancelled = errors.New("key lock cancelled")
