package lock

import "errors"

// ErrLockTimeout is returned when lock acquisition times out.
var ErrLockTimeout = errors.New("lock acquisition timed out")
