package platform

import (
	"errors"
	"time"
)

// ErrLockTimeout is returned by Mutex.LockTimeout when the deadline passes
// before the lock is acquired (spec.md §4.2, ETIMEDOUT).
var ErrLockTimeout = errors.New("platform: timed out waiting for lock")

// lockPollInterval is how often LockTimeout retries a non-blocking
// acquisition attempt. There is no portable process-shared primitive with
// a millisecond deadline parameter available from Go, so the timed variant
// is built by polling a non-blocking try at this granularity, matching the
// "millisecond-granularity timed mutex wait" the platform layer is asked
// to provide.
const lockPollInterval = 2 * time.Millisecond
