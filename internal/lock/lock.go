package lock

import (
	"context"
	"errors"
	"time"
)

var ErrNotAcquired = errors.New("lock held by another process")

const releaseTimeout = 5 * time.Second

// Locker hands out named, process-wide exclusive locks. A nil error means the
// caller holds the lock until release is called.
type Locker interface {
	TryAcquire(ctx context.Context, name string) (release func(), err error)
}
