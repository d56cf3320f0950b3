//go:build deadlock

package util

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = true

func init() {
	// a controller exchange can legitimately hold the lock for a reset
	// plus warmup
	deadlock.Opts.DeadlockTimeout = 2 * time.Minute
}

// A Mutex is a mutual exclusion lock.
type Mutex struct {
	deadlock.Mutex
}
