//go:build !deadlock

package util

import "sync"

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = false

// A Mutex is a mutual exclusion lock. Build with -tags deadlock to swap in
// a lock-order checking implementation.
type Mutex struct {
	sync.Mutex
}
