package util

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultAttempts is how many times Retry runs an operation.
const DefaultAttempts = 3

// RetryBackoff waits half a second longer after each failure: 0s, 0.5s, 1s.
func RetryBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 500 * time.Millisecond
}

// Retrier describes how to retry a fallible operation. The zero value
// retries DefaultAttempts times with RetryBackoff on the real clock and
// logs nothing.
type Retrier struct {
	Attempts int
	Backoff  func(attempt int) time.Duration
	Clock    clockwork.Clock
	Log      zerolog.Logger
}

// WithLogger returns a copy of r logging to l.
func (r Retrier) WithLogger(l zerolog.Logger) Retrier {
	r.Log = l
	return r
}

// Retry runs op until it succeeds or the attempts are used up, and returns
// the last error unchanged.
func Retry(r Retrier, op func() error) error {
	_, err := RetryValue(r, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// RetryValue is Retry for operations returning a value.
func RetryValue[T any](r Retrier, op func() (T, error)) (T, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	backoff := r.Backoff
	if backoff == nil {
		backoff = RetryBackoff
	}
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var (
		value T
		err   error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		value, err = op()
		if err == nil {
			return value, nil
		}
		r.Log.Error().Stack().Err(err).Int("attempt", attempt).Msg("operation failed")
		if attempt == attempts-1 {
			break
		}
		delay := backoff(attempt)
		r.Log.Info().Msgf("Retrying in %s", delay)
		clock.Sleep(delay)
	}
	return value, err
}
