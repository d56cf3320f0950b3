package controller

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tamas-pataky/cultiva-node/util"
)

const (
	// Attempts is the number of exchanges tried before the link is reset.
	Attempts = 3
	// AckTimeout bounds the wait for the acknowledgement (or an immediate
	// result).
	AckTimeout = 250 * time.Millisecond
	// ResultTimeout bounds the wait for the result after an acknowledgement.
	ResultTimeout = 5000 * time.Millisecond
)

// Link is the framed connection a Session drives. Transport implements it.
type Link interface {
	Flush()
	Write(frame []byte) error
	Receive(timeout time.Duration) (string, error)
	Reset() error
	Close() error
}

// SessionBackoff is the delay after a failed attempt: 0, 250ms, 500ms.
func SessionBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 250 * time.Millisecond
}

// Session is the single owner of the link. All exchanges, resets and the
// final close happen under one lock, so at most one command is on the wire.
type Session struct {
	mu      util.Mutex
	link    Link
	clock   clockwork.Clock
	backoff func(attempt int) time.Duration
	log     zerolog.Logger
}

type SessionOption func(*Session)

func WithSessionClock(clock clockwork.Clock) SessionOption {
	return func(s *Session) { s.clock = clock }
}

func WithSessionBackoff(backoff func(attempt int) time.Duration) SessionOption {
	return func(s *Session) { s.backoff = backoff }
}

func WithSessionLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = logger }
}

func NewSession(link Link, opts ...SessionOption) *Session {
	s := &Session{
		link:    link,
		clock:   clockwork.NewRealClock(),
		backoff: SessionBackoff,
		log:     log.With().Str("module", "session").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send writes cmd and returns the controller's result frame. After Attempts
// failed exchanges the link is reset and a *CommunicationFailedError is
// returned; Send does not try again after the reset.
func (s *Session) Send(cmd Command) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := Encode(cmd)
	var err error
	for attempt := 0; attempt < Attempts; attempt++ {
		var response string
		response, err = s.exchange(cmd.ID, frame)
		if err == nil {
			return response, nil
		}
		delay := s.backoff(attempt)
		s.log.Warn().Err(err).
			Str("id", cmd.ID).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("exchange with controller failed")
		s.clock.Sleep(delay)
	}

	s.log.Error().Str("command", cmd.String()).Msg("communication to controller failed, resetting connection")
	failed := &CommunicationFailedError{Attempts: Attempts, Err: err}
	if resetErr := s.link.Reset(); resetErr != nil {
		s.log.Error().Stack().Err(resetErr).Msg("resetting connection failed")
		failed.ResetErr = resetErr
	}
	return "", failed
}

func (s *Session) exchange(id string, frame []byte) (string, error) {
	s.link.Flush()
	if err := s.link.Write(frame); err != nil {
		return "", err
	}

	response, err := s.link.Receive(AckTimeout)
	if err != nil {
		return "", errors.Wrap(err, "awaiting acknowledgement")
	}
	if !IsJSON(response) {
		return "", errors.Wrapf(ErrMalformedResponse, "expected acknowledgement, received %q", response)
	}
	switch Classify(response, id) {
	case Result:
		// answered without an acknowledgement
		return response, nil
	case Ack:
	default:
		return "", errors.Wrapf(ErrUnexpectedResponse, "expected acknowledgement, received %q", response)
	}

	response, err = s.link.Receive(ResultTimeout)
	if err != nil {
		return "", errors.Wrap(err, "awaiting result")
	}
	if Classify(response, id) != Result {
		return "", errors.Wrapf(ErrUnexpectedResponse, "expected result, received %q", response)
	}
	return response, nil
}

// Reset closes and reopens the link.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link.Reset()
}

// Close releases the link.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link.Close()
}
