package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamas-pataky/cultiva-node/pubsub/dummy"
)

type funcService struct {
	id  string
	run func(ctx context.Context) error
}

func (s *funcService) ID() string                    { return s.id }
func (s *funcService) Run(ctx context.Context) error { return s.run(ctx) }

func TestLaunchUnknown(t *testing.T) {
	err := Launch(context.Background(), []string{"nonexistent"})
	assert.EqualError(t, err, "service nonexistent does not exist")
}

func TestLaunchCancelsOnFailure(t *testing.T) {
	stopped := make(chan struct{})
	Register(&funcService{id: "test-waits", run: func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return nil
	}})
	Register(&funcService{id: "test-fails", run: func(context.Context) error {
		return errors.New("port in use")
	}})

	err := Launch(context.Background(), []string{"test-waits", "test-fails"})
	assert.EqualError(t, err, "running service test-fails: port in use")
	<-stopped
}

func TestHeartbeat(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pub := &dummy.Publisher{}
	h := &Heartbeat{Node: "shed", Publisher: pub, Interval: time.Minute, Clock: clock}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- h.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return len(pub.Emitted()) == 2 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	events := pub.Emitted()
	assert.Equal(t, "heartbeat", events[0].Topic)
	assert.True(t, events[0].Retained)
	assert.Equal(t, "shed", events[0].StringField("node"))
	assert.Equal(t, 0, events[0].Fields["uptime"])
	assert.Equal(t, 60, events[1].Fields["uptime"])
}
