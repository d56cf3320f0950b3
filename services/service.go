// Package services wires the node together: the command dispatcher and the
// long running services (api, push, schedules) that feed it.
package services

import (
	"context"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tamas-pataky/cultiva-node/pubsub"
)

// Service interface
type Service interface {
	ID() string
	Run(ctx context.Context) error
}

var serviceMap = map[string]Service{}

func Register(service Service) {
	if _, exists := serviceMap[service.ID()]; exists {
		log.Fatal().Msgf("Duplicate service registered: %s", service.ID())
	}
	serviceMap[service.ID()] = service
}

// Launch runs the named services until ctx is cancelled or one of them
// fails, which cancels the rest.
func Launch(ctx context.Context, names []string) error {
	var enabled []Service
	for _, name := range names {
		service, ok := serviceMap[name]
		if !ok {
			return errors.Errorf("service %s does not exist", name)
		}
		enabled = append(enabled, service)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, service := range enabled {
		service := service
		g.Go(func() error {
			log.Info().Msgf("Starting %s", service.ID())
			if err := service.Run(ctx); err != nil {
				return errors.Wrapf(err, "running service %s", service.ID())
			}
			log.Info().Msgf("Stopped %s", service.ID())
			return nil
		})
	}
	return g.Wait()
}

// Heartbeat announces the node on the bus every Interval with a retained
// event, so the hub can see when it was last alive.
type Heartbeat struct {
	Node      string
	Publisher pubsub.Publisher
	Interval  time.Duration
	Clock     clockwork.Clock
}

func (h *Heartbeat) ID() string {
	return "heartbeat"
}

func (h *Heartbeat) Run(ctx context.Context) error {
	clock := h.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := h.Interval
	if interval == 0 {
		interval = time.Minute
	}
	started := clock.Now()
	fields := pubsub.Fields{
		"node":    h.Node,
		"pid":     os.Getpid(),
		"started": started.Format(time.RFC3339),
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		fields["uptime"] = int(clock.Since(started).Seconds())
		ev := pubsub.NewEvent("heartbeat", pubsub.Fields{})
		ev.SetFields(fields)
		ev.SetRetained(true)
		h.Publisher.Emit(ev)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}
