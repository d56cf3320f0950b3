package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/tamas-pataky/cultiva-node/util"
)

// Schedule runs a command every Interval, Offset into the period.
type Schedule struct {
	Command  string
	Interval time.Duration
	Offset   time.Duration
	Commands Commands
	Clock    clockwork.Clock
}

func (s *Schedule) ID() string {
	return "schedule:" + s.Command
}

func (s *Schedule) Run(ctx context.Context) error {
	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := log.With().Str("module", "Scheduler").Str("command", s.Command).Logger()
	ctx = logger.WithContext(ctx)

	scheduler := util.NewScheduler(clock, s.Offset, s.Interval)
	defer scheduler.Stop()
	logger.Info().Msgf("Running every %s", util.ShortDuration(s.Interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-scheduler.C:
			result := s.Commands.Run(ctx, s.Command, nil)
			logger.Info().Bool("success", result.Success).Interface("result", result.Result).Msg("scheduled run finished")
		}
	}
}
