// Package push is a service running commands pushed over the message bus.
//
// A hub publishes on the "command" topic:
//
//	{"topic": "command", "command": "openPorts", "arguments": ["1", "2"], "reply_to": "result/hub"}
//
// and the result is published on reply_to, or on "result" when none is given.
package push

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tamas-pataky/cultiva-node/pubsub"
	"github.com/tamas-pataky/cultiva-node/services"
)

// Service push
type Service struct {
	Publisher  pubsub.Publisher
	Subscriber pubsub.Subscriber
	Commands   services.Commands
}

// ID of the service
func (service *Service) ID() string {
	return "push"
}

func (service *Service) handle(ctx context.Context, ev *pubsub.Event) {
	command := ev.Command()
	if command == "" {
		log.Warn().Str("event", ev.String()).Msg("command event without a command")
		return
	}
	logger := log.With().Str("module", "Push").Str("command", command).Logger()
	result := service.Commands.Run(logger.WithContext(ctx), command, ev.StringsField("arguments"))
	services.SendResult(service.Publisher, ev, result)
}

// Run handles commands until ctx is cancelled or the subscription ends.
// Commands run one at a time, in the order they arrive.
func (service *Service) Run(ctx context.Context) error {
	events := service.Subscriber.Subscribe(pubsub.Exact("command"))
	defer service.Subscriber.Close(events)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			service.handle(ctx, ev)
		}
	}
}
