package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tamas-pataky/cultiva-node/config"
	"github.com/tamas-pataky/cultiva-node/controller"
	"github.com/tamas-pataky/cultiva-node/pubsub"
	"github.com/tamas-pataky/cultiva-node/pubsub/mqtt"
	"github.com/tamas-pataky/cultiva-node/services"
	"github.com/tamas-pataky/cultiva-node/services/api"
	"github.com/tamas-pataky/cultiva-node/services/push"
	"github.com/tamas-pataky/cultiva-node/services/sentinel"
)

// run starts the node and blocks until it is interrupted or a service
// fails.
func run(path string) error {
	conf, err := config.Open(path)
	if err != nil {
		return err
	}
	closer, err := services.SetupLogging(conf.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	log.Info().Str("node", conf.Node.ID).Msg("Starting cultiva node")

	transport := controller.NewTransport(controller.TransportConfig{
		VendorID:      conf.Controller.VendorID,
		ProductID:     conf.Controller.ProductID,
		Baud:          conf.Controller.Baud,
		ReadTimeout:   conf.Controller.ReadTimeout.Duration,
		WarmupTimeout: conf.Controller.WarmupTimeout.Duration,
	})
	if err := transport.Open(); err != nil {
		return errors.Wrap(err, "opening controller connection")
	}
	session := controller.NewSession(transport)
	defer session.Close()
	ctrl := controller.New(session)

	var publisher pubsub.Publisher
	var subscriber pubsub.Subscriber
	if conf.Endpoints.Mqtt.Broker != "" {
		broker, err := mqtt.NewBroker(conf.Endpoints.Mqtt.Broker)
		if err != nil {
			return err
		}
		defer broker.Close()
		publisher, subscriber = broker.Publisher(), broker.Subscriber()
	}

	var programme services.Programme
	if conf.Sentinel.Enabled {
		repo, err := sentinel.OpenRepository(conf.Sentinel.Database)
		if err != nil {
			return err
		}
		defer repo.Close()
		programme = sentinel.New(conf, repo, publisher, clockwork.NewRealClock())
	}
	commands := services.NewCommands(ctrl, programme)

	names := []string{"api"}
	services.Register(&api.Service{Addr: conf.Endpoints.Api, Node: conf.Node.ID, Commands: commands})
	if publisher != nil {
		services.Register(&push.Service{Publisher: publisher, Subscriber: subscriber, Commands: commands})
		services.Register(&services.Heartbeat{Node: conf.Node.ID, Publisher: publisher})
		names = append(names, "push", "heartbeat")
	}
	if programme != nil {
		schedule := &services.Schedule{
			Command:  services.RunSentinel,
			Interval: conf.Sentinel.Interval.Duration,
			Commands: commands,
		}
		services.Register(schedule)
		names = append(names, schedule.ID())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return services.Launch(ctx, names)
}
