package mqtt

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tamas-pataky/cultiva-node/pubsub"
)

// Root is the prefix every event topic is published under.
const Root = "cultiva/"

type Broker struct {
	broker     string
	client     MQTT.Client
	subscriber *Subscriber
	log        zerolog.Logger
}

func clientID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("cultiva/%s-%d-%d", hostname, os.Getpid(), rand.Int())
}

// NewBroker connects to broker (e.g. tcp://localhost:1883). Subscriptions
// are restored whenever the client reconnects.
func NewBroker(broker string) (*Broker, error) {
	b := &Broker{
		broker: broker,
		log:    log.With().Str("module", "mqtt").Logger(),
	}
	b.subscriber = newSubscriber(b)

	opts := MQTT.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID())
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetDefaultPublishHandler(b.subscriber.publishHandler)
	opts.SetOnConnectHandler(b.subscriber.connectHandler)
	opts.SetConnectionLostHandler(func(_ MQTT.Client, err error) {
		b.log.Warn().Err(err).Msg("connection lost")
	})

	b.client = MQTT.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connecting to mqtt %s", broker)
	}
	return b, nil
}

func (b *Broker) ID() string {
	return "mqtt: " + b.broker
}

func (b *Broker) Subscriber() pubsub.Subscriber {
	return b.subscriber
}

func (b *Broker) Publisher() pubsub.Publisher {
	return &Publisher{broker: b.broker, client: b.client, log: b.log}
}

// Close disconnects, waiting briefly for in-flight work.
func (b *Broker) Close() {
	b.client.Disconnect(250)
}
