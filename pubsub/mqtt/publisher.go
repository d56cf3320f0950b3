package mqtt

import (
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/tamas-pataky/cultiva-node/pubsub"
)

// Publisher for mqtt
type Publisher struct {
	broker string
	client MQTT.Client
	log    zerolog.Logger
}

func (pub *Publisher) ID() string {
	return "mqtt: " + pub.broker
}

// Emit publishes the event at QoS 1 and waits for the broker to accept it.
func (pub *Publisher) Emit(ev *pubsub.Event) {
	token := pub.client.Publish(Root+ev.Topic, 1, ev.Retained, ev.Bytes())
	if token.Wait() && token.Error() != nil {
		pub.log.Error().Err(token.Error()).Str("topic", ev.Topic).Msg("publish failed")
	}
}
