package mqtt

import (
	"strings"
	"sync"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamas-pataky/cultiva-node/pubsub"
)

type eventChannel struct {
	C      chan *pubsub.Event
	topics []pubsub.Topic
	done   chan struct{}
	// held for reading while sending, for writing while closing C
	sending sync.RWMutex
	closed  bool
}

func (ch *eventChannel) matches(topic string) bool {
	for _, t := range ch.topics {
		if t.Match(topic) {
			return true
		}
	}
	return false
}

// send delivers event unless the channel is closed first. A full channel
// blocks only until Close.
func (ch *eventChannel) send(event *pubsub.Event) {
	ch.sending.RLock()
	defer ch.sending.RUnlock()
	if ch.closed {
		return
	}
	select {
	case ch.C <- event:
	case <-ch.done:
	}
}

func (ch *eventChannel) close() {
	close(ch.done)
	ch.sending.Lock()
	ch.closed = true
	close(ch.C)
	ch.sending.Unlock()
}

// Subscriber fans incoming messages out to channels by topic. The broker
// subscription for a topic is held while any channel wants it.
type Subscriber struct {
	broker         *Broker
	channels       []*eventChannel
	channelsLock   sync.Mutex
	topicCount     map[string]int
	topicCountLock sync.RWMutex
}

func newSubscriber(broker *Broker) *Subscriber {
	return &Subscriber{broker: broker, topicCount: map[string]int{}}
}

func (s *Subscriber) ID() string {
	return s.broker.ID()
}

func (s *Subscriber) publishHandler(_ MQTT.Client, msg MQTT.Message) {
	topic := strings.TrimPrefix(msg.Topic(), Root)
	event := pubsub.Parse(string(msg.Payload()), topic)
	if event == nil {
		s.broker.log.Debug().Str("topic", msg.Topic()).Msg("ignoring message that is not an event")
		return
	}
	event.SetRetained(msg.Retained())
	var matched []*eventChannel
	s.channelsLock.Lock()
	for _, ch := range s.channels {
		if ch.matches(event.Topic) {
			matched = append(matched, ch)
		}
	}
	s.channelsLock.Unlock()

	for _, ch := range matched {
		ch.send(event)
	}
}

// connectHandler (re)subscribes when (re)connected.
func (s *Subscriber) connectHandler(client MQTT.Client) {
	subs := map[string]byte{}
	s.topicCountLock.RLock()
	for topic := range s.topicCount {
		subs[topic] = 1
	}
	s.topicCountLock.RUnlock()

	if len(subs) > 0 {
		s.broker.log.Info().Interface("topics", subs).Msg("connected, subscribing")
		// nil = all messages go to the default handler
		if token := client.SubscribeMultiple(subs, nil); token.Wait() && token.Error() != nil {
			s.broker.log.Error().Err(token.Error()).Msg("subscribing failed")
		}
	}
}

func topicToMqtt(topic pubsub.Topic) string {
	switch topic := topic.(type) {
	case *pubsub.AllTopic:
		return Root + "#"
	case *pubsub.ExactTopic:
		return Root + topic.Exact
	case *pubsub.PrefixTopic:
		return Root + topic.Prefix + "/#"
	}
	panic("mqtt: unsupported topic type")
}

func (s *Subscriber) Subscribe(topics ...pubsub.Topic) <-chan *pubsub.Event {
	subs := map[string]byte{}
	s.topicCountLock.Lock()
	for _, topic := range topics {
		t := topicToMqtt(topic)
		if _, exists := s.topicCount[t]; !exists {
			subs[t] = 1
		}
		s.topicCount[t]++
	}
	s.topicCountLock.Unlock()

	ch := &eventChannel{
		C:      make(chan *pubsub.Event, 16),
		topics: topics,
		done:   make(chan struct{}),
	}
	s.channelsLock.Lock()
	s.channels = append(s.channels, ch)
	s.channelsLock.Unlock()

	if len(subs) > 0 {
		if token := s.broker.client.SubscribeMultiple(subs, nil); token.Wait() && token.Error() != nil {
			s.broker.log.Error().Err(token.Error()).Msg("subscribing failed")
		}
	}
	return ch.C
}

func (s *Subscriber) Close(channel <-chan *pubsub.Event) {
	var closing *eventChannel
	s.channelsLock.Lock()
	channels := s.channels[:0:0]
	for _, ch := range s.channels {
		if channel != (<-chan *pubsub.Event)(ch.C) {
			channels = append(channels, ch)
			continue
		}
		closing = ch
	}
	s.channels = channels
	s.channelsLock.Unlock()

	if closing == nil {
		return
	}
	closing.close()
	for _, topic := range closing.topics {
		t := topicToMqtt(topic)
		s.topicCountLock.Lock()
		s.topicCount[t]--
		current := s.topicCount[t]
		if current == 0 {
			delete(s.topicCount, t)
		}
		s.topicCountLock.Unlock()
		if current == 0 {
			if token := s.broker.client.Unsubscribe(t); token.Wait() && token.Error() != nil {
				s.broker.log.Error().Err(token.Error()).Msg("unsubscribing failed")
			}
		}
	}
}
