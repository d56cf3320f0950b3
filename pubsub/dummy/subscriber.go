package dummy

import "github.com/tamas-pataky/cultiva-node/pubsub"

// Subscriber replays Events to each subscription, then closes the channel.
type Subscriber struct {
	subscriptions []pubsub.Topic
	Events        []*pubsub.Event
}

func (sub *Subscriber) ID() string {
	return "dummy"
}

func (sub *Subscriber) replayEvents(topics []pubsub.Topic) <-chan *pubsub.Event {
	ch := make(chan *pubsub.Event)
	go func() {
		for _, ev := range sub.Events {
			for _, s := range topics {
				if s.Match(ev.Topic) {
					ch <- ev
					break
				}
			}
		}
		close(ch)
	}()
	return ch
}

func (sub *Subscriber) Subscribe(topics ...pubsub.Topic) <-chan *pubsub.Event {
	sub.subscriptions = append(sub.subscriptions, topics...)
	return sub.replayEvents(topics)
}

func (sub *Subscriber) Close(<-chan *pubsub.Event) {
}
