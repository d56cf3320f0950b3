package pubsub

import "strings"

// Topic selects the events a subscription receives.
type Topic interface {
	Match(topic string) bool
}

type PrefixTopic struct {
	Prefix string
}

// Prefix matches prefix and every topic below it, e.g. "result" matches
// "result/terminal".
func Prefix(prefix string) *PrefixTopic {
	return &PrefixTopic{prefix}
}

func (t *PrefixTopic) Match(topic string) bool {
	return t.Prefix == topic || strings.HasPrefix(topic, t.Prefix+"/")
}

type AllTopic struct{}

func All() *AllTopic {
	return &AllTopic{}
}

func (t *AllTopic) Match(topic string) bool {
	return true
}

type ExactTopic struct {
	Exact string
}

// Exact matches a single topic.
func Exact(exact string) *ExactTopic {
	return &ExactTopic{exact}
}

func (t *ExactTopic) Match(topic string) bool {
	return t.Exact == topic
}
