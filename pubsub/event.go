package pubsub

import (
	"encoding/json"
	"time"
)

type Fields map[string]interface{}

type Event struct {
	Topic     string
	Timestamp time.Time
	Fields    Fields
	Retained  bool
}

func NewEvent(topic string, fields Fields) *Event {
	if fields == nil {
		fields = Fields{}
	}
	timestamp := time.Now().UTC()
	if ts, ok := fields["timestamp"].(string); ok {
		delete(fields, "timestamp")
		timestamp, _ = time.Parse(TimeFormat, ts)
	}
	return &Event{Topic: topic, Timestamp: timestamp, Fields: fields}
}

// NewCommand builds a request to run a node command. Results are emitted on
// replyTo, or on "result" when replyTo is empty.
func NewCommand(command string, arguments []string, replyTo string) *Event {
	fields := Fields{
		"command":   command,
		"arguments": arguments,
	}
	if replyTo != "" {
		fields["reply_to"] = replyTo
	}
	return NewEvent("command", fields)
}

// NewAlert builds an alert notification for target (e.g. "sms").
func NewAlert(target, message string, fields Fields) *Event {
	ev := NewEvent("alert", Fields{
		"target":  target,
		"message": message,
	})
	ev.SetFields(fields)
	return ev
}

const TimeFormat = "2006-01-02 15:04:05.000000"

func (event *Event) Map() map[string]interface{} {
	data := make(map[string]interface{})
	data["topic"] = event.Topic
	data["timestamp"] = event.Timestamp.Format(TimeFormat)
	for k, v := range event.Fields {
		data[k] = v
	}
	return data
}

func (event *Event) Bytes() []byte {
	v, _ := json.Marshal(event.Map())
	return v
}

func (event *Event) String() string {
	return string(event.Bytes())
}

func (event *Event) StringField(name string) string {
	ret, _ := event.Fields[name].(string)
	return ret
}

func (event *Event) IntField(name string) int64 {
	switch v := event.Fields[name].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

// StringsField returns a list field as strings, whether it was set locally
// as []string or decoded from JSON. Non-string items are dropped.
func (event *Event) StringsField(name string) []string {
	switch v := event.Fields[name].(type) {
	case []string:
		return v
	case []interface{}:
		ret := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				ret = append(ret, s)
			}
		}
		return ret
	case string:
		return []string{v}
	}
	return nil
}

func (event *Event) SetField(name string, value interface{}) {
	event.Fields[name] = value
}

func (event *Event) SetFields(fields Fields) {
	for key, value := range fields {
		event.Fields[key] = value
	}
}

func (event *Event) SetRetained(retained bool) {
	event.Retained = retained
}

func (event *Event) Target() string {
	return event.StringField("target")
}

func (event *Event) Command() string {
	return event.StringField("command")
}

func (event *Event) ReplyTo() string {
	return event.StringField("reply_to")
}

// Parse decodes a JSON message. The topic is taken from the message, or from
// topic when the message has none.
func Parse(msg string, topic string) *Event {
	var fields map[string]interface{}
	err := json.Unmarshal([]byte(msg), &fields)
	if err != nil {
		return nil
	}
	if t, ok := fields["topic"].(string); ok {
		topic = t
	}
	if topic == "" {
		return nil
	}
	delete(fields, "topic")
	return NewEvent(topic, fields)
}
