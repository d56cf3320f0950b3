package services

import "github.com/tamas-pataky/cultiva-node/pubsub"

// SendAlert emits an alert for target, e.g. "sms".
func SendAlert(pub pubsub.Publisher, target string, message string, fields pubsub.Fields) {
	pub.Emit(pubsub.NewAlert(target, message, fields))
}

// SendResult answers a command event on its reply_to topic, or on "result".
func SendResult(pub pubsub.Publisher, request *pubsub.Event, result Result) {
	topic := "result"
	if replyTo := request.ReplyTo(); replyTo != "" {
		topic = replyTo
	}
	pub.Emit(pubsub.NewEvent(topic, pubsub.Fields{
		"success": result.Success,
		"result":  result.Result,
		"request": request.Map(),
	}))
}
