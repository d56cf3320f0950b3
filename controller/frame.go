package controller

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	StartMarker = '<'
	EndMarker   = '>'

	// ReadyMessage is sent once by the controller after the port is opened.
	ReadyMessage = `{"type":"ready"}`
)

// Command is a single request to the controller. Arguments are always
// strings on the wire.
type Command struct {
	ID        string   `json:"id"`
	Type      string   `json:"command"`
	Arguments []string `json:"arguments"`
}

// NewID returns a fresh correlation id.
func NewID() string {
	return uuid.NewString()
}

func NewCommand(id, typ string, arguments []string) Command {
	args := make([]string, len(arguments))
	copy(args, arguments)
	return Command{ID: id, Type: typ, Arguments: args}
}

func (c Command) String() string {
	return string(c.payload())
}

// payload renders the command the way the controller firmware has always
// received it: `{"id": "...", "command": "...", "arguments": ["...", ...]}`.
// json.Marshal escapes < and >, so a payload never contains a frame marker.
func (c Command) payload() []byte {
	var b bytes.Buffer
	b.WriteString(`{"id": `)
	writeJSONString(&b, c.ID)
	b.WriteString(`, "command": `)
	writeJSONString(&b, c.Type)
	b.WriteString(`, "arguments": [`)
	for i, arg := range c.Arguments {
		if i > 0 {
			b.WriteString(", ")
		}
		writeJSONString(&b, arg)
	}
	b.WriteString("]}")
	return b.Bytes()
}

func writeJSONString(b *bytes.Buffer, s string) {
	v, _ := json.Marshal(s)
	b.Write(v)
}

// Encode wraps the command between the start and end markers.
func Encode(cmd Command) []byte {
	payload := cmd.payload()
	frame := make([]byte, 0, len(payload)+2)
	frame = append(frame, StartMarker)
	frame = append(frame, payload...)
	return append(frame, EndMarker)
}

// Decode parses an encoded frame back into a Command.
func Decode(frame []byte) (Command, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) < 2 || frame[0] != StartMarker || frame[len(frame)-1] != EndMarker {
		return Command{}, errors.Wrapf(ErrMalformedResponse, "not a frame: %q", frame)
	}
	var cmd Command
	if err := json.Unmarshal(frame[1:len(frame)-1], &cmd); err != nil {
		return Command{}, errors.Wrap(ErrMalformedResponse, err.Error())
	}
	return cmd, nil
}

// Class is the kind of an incoming frame payload.
type Class int

const (
	Malformed Class = iota
	Ack
	Result
)

func (c Class) String() string {
	switch c {
	case Ack:
		return "ack"
	case Result:
		return "result"
	default:
		return "malformed"
	}
}

// IsJSON reports whether a payload parses as JSON.
func IsJSON(payload string) bool {
	return json.Valid([]byte(payload))
}

// Classify decides whether payload is the acknowledgement or the result for
// the command with the given id. The substring checks are what the
// controller firmware relies on and must stay as they are.
func Classify(payload, id string) Class {
	if !IsJSON(payload) {
		return Malformed
	}
	if !strings.Contains(payload, id) {
		return Malformed
	}
	switch {
	case strings.Contains(payload, "result"):
		return Result
	case strings.Contains(payload, "commandReceived"), strings.Contains(payload, "Received"):
		return Ack
	}
	return Malformed
}
