package pubsub

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ExampleEvent_String() {
	ev := NewEvent("test", nil)
	ev.Timestamp = time.Date(2014, 1, 2, 3, 4, 5, 987654000, time.UTC)
	fmt.Println(ev.String())
	// Output: {"timestamp":"2014-01-02 03:04:05.987654","topic":"test"}
}

func ExampleParse() {
	ev := Parse(`{"timestamp":"2014-01-02 03:04:05.987654","topic":"test","field":"value"}`, "")
	fmt.Println(ev.Topic)
	fmt.Println(ev.Timestamp)
	fmt.Println(ev.Fields)
	// Output:
	// test
	// 2014-01-02 03:04:05.987654 +0000 UTC
	// map[field:value]
}

func ExampleParse_topicFromTransport() {
	ev := Parse(`{"command":"openPorts"}`, "command")
	fmt.Println(ev.Topic)
	fmt.Println(ev.Command())
	// Output:
	// command
	// openPorts
}

func ExampleParse_bad() {
	fmt.Println(Parse(`{`, ""))
	fmt.Println(Parse(`{"field":"value"}`, ""))
	// Output:
	// <nil>
	// <nil>
}

func TestStringsField(t *testing.T) {
	ev := Parse(`{"topic":"command","arguments":["1",2,"3"],"single":"x"}`, "")
	assert.Equal(t, []string{"1", "3"}, ev.StringsField("arguments"))
	assert.Equal(t, []string{"x"}, ev.StringsField("single"))
	assert.Nil(t, ev.StringsField("missing"))

	local := NewCommand("readSensors", []string{"s1"}, "")
	assert.Equal(t, []string{"s1"}, local.StringsField("arguments"))
	assert.Equal(t, "", local.ReplyTo())
}

func TestNewAlert(t *testing.T) {
	ev := NewAlert("sms", "internet down", Fields{"severity": 3})
	assert.Equal(t, "alert", ev.Topic)
	assert.Equal(t, "sms", ev.Target())
	assert.Equal(t, int64(3), ev.IntField("severity"))
}

func TestMatchers(t *testing.T) {
	assert.True(t, Prefix("result").Match("result"))
	assert.True(t, Prefix("result").Match("result/terminal"))
	assert.False(t, Prefix("result").Match("results"))
	assert.True(t, Exact("command").Match("command"))
	assert.False(t, Exact("command").Match("command/x"))
	assert.True(t, All().Match("anything"))
}
