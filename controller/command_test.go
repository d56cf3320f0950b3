package controller

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func ExampleParseCommand() {
	cmd, _ := ParseCommand("1", "water( 3 , 120)")
	fmt.Printf("%s %q\n", cmd.Type, cmd.Arguments)
	// Output:
	// water ["3" "120"]
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		typ  string
		args []string
	}{
		{"open(1,2)", "open", []string{"1", "2"}},
		{"status()", "status", []string{}},
		{"  calibrate (s1)", "calibrate", []string{"s1"}},
		{"say(a,,b)", "say", []string{"a", "", "b"}},
		{"read(s1", "read", []string{"s1"}},
		{"water(3)x", "water", []string{"3"}},
		{"say(f(x), y) ", "say", []string{"f(x", "y"}},
	}
	for _, tt := range tests {
		cmd, err := ParseCommand("id", tt.text)
		require.NoError(t, err, tt.text)
		assert.Equal(t, "id", cmd.ID)
		assert.Equal(t, tt.typ, cmd.Type, tt.text)
		assert.Equal(t, tt.args, cmd.Arguments, tt.text)
	}
}

func TestParseCommandInvalid(t *testing.T) {
	for _, text := range []string{"", "water", "water 3"} {
		_, err := ParseCommand("id", text)
		var invalid *InvalidCommandError
		require.ErrorAs(t, err, &invalid, text)
		assert.Equal(t, text, invalid.Command)
	}
}

func TestPortArguments(t *testing.T) {
	assert.Equal(t, []string{"2", "3", "1"}, portArguments([]int{2, 3, 2, 1, 3}))
	assert.Equal(t, []string{}, portArguments(nil))
}

func TestParseReadings(t *testing.T) {
	readings, err := parseReadings("read(12, 34,5)")
	require.NoError(t, err)
	assert.Equal(t, []int{12, 34, 5}, readings)

	_, err = parseReadings("read()")
	assert.Error(t, err)
}

func TestPropertyParseCommand(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[a-z][a-zA-Z0-9_]{0,10}`).Draw(t, "name")
		args := rapid.SliceOfN(rapid.StringMatching(`[a-z0-9]{1,6}`), 0, 5).Draw(t, "args")

		cmd, err := ParseCommand("id", name+"("+strings.Join(args, ", ")+")")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if cmd.Type != name {
			t.Fatalf("got type %q, want %q", cmd.Type, name)
		}
		if len(cmd.Arguments) != len(args) {
			t.Fatalf("got %q, want %q", cmd.Arguments, args)
		}
		for i := range args {
			if cmd.Arguments[i] != args[i] {
				t.Fatalf("argument %d: got %q, want %q", i, cmd.Arguments[i], args[i])
			}
		}
	})
}
