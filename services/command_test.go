package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamas-pataky/cultiva-node/controller"
)

type fakeController struct {
	calls    []string
	ports    []int
	readings []int
	err      error
}

func (c *fakeController) Reset(ctx context.Context) error {
	c.calls = append(c.calls, "reset")
	return c.err
}

func (c *fakeController) OpenPorts(ctx context.Context, ports []int) error {
	c.calls = append(c.calls, "open")
	c.ports = ports
	return c.err
}

func (c *fakeController) ClosePorts(ctx context.Context, ports []int) error {
	c.calls = append(c.calls, "close")
	c.ports = ports
	return c.err
}

func (c *fakeController) ReadSensors(ctx context.Context, instructions []string) ([]int, error) {
	c.calls = append(c.calls, fmt.Sprintf("read%v", instructions))
	return c.readings, c.err
}

func (c *fakeController) RunCommand(ctx context.Context, text string) (map[string]interface{}, error) {
	c.calls = append(c.calls, "run:"+text)
	if c.err != nil {
		return nil, c.err
	}
	return map[string]interface{}{"success": true, "message": text}, nil
}

type fakeProgramme struct{ runs int }

func (p *fakeProgramme) Run(ctx context.Context) (string, error) {
	p.runs++
	return "Sentinel run finished successfully", nil
}

func ExampleSnakeCase() {
	fmt.Println(SnakeCase("openPorts"))
	fmt.Println(SnakeCase("open_ports"))
	fmt.Println(SnakeCase("ResetConnection"))
	// Output:
	// open_ports
	// open_ports
	// reset_connection
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"close_ports", "open_ports", "read_sensors", "reset_connection", "run_command"},
		NewCommands(&fakeController{}, nil).Names())
	assert.Contains(t, NewCommands(&fakeController{}, &fakeProgramme{}).Names(), RunSentinel)
}

func TestRunOpenPorts(t *testing.T) {
	ctrl := &fakeController{}
	commands := NewCommands(ctrl, nil)

	result := commands.Run(context.Background(), "openPorts", []string{"1,2", "5"})
	assert.Equal(t, Result{Success: true, Result: "Ports 1, 2, 5 opened"}, result)
	assert.Equal(t, []int{1, 2, 5}, ctrl.ports)

	result = commands.Run(context.Background(), "close_ports", []string{"3"})
	assert.Equal(t, Result{Success: true, Result: "Ports 3 closed"}, result)
}

func TestRunBadPorts(t *testing.T) {
	ctrl := &fakeController{}
	commands := NewCommands(ctrl, nil)

	assert.Equal(t, Result{Success: false, Result: `invalid port "x"`},
		commands.Run(context.Background(), "openPorts", []string{"x"}))
	assert.Equal(t, Result{Success: false, Result: "no ports given"},
		commands.Run(context.Background(), "openPorts", nil))
	assert.Empty(t, ctrl.calls)
}

func TestRunReadSensors(t *testing.T) {
	ctrl := &fakeController{readings: []int{12, 34}}
	result := NewCommands(ctrl, nil).Run(context.Background(), "readSensors", []string{"s1,s2"})
	assert.Equal(t, Result{Success: true, Result: []int{12, 34}}, result)
	assert.Equal(t, []string{"read[s1 s2]"}, ctrl.calls)
}

func TestRunCommandText(t *testing.T) {
	ctrl := &fakeController{}
	result := NewCommands(ctrl, nil).Run(context.Background(), "runCommand", []string{"water(3,", "120)"})
	require.True(t, result.Success)
	assert.Equal(t, []string{"run:water(3, 120)"}, ctrl.calls)
}

func TestRunSentinel(t *testing.T) {
	programme := &fakeProgramme{}
	result := NewCommands(&fakeController{}, programme).Run(context.Background(), "runSentinel", nil)
	assert.Equal(t, Result{Success: true, Result: "Sentinel run finished successfully"}, result)
	assert.Equal(t, 1, programme.runs)
}

func TestRunUnknown(t *testing.T) {
	result := NewCommands(&fakeController{}, nil).Run(context.Background(), "runSentinel", nil)
	assert.Equal(t, Result{Success: false, Result: "Command 'runSentinel' is invalid"}, result)
}

func TestRunFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())
	ctrl := &fakeController{err: errors.New("serial port gone")}

	result := NewCommands(ctrl, nil).Run(ctx, "resetConnection", nil)
	assert.Equal(t, Result{Success: false, Result: "serial port gone"}, result)
	assert.Contains(t, buf.String(), "command failed")
}

func TestRunInvalidCommandIsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())
	ctrl := &fakeController{err: &controller.InvalidCommandError{Command: "water"}}

	result := NewCommands(ctrl, nil).Run(ctx, "runCommand", []string{"water"})
	assert.Equal(t, Result{Success: false, Result: "Command 'water' is invalid"}, result)
	assert.Empty(t, buf.String())
}

func TestRunRecoversPanics(t *testing.T) {
	commands := Commands{"explode": func(context.Context, []string) (interface{}, error) {
		panic("boom")
	}}
	result := commands.Run(context.Background(), "explode", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "command explode panicked: boom", result.Result)
}
