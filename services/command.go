package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tamas-pataky/cultiva-node/controller"
)

// Command names, in the form they are looked up in.
const (
	ResetConnection = "reset_connection"
	OpenPorts       = "open_ports"
	ClosePorts      = "close_ports"
	ReadSensors     = "read_sensors"
	RunCommand      = "run_command"
	RunSentinel     = "run_sentinel"
)

// Handler runs one command. The caller's logger travels in ctx.
type Handler func(ctx context.Context, args []string) (interface{}, error)

// Commands maps command names to their handlers.
type Commands map[string]Handler

// Result is what every caller of a command gets back.
type Result struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result"`
}

// Controller is the part of controller.Controller the commands drive.
type Controller interface {
	Reset(ctx context.Context) error
	OpenPorts(ctx context.Context, ports []int) error
	ClosePorts(ctx context.Context, ports []int) error
	ReadSensors(ctx context.Context, instructions []string) ([]int, error)
	RunCommand(ctx context.Context, text string) (map[string]interface{}, error)
}

// Programme is a runnable routine such as the sentinel.
type Programme interface {
	Run(ctx context.Context) (string, error)
}

// NewCommands registers the controller commands, and runSentinel when a
// sentinel programme is given.
func NewCommands(ctrl Controller, sentinel Programme) Commands {
	commands := Commands{
		ResetConnection: func(ctx context.Context, _ []string) (interface{}, error) {
			if err := ctrl.Reset(ctx); err != nil {
				return nil, err
			}
			return "Serial connection has been reset", nil
		},
		OpenPorts: func(ctx context.Context, args []string) (interface{}, error) {
			ports, err := parsePorts(args)
			if err != nil {
				return nil, err
			}
			if err := ctrl.OpenPorts(ctx, ports); err != nil {
				return nil, err
			}
			return fmt.Sprintf("Ports %s opened", joinPorts(ports)), nil
		},
		ClosePorts: func(ctx context.Context, args []string) (interface{}, error) {
			ports, err := parsePorts(args)
			if err != nil {
				return nil, err
			}
			if err := ctrl.ClosePorts(ctx, ports); err != nil {
				return nil, err
			}
			return fmt.Sprintf("Ports %s closed", joinPorts(ports)), nil
		},
		ReadSensors: func(ctx context.Context, args []string) (interface{}, error) {
			return ctrl.ReadSensors(ctx, splitArguments(args))
		},
		RunCommand: func(ctx context.Context, args []string) (interface{}, error) {
			return ctrl.RunCommand(ctx, strings.Join(args, " "))
		},
	}
	if sentinel != nil {
		commands[RunSentinel] = func(ctx context.Context, _ []string) (interface{}, error) {
			return sentinel.Run(ctx)
		}
	}
	return commands
}

// Names lists the registered commands.
func (c Commands) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run looks up name (camelCase or snake_case) and runs it. It never panics;
// every failure becomes an unsuccessful Result carrying the error message.
func (c Commands) Run(ctx context.Context, name string, args []string) (result Result) {
	log := zerolog.Ctx(ctx)
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("command %s panicked: %v", name, r)
			log.Error().Stack().Err(err).Msg("command failed")
			result = Result{Success: false, Result: err.Error()}
		}
	}()

	handler, ok := c[SnakeCase(name)]
	if !ok {
		return Result{Success: false, Result: (&controller.InvalidCommandError{Command: name}).Error()}
	}
	value, err := handler(ctx, args)
	if err != nil {
		var invalid *controller.InvalidCommandError
		if !errors.As(err, &invalid) {
			log.Error().Stack().Err(err).Str("command", name).Msg("command failed")
		}
		return Result{Success: false, Result: err.Error()}
	}
	return Result{Success: true, Result: value}
}

// SnakeCase converts `openPorts` to `open_ports`. Names already in snake
// case are only lower cased.
func SnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// splitArguments accepts both `["1", "2"]` and `["1,2"]`.
func splitArguments(args []string) []string {
	var ret []string
	for _, arg := range args {
		for _, field := range strings.FieldsFunc(arg, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		}) {
			ret = append(ret, field)
		}
	}
	return ret
}

func parsePorts(args []string) ([]int, error) {
	fields := splitArguments(args)
	if len(fields) == 0 {
		return nil, errors.New("no ports given")
	}
	ports := make([]int, 0, len(fields))
	for _, f := range fields {
		port, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Errorf("invalid port %q", f)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

func joinPorts(ports []int) string {
	s := make([]string, len(ports))
	for i, p := range ports {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ", ")
}
