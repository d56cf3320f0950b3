// Package controller talks to the irrigation controller over its serial
// link.
//
// Every request is a JSON command framed as `<...>`. The controller answers
// with an acknowledgement carrying the command id, then with a result
// carrying the same id; quick commands may skip the acknowledgement. A
// Session retries failed exchanges and resets the link when they keep
// failing, and the Controller layers typed operations (open/close ports,
// read sensors, raw commands) on top, each retried as a whole.
package controller

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tamas-pataky/cultiva-node/util"
)

// Sender is the part of Session the Controller needs.
type Sender interface {
	Send(cmd Command) (string, error)
	Reset() error
}

// Controller builds domain commands and validates the controller's answers.
type Controller struct {
	session Sender
	retrier util.Retrier
	newID   func() string
}

type Option func(*Controller)

// WithRetrier replaces the retry policy applied to each operation.
func WithRetrier(r util.Retrier) Option {
	return func(c *Controller) { c.retrier = r }
}

// WithIDGenerator replaces the correlation id source.
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

func New(session Sender, opts ...Option) *Controller {
	c := &Controller{
		session: session,
		newID:   NewID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retry returns the retry policy logging to the caller's logger.
func (c *Controller) retry(log *zerolog.Logger) util.Retrier {
	return c.retrier.WithLogger(*log)
}

// Reset closes and reopens the serial connection.
func (c *Controller) Reset(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	return util.Retry(c.retry(log), func() error {
		log.Info().Msg("Resetting serial connection ...")
		return c.session.Reset()
	})
}

// OpenPorts switches the given ports on.
func (c *Controller) OpenPorts(ctx context.Context, ports []int) error {
	return c.switchPorts(ctx, "Opening", "open", "opened", ports)
}

// ClosePorts switches the given ports off.
func (c *Controller) ClosePorts(ctx context.Context, ports []int) error {
	return c.switchPorts(ctx, "Closing", "close", "closed", ports)
}

func (c *Controller) switchPorts(ctx context.Context, verb, command, reply string, ports []int) error {
	log := zerolog.Ctx(ctx)
	args := portArguments(ports)
	joined := strings.Join(args, ", ")
	expected := reply + "(" + joined + ")"

	return util.Retry(c.retry(log), func() error {
		log.Info().Msgf("%s ports %s ...", verb, joined)

		cmd := NewCommand(c.newID(), command, args)
		response, result, err := c.exchange(cmd)
		if err == nil {
			success, message := outcome(result)
			if !success || message != expected {
				err = ErrNotSuccessful
			}
		}
		if err != nil {
			return c.fail(log, strings.ToLower(verb)+" ports "+joined, cmd, response, result, err)
		}
		return nil
	})
}

// ReadSensors sends the read instructions and returns the readings in the
// order the controller reports them. No instructions means no request.
func (c *Controller) ReadSensors(ctx context.Context, instructions []string) ([]int, error) {
	if len(instructions) == 0 {
		return []int{}, nil
	}
	log := zerolog.Ctx(ctx)

	return util.RetryValue(c.retry(log), func() ([]int, error) {
		log.Info().Msg("Reading sensors ...")

		cmd := NewCommand(c.newID(), "read", instructions)
		response, result, err := c.exchange(cmd)
		var readings []int
		if err == nil {
			success, message := outcome(result)
			if success && strings.HasPrefix(message, "read(") {
				readings, err = parseReadings(message)
			} else {
				err = ErrNotSuccessful
			}
		}
		if err != nil {
			return nil, c.fail(log, "reading sensors", cmd, response, result, err)
		}
		return readings, nil
	})
}

// RunCommand sends free-form command text such as `water(3, 120)` and
// returns the controller's full result. Text that does not parse is
// rejected before anything is sent and is not retried.
func (c *Controller) RunCommand(ctx context.Context, text string) (map[string]interface{}, error) {
	log := zerolog.Ctx(ctx)
	parsed, err := ParseCommand("", text)
	if err != nil {
		log.Warn().Err(err).Msg("not running command")
		return nil, err
	}

	return util.RetryValue(c.retry(log), func() (map[string]interface{}, error) {
		cmd := NewCommand(c.newID(), parsed.Type, parsed.Arguments)
		response, result, err := c.exchange(cmd)
		if err == nil {
			if success, _ := outcome(result); !success {
				err = ErrNotSuccessful
			}
		}
		if err != nil {
			return nil, c.fail(log, "running command", cmd, response, result, err)
		}
		return result, nil
	})
}

func (c *Controller) exchange(cmd Command) (string, map[string]interface{}, error) {
	response, err := c.session.Send(cmd)
	if err != nil {
		return "", nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return response, nil, errors.Wrap(ErrMalformedResponse, err.Error())
	}
	return response, result, nil
}

func (c *Controller) fail(log *zerolog.Logger, action string, cmd Command, response string, result map[string]interface{}, err error) error {
	failure := &ResponseError{
		Action:   action,
		Command:  cmd,
		Response: response,
		Result:   result,
		Err:      err,
	}
	log.Error().Stack().Err(err).Msg(failure.Error())
	return failure
}

func outcome(result map[string]interface{}) (success bool, message string) {
	success, _ = result["success"].(bool)
	message, _ = result["message"].(string)
	return
}
