package controller

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedResponse is returned when a frame payload is not JSON.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrUnexpectedResponse is returned when a frame is JSON but is neither the
	// acknowledgement nor the result for the command in flight.
	ErrUnexpectedResponse = errors.New("unexpected response")
	// ErrWarmupTimeout is returned when the controller did not report ready
	// within the configured warmup deadline.
	ErrWarmupTimeout = errors.New("controller did not report ready")
	// ErrNotOpen is returned for I/O on a transport without an open port.
	ErrNotOpen = errors.New("serial connection is not open")
	// ErrNotSuccessful is the cause of a ResponseError when the controller
	// answered, but not with the expected success shape.
	ErrNotSuccessful = errors.New("result from controller does not indicate success")
)

// InvalidCommandError reports command text that cannot be parsed or a command
// name nothing handles.
type InvalidCommandError struct {
	Command string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("Command '%s' is invalid", e.Command)
}

// DeviceNotFoundError reports that no serial device matched the configured
// vendor and product ids.
type DeviceNotFoundError struct {
	VendorID  string
	ProductID string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("device by vendor id '%s' and product id '%s' not found", e.VendorID, e.ProductID)
}

// ReceiveTimeoutError is returned when no complete frame arrived in time.
// Partial holds whatever was accumulated after the start marker.
type ReceiveTimeoutError struct {
	Timeout time.Duration
	Partial string
	Started time.Time
	Ended   time.Time
}

func (e *ReceiveTimeoutError) Error() string {
	return fmt.Sprintf("no complete frame within %s, received: %q, start: %s, end: %s",
		e.Timeout, e.Partial, e.Started.Format(time.StampMilli), e.Ended.Format(time.StampMilli))
}

// CommunicationFailedError is returned by Session.Send once every attempt
// failed and the link has been reset.
type CommunicationFailedError struct {
	Attempts int
	Err      error
	ResetErr error
}

func (e *CommunicationFailedError) Error() string {
	msg := fmt.Sprintf("failed to receive response from controller after %d attempts, connection has been reset: %v", e.Attempts, e.Err)
	if e.ResetErr != nil {
		msg += fmt.Sprintf(" (reset failed: %v)", e.ResetErr)
	}
	return msg
}

func (e *CommunicationFailedError) Unwrap() error { return e.Err }
func (e *CommunicationFailedError) Cause() error  { return e.Err }

// ResponseError carries the full exchange of a failed controller operation.
type ResponseError struct {
	Action   string
	Command  Command
	Response string
	Result   map[string]interface{}
	Err      error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("error %s: %v ... Request: %s Response: %s Result: %v",
		e.Action, e.Err, e.Command, e.Response, e.Result)
}

func (e *ResponseError) Unwrap() error { return e.Err }
func (e *ResponseError) Cause() error  { return e.Err }
