package controller

import (
	"io"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tarm/serial"
	"go.bug.st/serial/enumerator"
)

const (
	DefaultBaud        = 9600
	DefaultReadTimeout = 10 * time.Second

	// WarmupReceiveTimeout bounds each wait for the ready message.
	WarmupReceiveTimeout = 2000 * time.Millisecond
)

// Port is the physical serial connection.
type Port interface {
	io.ReadWriteCloser
	// Flush discards data received but not yet read.
	Flush() error
}

// PortOpener opens the named serial device.
type PortOpener func(name string, baud int, readTimeout time.Duration) (Port, error)

// PortLister enumerates the serial devices attached to the host.
type PortLister func() ([]*enumerator.PortDetails, error)

// OpenSerial opens a real serial device.
func OpenSerial(name string, baud int, readTimeout time.Duration) (Port, error) {
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "opening serial port %s", name)
	}
	return port, nil
}

// ListSerialPorts enumerates serial devices with their USB identifiers.
func ListSerialPorts() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "listing serial ports")
	}
	return ports, nil
}

// TransportConfig identifies the controller and the port settings.
type TransportConfig struct {
	VendorID    string
	ProductID   string
	Baud        int
	ReadTimeout time.Duration
	// WarmupTimeout bounds the whole ready handshake. Zero waits for as long
	// as the controller keeps sending frames.
	WarmupTimeout time.Duration
}

// Transport owns exactly one serial connection to the controller. It is not
// safe for concurrent use; Session serialises access to it.
type Transport struct {
	conf  TransportConfig
	open  PortOpener
	list  PortLister
	clock clockwork.Clock
	log   zerolog.Logger

	port Port
	name string
}

type TransportOption func(*Transport)

func WithPortOpener(open PortOpener) TransportOption {
	return func(t *Transport) { t.open = open }
}

func WithPortLister(list PortLister) TransportOption {
	return func(t *Transport) { t.list = list }
}

func WithTransportClock(clock clockwork.Clock) TransportOption {
	return func(t *Transport) { t.clock = clock }
}

func WithTransportLogger(logger zerolog.Logger) TransportOption {
	return func(t *Transport) { t.log = logger }
}

func NewTransport(conf TransportConfig, opts ...TransportOption) *Transport {
	if conf.Baud == 0 {
		conf.Baud = DefaultBaud
	}
	if conf.ReadTimeout == 0 {
		conf.ReadTimeout = DefaultReadTimeout
	}
	t := &Transport{
		conf:  conf,
		open:  OpenSerial,
		list:  ListSerialPorts,
		clock: clockwork.NewRealClock(),
		log:   log.With().Str("module", "serial").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Discover returns the name of the first device matching both the vendor
// and product id.
func (t *Transport) Discover() (string, error) {
	ports, err := t.list()
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		if p.VID == "" && p.PID == "" {
			continue
		}
		if strings.EqualFold(p.VID, t.conf.VendorID) && strings.EqualFold(p.PID, t.conf.ProductID) {
			return p.Name, nil
		}
	}
	return "", &DeviceNotFoundError{VendorID: t.conf.VendorID, ProductID: t.conf.ProductID}
}

// Open discovers the controller, opens the port and waits for the ready
// message.
func (t *Transport) Open() error {
	name, err := t.Discover()
	if err != nil {
		return err
	}
	port, err := t.open(name, t.conf.Baud, t.conf.ReadTimeout)
	if err != nil {
		return err
	}
	t.port = port
	t.name = name
	t.log.Info().Str("port", name).Int("baud", t.conf.Baud).Msg("serial connection opened")
	return t.Warmup()
}

// Warmup blocks until the controller sends the ready message. Other frames
// are logged and skipped.
func (t *Transport) Warmup() error {
	started := t.clock.Now()
	for {
		if t.conf.WarmupTimeout > 0 && t.clock.Since(started) > t.conf.WarmupTimeout {
			return errors.Wrapf(ErrWarmupTimeout, "waited %s on %s", t.conf.WarmupTimeout, t.name)
		}
		msg, err := t.Receive(WarmupReceiveTimeout)
		if err != nil {
			return errors.Wrap(err, "waiting for ready message")
		}
		if msg == ReadyMessage {
			t.log.Info().Str("port", t.name).Msg("controller ready")
			return nil
		}
		t.log.Warn().Str("response", msg).Msg("ready message from controller not received")
	}
}

// Close releases the port. Closing a closed transport does nothing.
func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.log.Info().Str("port", t.name).Msg("serial connection closed")
	return errors.Wrapf(err, "closing serial port %s", t.name)
}

// Reset closes and reopens the connection, including the ready handshake.
func (t *Transport) Reset() error {
	if err := t.Close(); err != nil {
		t.log.Warn().Err(err).Msg("close before reopen failed")
	}
	return t.Open()
}

// Write sends an encoded frame.
func (t *Transport) Write(frame []byte) error {
	if t.port == nil {
		return ErrNotOpen
	}
	_, err := t.port.Write(frame)
	return errors.Wrapf(err, "writing to serial port %s", t.name)
}

// Receive reads a single frame, discarding anything before the start marker.
func (t *Transport) Receive(timeout time.Duration) (string, error) {
	if t.port == nil {
		return "", ErrNotOpen
	}
	var (
		line    strings.Builder
		inFrame bool
		buf     = make([]byte, 1)
	)
	started := t.clock.Now()
	for {
		if t.clock.Since(started) > timeout {
			return "", &ReceiveTimeoutError{
				Timeout: timeout,
				Partial: line.String(),
				Started: started,
				Ended:   t.clock.Now(),
			}
		}
		n, err := t.port.Read(buf)
		if err != nil && err != io.EOF {
			return "", errors.Wrapf(err, "reading from serial port %s", t.name)
		}
		if n == 0 {
			// read timed out without data
			continue
		}
		switch c := buf[0]; {
		case inFrame && c == EndMarker:
			return line.String(), nil
		case inFrame:
			line.WriteByte(c)
		case c == StartMarker:
			inFrame = true
		}
	}
}

// Flush drops stale input left over from an earlier exchange. Failures are
// ignored.
func (t *Transport) Flush() {
	if t.port == nil {
		return
	}
	if err := t.port.Flush(); err != nil {
		t.log.Debug().Err(err).Msg("flush failed")
	}
}
