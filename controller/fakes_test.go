package controller

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial/enumerator"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// respondFunc scripts the controller: write is the 1-based number of the
// frame being answered, call the 0-based receive since that write.
type respondFunc func(cmd Command, write, call int) (string, error)

// fakeLink is a scripted Link recording everything done to it.
type fakeLink struct {
	mu      sync.Mutex
	respond respondFunc
	delay   time.Duration

	current Command
	calls   int
	writes  []Command
	flushes int
	resets  int
	closes  int
	events  []string
}

func newFakeLink(respond respondFunc) *fakeLink {
	return &fakeLink{respond: respond}
}

func (l *fakeLink) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushes++
}

func (l *fakeLink) Write(frame []byte) error {
	cmd, err := Decode(frame)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = cmd
	l.calls = 0
	l.writes = append(l.writes, cmd)
	l.events = append(l.events, "write:"+cmd.ID)
	return nil
}

func (l *fakeLink) Receive(timeout time.Duration) (string, error) {
	l.mu.Lock()
	cmd, write, call := l.current, len(l.writes), l.calls
	l.calls++
	l.events = append(l.events, "receive:"+cmd.ID)
	delay := l.delay
	l.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return l.respond(cmd, write, call)
}

func (l *fakeLink) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets++
	return nil
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	return nil
}

func (l *fakeLink) writeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.writes)
}

func ackFrame(cmd Command) string {
	return fmt.Sprintf(`{"type":"commandReceived","id":"%s"}`, cmd.ID)
}

func resultFrame(cmd Command, success bool, message string) string {
	return fmt.Sprintf(`{"type":"result","id":"%s","success":%t,"message":"%s"}`, cmd.ID, success, message)
}

func timeoutErr() error {
	return &ReceiveTimeoutError{Timeout: AckTimeout}
}

// ackThen acknowledges every command and then answers with result.
func ackThen(result func(cmd Command) string) respondFunc {
	return func(cmd Command, _, call int) (string, error) {
		if call == 0 {
			return ackFrame(cmd), nil
		}
		return result(cmd), nil
	}
}

func alwaysTimeout(Command, int, int) (string, error) {
	return "", timeoutErr()
}

func noBackoff(int) time.Duration { return 0 }

// mockPort is an in-memory serial port handing out one byte per read.
type mockPort struct {
	mu       sync.Mutex
	data     []byte
	written  []byte
	flushErr error
	flushes  int
	closed   bool
	// onRead runs before every read, e.g. to advance a fake clock.
	onRead func()
}

func newMockPort(data string) *mockPort {
	return &mockPort{data: []byte(data)}
}

func (p *mockPort) Read(b []byte) (int, error) {
	if p.onRead != nil {
		p.onRead()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("port closed")
	}
	if len(p.data) == 0 {
		return 0, io.EOF
	}
	n := copy(b[:1], p.data)
	p.data = p.data[n:]
	return n, nil
}

func (p *mockPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *mockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *mockPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushes++
	return p.flushErr
}

func (p *mockPort) feed(data string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = append(p.data, data...)
}

func listing(ports ...*enumerator.PortDetails) PortLister {
	return func() ([]*enumerator.PortDetails, error) {
		return ports, nil
	}
}

func usbPort(name, vid, pid string) *enumerator.PortDetails {
	return &enumerator.PortDetails{Name: name, IsUSB: true, VID: vid, PID: pid}
}
