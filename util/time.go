package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

// NextSchedule returns the first time after now that lies offset into a
// period of d.
func NextSchedule(now time.Time, offset time.Duration, d time.Duration) time.Time {
	t := now.Truncate(d).Add(offset)
	if t.After(now) {
		return t
	}
	return t.Add(d)
}

// A schedulable Ticker
type Scheduler struct {
	C    <-chan time.Time
	stop chan struct{}
}

// NewScheduler returns a Scheduler sending clock's time on C every period d,
// offset into the period.
func NewScheduler(clock clockwork.Clock, offset time.Duration, d time.Duration) *Scheduler {
	if d <= 0 {
		panic(errors.New("non-positive interval for NewScheduler"))
	}

	// Give the channel a 1-element time buffer.
	// If the client falls behind while reading, we drop ticks
	// on the floor until the client catches up.
	c := make(chan time.Time, 1)
	s := &Scheduler{C: c, stop: make(chan struct{})}

	go func() {
		for {
			next := NextSchedule(clock.Now(), offset, d)
			select {
			case <-clock.After(next.Sub(clock.Now())):
			case <-s.stop:
				return
			}
			select {
			case c <- clock.Now():
			default:
			}
		}
	}()
	return s
}

// Stop ends the schedule. No more times are sent on C.
func (s *Scheduler) Stop() {
	close(s.stop)
}

func number(n int, suffix string) string {
	switch n {
	case 0:
		return ""
	default:
		return fmt.Sprintf("%d%s", n, suffix)
	}
}

func joinpair(a, b string) string {
	if a != "" && b != "" {
		return a + " " + b
	}
	return a + b
}

// ShortDuration formats d in its two largest units, e.g. "1d 2h".
func ShortDuration(d time.Duration) string {
	switch {
	case d.Hours() >= 24:
		days := int(d.Hours() / 24)
		hours := int(d.Hours()) - days*24
		return joinpair(number(days, "d"), number(hours, "h"))
	case d.Hours() >= 1:
		hours := int(d.Hours())
		mins := int(d.Minutes()) - 60*hours
		return joinpair(number(hours, "h"), number(mins, "m"))
	case d.Minutes() >= 1:
		mins := int(d.Minutes())
		secs := int(d.Seconds()) - 60*mins
		return joinpair(number(mins, "m"), number(secs, "s"))
	case d.Seconds() >= 1:
		return number(int(d.Seconds()), "s")
	case d.Nanoseconds() >= 1000:
		return number(int(d.Seconds()*1000), "ms")
	}
	return "0s"
}

var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
	"y": 365 * 24 * time.Hour,
}

var reDur1 = regexp.MustCompile(`^(\d+)([smhdwy])$`)
var reDur2 = regexp.MustCompile(`^(\d+)([smhdwy])\s*(\d+)([smhdwy])$`)

func duration(m []string) time.Duration {
	i, _ := strconv.Atoi(m[0])
	return time.Duration(i) * durationUnits[m[1]]
}

// ParseDuration does the same as time.ParseDuration but understands more
// units (d for day, w for week, y for year).
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if m := reDur1.FindStringSubmatch(s); m != nil {
		return duration(m[1:3]), nil
	}
	if m := reDur2.FindStringSubmatch(s); m != nil {
		return duration(m[1:3]) + duration(m[3:5]), nil
	}
	return 0, errors.Errorf("invalid duration %q", s)
}
