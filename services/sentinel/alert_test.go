package sentinel

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

var testStart = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

func testFactory(clock clockwork.Clock) *AlertFactory {
	n := 0
	return &AlertFactory{Clock: clock, NewID: func() string {
		n++
		return fmt.Sprintf("alert-%d", n)
	}}
}

func ExampleAlertFactory() {
	clock := clockwork.NewFakeClockAt(testStart)
	f := testFactory(clock)
	down := f.InternetDown()
	clock.Advance(90 * time.Second)
	prolonged := f.InternetDownForProlongedPeriod(testStart)

	for _, alert := range []Alert{down, prolonged} {
		fmt.Println(alert.ID, alert.Key, alert.Severity, alert.Time, alert.Properties)
	}
	// Output:
	// alert-1 InternetDown(2026-03-01 10:00:00) 2 2026-03-01T10:00:00.000000 {"time":"2026-03-01 10:00:00"}
	// alert-2 InternetDownForProlongedPeriod(2026-03-01 10:00:00) 3 2026-03-01T10:01:30.000000 {"time":"2026-03-01 10:00:00"}
}
