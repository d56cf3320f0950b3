package sentinel

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Alert types and their severities. Severity 3 alerts are also escalated
// to a phone.
const (
	InternetUp                     = "InternetUp"
	InternetDown                   = "InternetDown"
	InternetDownForProlongedPeriod = "InternetDownForProlongedPeriod"

	SeverityInfo     = 0
	SeverityError    = 2
	SeverityCritical = 3
)

// StateTimeFormat formats state and alert key timestamps.
const StateTimeFormat = "2006-01-02 15:04:05"

const alertTimeFormat = "2006-01-02T15:04:05.000000"

// Alert is a notification waiting to be dispatched to the hub.
type Alert struct {
	ID                string `json:"id"`
	Key               string `json:"key"`
	Time              string `json:"time"`
	Type              string `json:"type"`
	Severity          int    `json:"severity"`
	Properties        string `json:"properties"`
	DispatchedToPhone bool   `json:"dispatched_to_phone,omitempty"`
}

// AlertFactory builds alerts stamped with its clock. Zero values use the
// real clock and random UUIDs.
type AlertFactory struct {
	Clock clockwork.Clock
	NewID func() string
}

func (f *AlertFactory) now() time.Time {
	if f.Clock == nil {
		return time.Now()
	}
	return f.Clock.Now()
}

func (f *AlertFactory) newAlert(typ string, severity int, at time.Time) Alert {
	id := uuid.NewString()
	if f.NewID != nil {
		id = f.NewID()
	}
	stamp := at.Format(StateTimeFormat)
	properties, _ := json.Marshal(map[string]string{"time": stamp})
	return Alert{
		ID:         id,
		Key:        typ + "(" + stamp + ")",
		Time:       f.now().Format(alertTimeFormat),
		Type:       typ,
		Severity:   severity,
		Properties: string(properties),
	}
}

func (f *AlertFactory) InternetUp() Alert {
	return f.newAlert(InternetUp, SeverityInfo, f.now())
}

func (f *AlertFactory) InternetDown() Alert {
	return f.newAlert(InternetDown, SeverityError, f.now())
}

// InternetDownForProlongedPeriod is keyed by when the outage started, so one
// outage raises it once.
func (f *AlertFactory) InternetDownForProlongedPeriod(since time.Time) Alert {
	return f.newAlert(InternetDownForProlongedPeriod, SeverityCritical, since)
}
