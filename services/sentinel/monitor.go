package sentinel

import (
	"context"
	"time"

	"github.com/barnybug/gofsm"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultProlonged is how long the internet may be down before the outage
// is escalated.
const DefaultProlonged = time.Minute

const internetAutomaton = "internet"

// Events fed to the automaton. A prolonged event is only sent while down.
const (
	eventUp        = "up"
	eventDown      = "down"
	eventProlonged = "prolonged"
)

// internetStates drives the persisted status. Actions name the alert raised
// on each transition; an unknown state followed by up stays unknown.
var internetStates = []byte(`
internet:
  start: unknown
  states:
    unknown: {}
    up: {}
    down: {}
    downForProlongedPeriod: {}
  transitions:
    unknown,up->down:
    - when: down
      actions: [InternetDown]
    down,downForProlongedPeriod->up:
    - when: up
      actions: [InternetUp]
    down->downForProlongedPeriod:
    - when: prolonged
      actions: [InternetDownForProlongedPeriod]
`)

type internetEvent string

func (e internetEvent) Match(when string) bool {
	return string(e) == when
}

// InternetMonitor moves the persisted internet state between up, down and
// downForProlongedPeriod, raising an alert on each transition.
type InternetMonitor struct {
	Repository *Repository
	Factory    *AlertFactory
	Prolonged  time.Duration
	Clock      clockwork.Clock
}

func (m *InternetMonitor) now() time.Time {
	if m.Clock == nil {
		return time.Now()
	}
	return m.Clock.Now()
}

func (m *InternetMonitor) raise(ctx context.Context, alert Alert) error {
	inserted, err := m.Repository.InsertAlert(alert)
	if err != nil {
		return errors.Wrapf(err, "storing alert %s", alert.Key)
	}
	if inserted {
		zerolog.Ctx(ctx).Debug().Str("key", alert.Key).Msg("alert raised")
	}
	return nil
}

// event classifies one check against the stored state.
func (m *InternetMonitor) event(state InternetState, up bool, now time.Time) (internetEvent, time.Time, error) {
	if up {
		return eventUp, time.Time{}, nil
	}
	if state.Status != StatusDown {
		return eventDown, time.Time{}, nil
	}
	since, err := time.ParseInLocation(StateTimeFormat, state.Time, now.Location())
	if err != nil {
		return "", since, errors.Wrapf(err, "parsing outage start %q", state.Time)
	}
	prolonged := m.Prolonged
	if prolonged == 0 {
		prolonged = DefaultProlonged
	}
	if now.Sub(since) > prolonged {
		return eventProlonged, since, nil
	}
	return eventDown, since, nil
}

// Observe records one internet check.
func (m *InternetMonitor) Observe(ctx context.Context, up bool) error {
	log := zerolog.Ctx(ctx)
	state, err := m.Repository.InternetState()
	if err != nil {
		return err
	}
	now := m.now()
	event, since, err := m.event(state, up, now)
	if err != nil {
		return err
	}

	automata, err := gofsm.Load(internetStates)
	if err != nil {
		return errors.Wrap(err, "loading internet automaton")
	}
	automata.Restore(gofsm.AutomataState{internetAutomaton: {State: state.Status, Since: since}})
	automata.Process(event)

	var change *gofsm.Change
	select {
	case c := <-automata.Changes:
		change = &c
	default:
		return nil
	}

	next := InternetState{Status: change.New, Time: now.Format(StateTimeFormat)}
	if change.New == StatusDownForProlongedPeriod {
		next.Time = state.Time
	}
	if err := m.Repository.UpdateInternetState(next); err != nil {
		return err
	}

	for {
		select {
		case action := <-automata.Actions:
			var alert Alert
			switch action.Name {
			case InternetUp:
				log.Info().Msg("Internet came back up ... An alert has been raised")
				alert = m.Factory.InternetUp()
			case InternetDown:
				log.Error().Msg("Internet went down ... An alert has been raised")
				alert = m.Factory.InternetDown()
			case InternetDownForProlongedPeriod:
				log.Error().Msgf("Internet down since %s", state.Time)
				alert = m.Factory.InternetDownForProlongedPeriod(since)
			default:
				return errors.Errorf("unknown internet action %q", action.Name)
			}
			if err := m.raise(ctx, alert); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
