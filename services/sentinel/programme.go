// Package sentinel watches the node's health: it runs probes, keeps the hub
// informed of the node's address and delivers alerts raised along the way.
// Alerts are stored until the hub has accepted them, so outages of the
// internet connection lose nothing.
package sentinel

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/tamas-pataky/cultiva-node/config"
	"github.com/tamas-pataky/cultiva-node/pubsub"
	"github.com/tamas-pataky/cultiva-node/util"
)

// Finished is what a completed run reports.
const Finished = "Sentinel run finished successfully"

// Dispatch outcomes reported per alert key.
const (
	DispatchedToHub   = "Dispatched to Hub"
	DispatchedToPhone = "Dispatched to GSM"
	Deferred          = "Deferred"
	Failed            = "Failed"
)

// Programme is one sentinel run: probes, hub sync and alert dispatch. Each
// phase logs its own failures and never stops the others.
type Programme struct {
	Probes     []Probe
	Checker    *InternetChecker
	LocalIP    Probe
	Repository *Repository
	Dispatcher *Dispatcher
}

// New builds the programme described by conf around an opened repository.
// pub may be nil when no message bus is configured; critical alerts then
// only reach the hub.
func New(conf *config.Config, repo *Repository, pub pubsub.Publisher, clock clockwork.Clock) *Programme {
	client := &http.Client{Timeout: 30 * time.Second}
	checker := &InternetChecker{URL: conf.Sentinel.Internet, Client: client}
	localIP := &LocalIPProbe{}
	probes := []Probe{
		&InternetProbe{
			Checker: checker,
			Monitor: &InternetMonitor{
				Repository: repo,
				Factory:    &AlertFactory{Clock: clock},
				Prolonged:  conf.Sentinel.Prolonged.Duration,
				Clock:      clock,
			},
		},
		&CPUProbe{},
		&MemoryProbe{},
		localIP,
	}
	if len(conf.Sentinel.Pings) > 0 {
		probes = append(probes, &PingProbe{Hosts: conf.Sentinel.Pings})
	}
	return &Programme{
		Probes:     probes,
		Checker:    checker,
		LocalIP:    localIP,
		Repository: repo,
		Dispatcher: &Dispatcher{
			Hub:       conf.Node.Hub,
			Node:      conf.Node.ID,
			Client:    client,
			Publisher: pub,
			Retrier:   util.Retrier{Clock: clock},
		},
	}
}

// Run the programme once.
func (p *Programme) Run(ctx context.Context) (string, error) {
	log := zerolog.Ctx(ctx).With().Str("module", "Sentinel").Logger()
	ctx = log.WithContext(ctx)

	log.Info().Msg("Starting Sentinel programme")
	p.runProbes(ctx)
	p.syncWithHub(ctx)
	p.dispatchAlerts(ctx)
	log.Info().Msg("Finished Sentinel programme")
	return Finished, nil
}

// RunProbes runs every probe and returns the results by probe name. A
// failing probe is reported as Failed.
func (p *Programme) RunProbes(ctx context.Context) map[string]string {
	log := zerolog.Ctx(ctx)
	results := map[string]string{}
	for _, probe := range p.Probes {
		result, err := probe.Run(ctx)
		if err != nil {
			log.Warn().Err(err).Msgf("Probe '%s' failed", probe.Name())
			result = Failed
		}
		results[probe.Name()] = result
	}
	return results
}

func (p *Programme) runProbes(ctx context.Context) {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("Starting probes")
	results := p.RunProbes(ctx)
	for _, name := range util.SortedKeys(results) {
		log.Info().Str("probe", name).Msgf("%s: %s", name, results[name])
	}
	log.Info().Msg("Finished probes")
}

func (p *Programme) syncWithHub(ctx context.Context) {
	log := zerolog.Ctx(ctx)
	if !p.Checker.Up(ctx) {
		log.Info().Msg("Syncing deferred")
		return
	}
	log.Info().Msg("Syncing started")
	localIP, _ := p.LocalIP.Run(ctx)
	d := *p.Dispatcher
	d.Retrier = d.Retrier.WithLogger(*log)
	if err := d.SyncWithHub(ctx, localIP); err != nil {
		log.Error().Stack().Err(err).Msg("Syncing failed")
		return
	}
	log.Info().Msg("Syncing finished")
}

// DispatchAlerts delivers the stored alerts and returns the outcome by
// alert key.
func (p *Programme) DispatchAlerts(ctx context.Context) (map[string]string, error) {
	log := zerolog.Ctx(ctx)
	d := *p.Dispatcher
	d.Retrier = d.Retrier.WithLogger(*log)

	alerts, err := p.Repository.Alerts()
	if err != nil {
		return nil, err
	}
	results := map[string]string{}
	if len(alerts) == 0 {
		return results, nil
	}
	up := p.Checker.Up(ctx)
	for _, alert := range alerts {
		if up {
			if err := d.DispatchToHub(ctx, alert); err != nil {
				log.Error().Err(err).Str("key", alert.Key).Msg("dispatching alert to hub failed")
				results[alert.Key] = Failed
			} else {
				if err := p.Repository.DeleteAlert(alert); err != nil {
					log.Error().Err(err).Str("key", alert.Key).Msg("deleting dispatched alert failed")
				}
				results[alert.Key] = DispatchedToHub
			}
		} else {
			results[alert.Key] = Deferred
		}

		if alert.Severity == SeverityCritical && !alert.DispatchedToPhone {
			if err := d.DispatchToPhone(alert); err != nil {
				log.Error().Err(err).Str("key", alert.Key).Msg("dispatching alert to phone failed")
				continue
			}
			alert.DispatchedToPhone = true
			if err := p.Repository.UpdateAlert(alert); err != nil {
				log.Error().Err(err).Str("key", alert.Key).Msg("marking alert as escalated failed")
			}
			results[alert.Key] = DispatchedToPhone
		}
	}
	return results, nil
}

func (p *Programme) dispatchAlerts(ctx context.Context) {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("Starting dispatching alerts")
	results, err := p.DispatchAlerts(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("dispatching alerts failed")
		return
	}
	for _, key := range util.SortedKeys(results) {
		log.Info().Str("alert", key).Msgf("%s: %s", key, results[key])
	}
	log.Info().Msg("Finished dispatching alerts")
}
