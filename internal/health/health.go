// Package health runs a periodic connectivity probe against the tracker and
// feeds the systemd watchdog while the probe keeps succeeding.
package health

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"bugwatch/internal/jira"
)

const probeTimeout = 30 * time.Second

// Identity is how the probe verifies tracker credentials.
type Identity interface {
	Myself(ctx context.Context) (jira.User, error)
}

// Probe schedules authenticated no-op requests on a cron spec. Systemd
// watchdog notifications are sent only after successful probes, so a
// persistently failing tracker connection eventually trips the watchdog.
type Probe struct {
	src  Identity
	spec string
	loc  *time.Location
	log  zerolog.Logger

	cron *cron.Cron
}

func New(src Identity, spec string, loc *time.Location, log zerolog.Logger) *Probe {
	return &Probe{src: src, spec: spec, loc: loc, log: log.With().Str("component", "health").Logger()}
}

// Run probes once immediately, then on the configured schedule until ctx is
// cancelled. The startup probe failing is logged, not fatal: the tracker may
// simply be down while the bot starts.
func (p *Probe) Run(ctx context.Context) error {
	p.probe(ctx)

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(p.loc))
	if _, err := c.AddFunc(p.spec, func() { p.probe(ctx) }); err != nil {
		p.log.Error().Err(err).Str("spec", p.spec).Msg("invalid health schedule, probe disabled")
		<-ctx.Done()
		return nil
	}
	p.cron = c
	c.Start()
	p.log.Info().Str("spec", p.spec).Msg("health probe scheduled")

	<-ctx.Done()
	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(probeTimeout):
	}
	return nil
}

func (p *Probe) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	user, err := p.src.Myself(pctx)
	if err != nil {
		p.log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("tracker probe failed")
		return
	}
	p.log.Debug().Str("user", user.DisplayName).Dur("elapsed", time.Since(start)).Msg("tracker probe ok")
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
		p.log.Debug().Err(err).Msg("watchdog notify failed")
	} else if ok {
		p.log.Trace().Msg("watchdog notified")
	}
}
