// Package tasks holds the scheduling and retry core: three long-running
// loops (bug refresh, daily report, weekly leaderboard) built from one
// recurring runner. Each loop reads its cadence from the config store every
// cycle, so operator changes apply on the next iteration without a restart.
package tasks

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultDisabledPoll = 300 * time.Second

// Runner drives one recurring action: compute the next wake time, sleep,
// run, account for failures, repeat. It is parameterized rather than
// subclassed so the three loops share exactly one copy of the backoff and
// cancellation plumbing.
type Runner struct {
	Name string
	Log  zerolog.Logger

	// Enabled gates the loop; nil means always enabled. While disabled the
	// loop never computes a wake time, it just polls the flag.
	Enabled func() bool

	// Delay returns how long to sleep before the next run.
	Delay func(now time.Time) time.Duration

	// Action performs one cycle. Its error is counted, never propagated.
	Action func(ctx context.Context) error

	// RetryDelay returns the backoff sleep after the Nth consecutive failure.
	RetryDelay func(failures int) time.Duration

	// RetryReplacesDelay makes the backoff sleep take the place of the next
	// scheduled delay (interval-style loops). When false the loop replans
	// normally after backing off (time-of-day loops).
	RetryReplacesDelay bool

	// PostRun is an unconditional sleep after a successful run, preventing
	// tight replanning cycles.
	PostRun time.Duration

	// DisabledPoll is the sleep between enabled-flag checks while disabled.
	DisabledPoll time.Duration

	// Immediate runs the action once before the first scheduled sleep.
	Immediate bool

	failures atomic.Int32
}

// Failures reports the current consecutive-failure count (for /status).
func (r *Runner) Failures() int { return int(r.failures.Load()) }

// Run executes the loop until ctx is cancelled. It always returns nil:
// collaborator errors are logged and counted, cancellation is a clean exit.
func (r *Runner) Run(ctx context.Context) error {
	poll := r.DisabledPoll
	if poll <= 0 {
		poll = defaultDisabledPoll
	}
	log := r.Log.With().Str("loop", r.Name).Logger()
	log.Info().Msg("loop started")

	first := true
	skipDelay := false
	for {
		if r.Enabled != nil && !r.Enabled() {
			first = false
			skipDelay = false
			if !r.sleep(ctx, poll) {
				log.Info().Msg("loop cancelled")
				return nil
			}
			continue
		}

		var wait time.Duration
		switch {
		case first && r.Immediate:
			wait = 0
		case skipDelay:
			wait = 0
		default:
			wait = r.Delay(time.Now())
		}
		first = false
		skipDelay = false

		if wait > 0 {
			log.Debug().Dur("wait", wait).Msg("sleeping until next run")
			if !r.sleep(ctx, wait) {
				log.Info().Msg("loop cancelled")
				return nil
			}
			// The flag may have been toggled during the sleep.
			if r.Enabled != nil && !r.Enabled() {
				log.Info().Msg("disabled while sleeping, skipping cycle")
				continue
			}
		}

		if err := ctx.Err(); err != nil {
			log.Info().Msg("loop cancelled")
			return nil
		}

		if err := r.Action(ctx); err != nil {
			n := int(r.failures.Add(1))
			retry := r.RetryDelay(n)
			log.Error().Err(err).Int("failures", n).Dur("retry_in", retry).Msg("cycle failed")
			if !r.sleep(ctx, retry) {
				log.Info().Msg("loop cancelled")
				return nil
			}
			skipDelay = r.RetryReplacesDelay
			continue
		}

		if r.failures.Swap(0) > 0 {
			log.Info().Msg("cycle recovered")
		}
		if r.PostRun > 0 {
			if !r.sleep(ctx, r.PostRun) {
				log.Info().Msg("loop cancelled")
				return nil
			}
		}
	}
}

// sleep waits d or until cancellation; false means cancelled.
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
