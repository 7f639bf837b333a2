// Package app assembles the bot: configuration, tracker client, transport
// adapter, the three recurring loops, the command router, and the health
// probe, all supervised under one context.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"bugwatch/internal/config"
	"bugwatch/internal/health"
	"bugwatch/internal/jira"
	"bugwatch/internal/leaderboard"
	"bugwatch/internal/router"
	"bugwatch/internal/supervisor"
	"bugwatch/internal/tasks"
	"bugwatch/internal/transport"
	"bugwatch/internal/transport/telegram"
	"bugwatch/pkg/logx"
)

const commandBuffer = 16

type App struct {
	log     zerolog.Logger
	logSink io.Closer

	static config.Static
	cfg    *config.Store
	jira   *jira.Client
	tg     *telegram.Adapter

	bugLoop    *tasks.Runner
	reportLoop *tasks.Runner
	boardLoop  *tasks.Runner
	router     *router.Router
	probe      *health.Probe

	sup      *supervisor.Supervisor
	commands chan transport.Command
}

// New loads configuration from envPath and wires every component. Nothing
// talks to the network yet; that happens in Start.
func New(envPath string) (*App, error) {
	static, values, err := config.LoadEnv(envPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, sink, err := logx.New(logx.Config{
		Level:   static.LogLevel,
		Console: true,
		File:    logx.FileConfig{Enabled: static.LogFile != "", Path: static.LogFile},
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	a := &App{log: log, logSink: sink, static: static}
	a.cfg = config.NewStore(values, envPath, log)

	a.jira, err = jira.New(jira.Config{
		Server:   static.JiraServer,
		Username: static.JiraUsername,
		APIToken: static.JiraAPIToken,
		Project:  static.JiraProject,
		BugJQL:   static.JiraBugJQL,
	}, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	if static.TelegramToken == "" {
		a.Close()
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	a.tg, err = telegram.New(telegram.Config{Token: static.TelegramToken}, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	loc := static.Loc
	refresher := tasks.NewRefresher(a.cfg, a.jira, a.tg, loc, log)
	board := tasks.NewLeaderboardTask(a.cfg, a.jira, a.tg, leaderboard.RandomPicker, loc, log)
	reporter := tasks.NewReporter(a.cfg, a.jira, a.tg, board, static.JiraServer, loc, log)

	a.bugLoop = tasks.NewBugLoop(refresher, a.cfg, log)
	a.reportLoop = tasks.NewReportLoop(reporter, a.cfg, loc, log)
	a.boardLoop = tasks.NewLeaderboardLoop(board, a.cfg, loc, log)

	loops := []*tasks.Runner{a.bugLoop, a.reportLoop, a.boardLoop}
	a.router = router.New(a.cfg, a.tg, refresher, reporter, board, loops, static.OwnerIDs, loc, log)
	a.probe = health.New(a.jira, static.HealthSpec, loc, log)

	a.commands = make(chan transport.Command, commandBuffer)
	return a, nil
}

// Start connects the transport and launches all loops. It returns once
// everything is running; failures after that surface through Wait.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	if err := a.tg.Start(a.sup.Context(), a.commands); err != nil {
		a.sup.Cancel()
		return fmt.Errorf("start telegram: %w", err)
	}

	a.sup.Go("router", func(ctx context.Context) error {
		return a.router.Run(ctx, a.commands)
	})
	a.sup.Go("loop.bugs", a.bugLoop.Run)
	a.sup.Go("loop.report", a.reportLoop.Run)
	a.sup.Go("loop.leaderboard", a.boardLoop.Run)
	a.sup.Go("health", a.probe.Run)
	a.sup.Go("config.watch", a.cfg.Watch)

	a.log.Info().Str("timezone", a.static.Timezone).Msg("bot started")
	return nil
}

// Wait blocks until the supervised group stops, returning its first error.
func (a *App) Wait(ctx context.Context) error {
	return a.sup.Wait(ctx)
}

// Stop shuts the bot down: cancel the loops, stop polling, wait for the
// group within ctx.
func (a *App) Stop(ctx context.Context) error {
	if a.sup != nil {
		a.sup.Cancel()
	}
	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if a.tg != nil {
		if err := a.tg.Stop(stopCtx); err != nil {
			a.log.Warn().Err(err).Msg("telegram stop incomplete")
		}
	}
	var err error
	if a.sup != nil {
		err = a.sup.Wait(stopCtx)
	}
	a.log.Info().Msg("bot stopped")
	a.Close()
	return err
}

// Close releases resources that exist independently of Start.
func (a *App) Close() {
	if a.logSink != nil {
		_ = a.logSink.Close()
		a.logSink = nil
	}
}
