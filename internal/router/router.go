// Package router dispatches operator commands coming off the transport to
// the configuration store and the on-demand task actions.
package router

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bugwatch/internal/config"
	"bugwatch/internal/render"
	"bugwatch/internal/tasks"
	"bugwatch/internal/transport"
)

// Router owns the command loop. Settings commands are restricted to the
// configured owners; read-only commands answer anyone.
type Router struct {
	cfg    *config.Store
	ad     transport.Adapter
	ref    *tasks.Refresher
	rep    *tasks.Reporter
	lb     *tasks.LeaderboardTask
	loops  []*tasks.Runner
	owners map[int64]struct{}
	loc    *time.Location
	start  time.Time
	log    zerolog.Logger
}

func New(cfg *config.Store, ad transport.Adapter, ref *tasks.Refresher, rep *tasks.Reporter, lb *tasks.LeaderboardTask, loops []*tasks.Runner, owners []int64, loc *time.Location, log zerolog.Logger) *Router {
	set := make(map[int64]struct{}, len(owners))
	for _, id := range owners {
		set[id] = struct{}{}
	}
	return &Router{
		cfg:    cfg,
		ad:     ad,
		ref:    ref,
		rep:    rep,
		lb:     lb,
		loops:  loops,
		owners: set,
		loc:    loc,
		start:  time.Now(),
		log:    log.With().Str("component", "router").Logger(),
	}
}

// Run consumes commands until ctx is cancelled or the channel closes.
func (r *Router) Run(ctx context.Context, in <-chan transport.Command) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-in:
			if !ok {
				return nil
			}
			r.dispatch(ctx, cmd)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, cmd transport.Command) {
	log := r.log.With().Str("command", cmd.Name).Int64("chat", cmd.ChatID).Int64("from", cmd.FromID).Logger()
	log.Info().Str("args", cmd.Args).Msg("command received")

	switch cmd.Name {
	case "help", "start":
		r.send(ctx, cmd, render.Help())
	case "refresh":
		r.refresh(ctx, cmd)
	case "report":
		r.report(ctx, cmd)
	case "leaderboard":
		r.leaderboard(ctx, cmd)
	case "status":
		r.status(ctx, cmd)
	case "setbugschat":
		r.setChat(ctx, cmd, r.setBugsChat(ctx), "Bugs chat updated.")
	case "setreportschat":
		r.setChat(ctx, cmd, r.cfg.SetReportsChat, "Reports chat updated.")
	case "setleaderboardchat":
		r.setChat(ctx, cmd, r.cfg.SetLeaderboardChat, "Leaderboard chat updated.")
	case "setinterval":
		r.setInterval(ctx, cmd)
	default:
		log.Debug().Msg("unknown command ignored")
	}
}

func (r *Router) refresh(ctx context.Context, cmd transport.Command) {
	err := r.ref.Refresh(ctx)
	switch {
	case err == nil:
		r.reply(ctx, cmd, "Bug list refreshed.")
	case errors.Is(err, tasks.ErrNoChat):
		r.reply(ctx, cmd, "Bugs chat is not configured. Use /setbugschat first.")
	default:
		r.log.Error().Err(err).Msg("manual refresh failed")
		r.send(ctx, cmd, render.Error("Refresh failed", err.Error()))
	}
}

func (r *Router) report(ctx context.Context, cmd transport.Command) {
	doc, err := r.rep.Build(ctx, time.Now().In(r.loc), false)
	if err != nil {
		r.log.Error().Err(err).Msg("on-demand report failed")
		r.send(ctx, cmd, render.Error("Report failed", err.Error()))
		return
	}
	r.send(ctx, cmd, doc)
}

func (r *Router) leaderboard(ctx context.Context, cmd transport.Command) {
	days := r.cfg.Snapshot().LeaderboardDays
	if arg := strings.TrimSpace(cmd.Args); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > 365 {
			r.reply(ctx, cmd, "Usage: /leaderboard [days], days between 1 and 365.")
			return
		}
		days = n
	}
	doc, err := r.lb.Build(ctx, days)
	if err != nil {
		r.log.Error().Err(err).Msg("on-demand leaderboard failed")
		r.send(ctx, cmd, render.Error("Leaderboard failed", err.Error()))
		return
	}
	r.send(ctx, cmd, doc)
}

func (r *Router) status(ctx context.Context, cmd transport.Command) {
	v := r.cfg.Snapshot()
	var b strings.Builder
	b.WriteString("<b>Status</b>\n")
	fmt.Fprintf(&b, "Uptime: %s\n", time.Since(r.start).Round(time.Second))
	fmt.Fprintf(&b, "Bugs chat: %s\n", chatLabel(v.BugsChatID))
	fmt.Fprintf(&b, "Reports chat: %s\n", chatLabel(v.ReportsChatID))
	fmt.Fprintf(&b, "Leaderboard chat: %s\n", chatLabel(v.LeaderboardChatID))
	fmt.Fprintf(&b, "Update interval: %s\n", v.UpdateInterval)
	fmt.Fprintf(&b, "Daily report: %s at %02d:%02d\n", onOff(v.ReportsEnabled), v.ReportHour, v.ReportMinute)
	fmt.Fprintf(&b, "Leaderboard: %s, weekday %d, window %d days\n", onOff(v.LeaderboardEnabled), v.LeaderboardWeekday, v.LeaderboardDays)
	if v.Mapping.Len() > 0 {
		fmt.Fprintf(&b, "Name mappings: %d\n", v.Mapping.Len())
	}
	for _, loop := range r.loops {
		if n := loop.Failures(); n > 0 {
			fmt.Fprintf(&b, "Loop %s: %d consecutive failures\n", html.EscapeString(loop.Name), n)
		}
	}
	r.send(ctx, cmd, transport.Document{Text: b.String(), ParseMode: "HTML", DisablePreview: true})
}

func (r *Router) setInterval(ctx context.Context, cmd transport.Command) {
	r.ownerOnly(ctx, cmd, func() error {
		arg := strings.TrimSpace(cmd.Args)
		if arg == "" {
			return fmt.Errorf("usage: /setinterval <seconds or duration>")
		}
		d, err := parseInterval(arg)
		if err != nil {
			return err
		}
		return r.cfg.SetUpdateInterval(d)
	}, "Update interval changed.")
}

// ownerOnly runs fn for configured owners and reports the outcome back to
// the invoking chat.
func (r *Router) ownerOnly(ctx context.Context, cmd transport.Command, fn func() error, okText string) {
	if _, ok := r.owners[cmd.FromID]; !ok {
		r.log.Warn().Int64("from", cmd.FromID).Str("command", cmd.Name).Msg("settings command from non-owner rejected")
		r.reply(ctx, cmd, "This command is restricted to bot owners.")
		return
	}
	if err := fn(); err != nil {
		r.reply(ctx, cmd, html.EscapeString(err.Error()))
		return
	}
	r.reply(ctx, cmd, okText)
}

func (r *Router) reply(ctx context.Context, cmd transport.Command, text string) {
	r.send(ctx, cmd, transport.Document{Text: text, ParseMode: "HTML", DisablePreview: true})
}

func (r *Router) send(ctx context.Context, cmd transport.Command, doc transport.Document) {
	if _, err := r.ad.Send(ctx, transport.ChatTarget{ChatID: cmd.ChatID}, doc); err != nil {
		r.log.Error().Err(err).Int64("chat", cmd.ChatID).Msg("command reply failed")
	}
}

// setBugsChat stores the new bugs chat and refreshes the listing right away
// so the chat is not left empty until the next interval tick. The refresh is
// best-effort; the setting stands even when it fails.
func (r *Router) setBugsChat(ctx context.Context) func(int64) error {
	return func(id int64) error {
		if err := r.cfg.SetBugsChat(id); err != nil {
			return err
		}
		if err := r.ref.Refresh(ctx); err != nil {
			r.log.Warn().Err(err).Int64("chat", id).Msg("refresh after bugs chat change failed")
		}
		return nil
	}
}

// setChat handles the shared shape of the /set*chat commands: the argument
// is a chat id, defaulting to the chat the command was issued in.
func (r *Router) setChat(ctx context.Context, cmd transport.Command, set func(int64) error, okText string) {
	r.ownerOnly(ctx, cmd, func() error {
		id := cmd.ChatID
		if arg := strings.TrimSpace(cmd.Args); arg != "" {
			parsed, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("cannot parse chat id %q", arg)
			}
			id = parsed
		}
		return set(id)
	}, okText)
}

// parseInterval accepts plain seconds ("300") or a Go duration ("5m").
func parseInterval(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("cannot parse interval %q: use seconds or a duration like 5m", s)
	}
	return d, nil
}

func chatLabel(id int64) string {
	if id == 0 {
		return "not set"
	}
	return strconv.FormatInt(id, 10)
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
