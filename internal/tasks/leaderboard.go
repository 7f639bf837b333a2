package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bugwatch/internal/config"
	"bugwatch/internal/jira"
	"bugwatch/internal/leaderboard"
	"bugwatch/internal/render"
	"bugwatch/internal/transport"
)

// ResolvedSource is the slice of the tracker client the leaderboard needs.
type ResolvedSource interface {
	SearchResolvedBetween(ctx context.Context, start, end time.Time) ([]jira.Issue, error)
}

// LeaderboardTask builds and delivers the contributor leaderboard over the
// configured trailing window.
type LeaderboardTask struct {
	cfg  *config.Store
	src  ResolvedSource
	ad   transport.Adapter
	pick leaderboard.Picker
	loc  *time.Location
	log  zerolog.Logger
}

func NewLeaderboardTask(cfg *config.Store, src ResolvedSource, ad transport.Adapter, pick leaderboard.Picker, loc *time.Location, log zerolog.Logger) *LeaderboardTask {
	return &LeaderboardTask{
		cfg:  cfg,
		src:  src,
		ad:   ad,
		pick: pick,
		loc:  loc,
		log:  log.With().Str("component", "leaderboard").Logger(),
	}
}

// Build fetches and renders the leaderboard covering the trailing days.
func (t *LeaderboardTask) Build(ctx context.Context, days int) (transport.Document, error) {
	now := time.Now().In(t.loc)
	start := now.AddDate(0, 0, -days)
	issues, err := t.src.SearchResolvedBetween(ctx, start, now)
	if err != nil {
		return transport.Document{}, fmt.Errorf("fetch resolved issues: %w", err)
	}
	board := leaderboard.Build(issues, t.cfg.NameMapping())
	t.log.Debug().Int("issues", len(issues)).Int("days", days).Msg("leaderboard built")
	return render.Leaderboard(board, days, now, t.pick), nil
}

// SendTo builds the board over the configured window and posts it to chat.
func (t *LeaderboardTask) SendTo(ctx context.Context, chat transport.ChatTarget) error {
	doc, err := t.Build(ctx, t.cfg.Snapshot().LeaderboardDays)
	if err != nil {
		return err
	}
	if _, err := t.ad.Send(ctx, chat, doc); err != nil {
		return fmt.Errorf("send leaderboard: %w", err)
	}
	t.log.Info().Int64("chat", chat.ChatID).Msg("leaderboard sent")
	return nil
}

// Send posts to the dedicated leaderboard chat. Without one the standalone
// schedule stays idle; the daily report loop then carries the weekly board
// into the reports chat instead, so the two schedules never double-post.
func (t *LeaderboardTask) Send(ctx context.Context) error {
	v := t.cfg.Snapshot()
	if v.LeaderboardChatID == 0 {
		return fmt.Errorf("leaderboard: %w", ErrNoChat)
	}
	return t.SendTo(ctx, transport.ChatTarget{ChatID: v.LeaderboardChatID})
}

// NewLeaderboardLoop builds the recurring runner for the standalone weekly
// leaderboard. Like the report loop it replans after every attempt and keeps
// a minute of slack between cycles.
func NewLeaderboardLoop(t *LeaderboardTask, cfg *config.Store, loc *time.Location, log zerolog.Logger) *Runner {
	return &Runner{
		Name:    "leaderboard",
		Log:     log,
		Enabled: cfg.LeaderboardEnabled,
		Delay: func(time.Time) time.Duration {
			v := cfg.Snapshot()
			now := time.Now().In(loc)
			return NextWeekly(now, v.LeaderboardWeekday, v.LeaderboardHour, v.LeaderboardMinute).Sub(now)
		},
		Action: func(ctx context.Context) error {
			err := t.Send(ctx)
			if errors.Is(err, ErrNoChat) {
				log.Debug().Msg("leaderboard chat not configured, skipping cycle")
				return nil
			}
			return err
		},
		RetryDelay: reportRetry,
		PostRun:    time.Minute,
	}
}
