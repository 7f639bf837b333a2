package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bugwatch/internal/config"
	"bugwatch/internal/jira"
	"bugwatch/internal/render"
	"bugwatch/internal/transport"
)

// CompletedSource is the slice of the tracker client the report loop needs.
type CompletedSource interface {
	SearchCompleted(ctx context.Context, start, end time.Time) ([]jira.Issue, error)
}

// Reporter delivers the daily completed-work report and, on the configured
// weekday, follows it with the weekly leaderboard in the same chat.
type Reporter struct {
	cfg       *config.Store
	src       CompletedSource
	ad        transport.Adapter
	lb        *LeaderboardTask
	serverURL string
	loc       *time.Location
	log       zerolog.Logger
}

func NewReporter(cfg *config.Store, src CompletedSource, ad transport.Adapter, lb *LeaderboardTask, serverURL string, loc *time.Location, log zerolog.Logger) *Reporter {
	return &Reporter{
		cfg:       cfg,
		src:       src,
		ad:        ad,
		lb:        lb,
		serverURL: serverURL,
		loc:       loc,
		log:       log.With().Str("component", "report").Logger(),
	}
}

// Build fetches and renders the report for the window ending at the
// configured boundary nearest now. auto marks scheduled runs in the footer.
func (r *Reporter) Build(ctx context.Context, now time.Time, auto bool) (transport.Document, error) {
	v := r.cfg.Snapshot()
	start, end := ReportWindow(now, v.ReportHour, v.ReportMinute)
	issues, err := r.src.SearchCompleted(ctx, start, end)
	if err != nil {
		return transport.Document{}, fmt.Errorf("fetch completed issues: %w", err)
	}
	r.log.Debug().Int("issues", len(issues)).Time("start", start).Time("end", end).Msg("report window fetched")
	return render.Report(issues, start, end, r.serverURL, r.cfg.NameMapping(), auto), nil
}

// SendDaily runs one scheduled report cycle. The leaderboard follow-up is
// best effort: its failure is logged but does not fail the report cycle.
func (r *Reporter) SendDaily(ctx context.Context) error {
	chat, ok := r.cfg.ReportsChat()
	if !ok {
		return fmt.Errorf("report: %w", ErrNoChat)
	}
	now := time.Now().In(r.loc)
	doc, err := r.Build(ctx, now, true)
	if err != nil {
		return err
	}
	if _, err := r.ad.Send(ctx, chat, doc); err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}
	r.log.Info().Int64("chat", chat.ChatID).Msg("daily report sent")

	// The weekly board rides along with the report unless it has its own
	// chat, in which case the standalone schedule owns delivery.
	v := r.cfg.Snapshot()
	if v.LeaderboardEnabled && v.LeaderboardChatID == 0 && MondayIndex(now.Weekday()) == v.LeaderboardWeekday {
		if err := r.lb.SendTo(ctx, chat); err != nil {
			r.log.Error().Err(err).Msg("weekly leaderboard after report failed")
		}
	}
	return nil
}

// NewReportLoop builds the recurring runner for the daily report. It wakes
// at the configured time of day, replans after every attempt, and always
// leaves at least a minute between cycles so a boundary change cannot cause
// a double send.
func NewReportLoop(r *Reporter, cfg *config.Store, loc *time.Location, log zerolog.Logger) *Runner {
	return &Runner{
		Name:    "report",
		Log:     log,
		Enabled: cfg.ReportsEnabled,
		Delay: func(time.Time) time.Duration {
			v := cfg.Snapshot()
			now := time.Now().In(loc)
			return NextDaily(now, v.ReportHour, v.ReportMinute).Sub(now)
		},
		Action: func(ctx context.Context) error {
			err := r.SendDaily(ctx)
			if errors.Is(err, ErrNoChat) {
				log.Debug().Msg("reports chat not configured, skipping cycle")
				return nil
			}
			return err
		},
		RetryDelay: reportRetry,
		PostRun:    time.Minute,
	}
}
