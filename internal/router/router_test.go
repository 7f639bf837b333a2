package router

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bugwatch/internal/config"
	"bugwatch/internal/jira"
	"bugwatch/internal/tasks"
	"bugwatch/internal/transport"
)

const ownerID = int64(1000)

type fakeAdapter struct {
	mu     sync.Mutex
	nextID int
	sent   []transport.MessageRef
	texts  []string
}

func (f *fakeAdapter) Start(context.Context, chan<- transport.Command) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                            { return nil }

func (f *fakeAdapter) Send(_ context.Context, to transport.ChatTarget, d transport.Document) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ref := transport.MessageRef{ChatID: to.ChatID, MessageID: f.nextID}
	f.sent = append(f.sent, ref)
	f.texts = append(f.texts, d.Text)
	return ref, nil
}

func (f *fakeAdapter) Edit(context.Context, transport.MessageRef, transport.Document) error {
	return nil
}
func (f *fakeAdapter) Delete(context.Context, transport.MessageRef) error { return nil }
func (f *fakeAdapter) History(context.Context, transport.ChatTarget, int) []transport.MessageRef {
	return nil
}

func (f *fakeAdapter) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		t.Fatal("no reply sent")
	}
	return f.texts[len(f.texts)-1]
}

type fakeTracker struct{}

func (fakeTracker) SearchOpenBugs(context.Context) ([]jira.Issue, error) { return nil, nil }
func (fakeTracker) SearchCompleted(context.Context, time.Time, time.Time) ([]jira.Issue, error) {
	return nil, nil
}
func (fakeTracker) SearchResolvedBetween(context.Context, time.Time, time.Time) ([]jira.Issue, error) {
	return []jira.Issue{{Key: "AB-1", Type: "Task", Assignee: "Jan"}}, nil
}

func newTestRouter(t *testing.T) (*Router, *fakeAdapter, *config.Store) {
	t.Helper()
	log := zerolog.Nop()
	cfg := config.NewStore(config.Values{BugsChatID: 42, ReportsChatID: 43}, "", log)
	ad := &fakeAdapter{}
	src := fakeTracker{}
	ref := tasks.NewRefresher(cfg, src, ad, time.UTC, log)
	lb := tasks.NewLeaderboardTask(cfg, src, ad, func(pool []string, name string) string { return name }, time.UTC, log)
	rep := tasks.NewReporter(cfg, src, ad, lb, "", time.UTC, log)
	r := New(cfg, ad, ref, rep, lb, nil, []int64{ownerID}, time.UTC, log)
	return r, ad, cfg
}

func cmd(name, args string, from int64) transport.Command {
	return transport.Command{Name: name, Args: args, ChatID: 500, FromID: from}
}

func TestHelpAnswersAnyone(t *testing.T) {
	r, ad, _ := newTestRouter(t)
	r.dispatch(context.Background(), cmd("help", "", 1))
	if !strings.Contains(ad.lastText(t), "/refresh") {
		t.Errorf("help reply = %q", ad.lastText(t))
	}
}

func TestSettingsCommandsAreOwnerOnly(t *testing.T) {
	for _, name := range []string{"setbugschat", "setreportschat", "setleaderboardchat", "setinterval"} {
		t.Run(name, func(t *testing.T) {
			r, ad, cfg := newTestRouter(t)
			before := cfg.Snapshot()
			r.dispatch(context.Background(), cmd(name, "600", 1))
			if !strings.Contains(ad.lastText(t), "restricted") {
				t.Errorf("reply = %q, want rejection", ad.lastText(t))
			}
			if cfg.Snapshot() != before {
				t.Error("non-owner changed settings")
			}
		})
	}
}

func TestSetBugsChatDefaultsToCurrentChat(t *testing.T) {
	r, _, cfg := newTestRouter(t)
	r.dispatch(context.Background(), cmd("setbugschat", "", ownerID))
	if got := cfg.Snapshot().BugsChatID; got != 500 {
		t.Errorf("BugsChatID = %d, want invoking chat 500", got)
	}
}

func TestSetBugsChatExplicitID(t *testing.T) {
	r, _, cfg := newTestRouter(t)
	r.dispatch(context.Background(), cmd("setbugschat", "-100999", ownerID))
	if got := cfg.Snapshot().BugsChatID; got != -100999 {
		t.Errorf("BugsChatID = %d", got)
	}
}

func TestSetBugsChatRefreshesNewChat(t *testing.T) {
	r, ad, cfg := newTestRouter(t)
	r.dispatch(context.Background(), cmd("setbugschat", "777", ownerID))
	if got := cfg.Snapshot().BugsChatID; got != 777 {
		t.Fatalf("BugsChatID = %d, want 777", got)
	}
	var listed bool
	ad.mu.Lock()
	for i, ref := range ad.sent {
		if ref.ChatID == 777 && strings.Contains(ad.texts[i], "Current bugs") {
			listed = true
		}
	}
	ad.mu.Unlock()
	if !listed {
		t.Error("new bugs chat did not receive the listing after the change")
	}
	if last := ad.sent[len(ad.sent)-1]; last.ChatID != 500 {
		t.Errorf("confirmation sent to %d, want invoking chat 500", last.ChatID)
	}
	if !strings.Contains(ad.lastText(t), "updated") {
		t.Errorf("reply = %q", ad.lastText(t))
	}
}

func TestSetBugsChatRejectsGarbage(t *testing.T) {
	r, ad, cfg := newTestRouter(t)
	r.dispatch(context.Background(), cmd("setbugschat", "not-a-number", ownerID))
	if !strings.Contains(ad.lastText(t), "cannot parse") {
		t.Errorf("reply = %q", ad.lastText(t))
	}
	if cfg.Snapshot().BugsChatID != 42 {
		t.Error("garbage argument changed the chat")
	}
}

func TestSetInterval(t *testing.T) {
	tests := []struct {
		arg  string
		want time.Duration
	}{
		{"600", 10 * time.Minute},
		{"5m", 5 * time.Minute},
	}
	for _, tc := range tests {
		t.Run(tc.arg, func(t *testing.T) {
			r, _, cfg := newTestRouter(t)
			r.dispatch(context.Background(), cmd("setinterval", tc.arg, ownerID))
			if got := cfg.UpdateInterval(); got != tc.want {
				t.Errorf("interval = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSetIntervalRejectsTooShort(t *testing.T) {
	r, ad, cfg := newTestRouter(t)
	r.dispatch(context.Background(), cmd("setinterval", "10", ownerID))
	if !strings.Contains(ad.lastText(t), "at least 1 minute") {
		t.Errorf("reply = %q", ad.lastText(t))
	}
	if cfg.UpdateInterval() != config.DefaultUpdateInterval {
		t.Error("invalid interval applied")
	}
}

func TestRefreshRepliesInInvokingChat(t *testing.T) {
	r, ad, _ := newTestRouter(t)
	r.dispatch(context.Background(), cmd("refresh", "", 1))
	// The empty bug listing goes to chat 42, the confirmation to chat 500.
	last := ad.sent[len(ad.sent)-1]
	if last.ChatID != 500 {
		t.Errorf("confirmation sent to %d, want 500", last.ChatID)
	}
	if !strings.Contains(ad.lastText(t), "refreshed") {
		t.Errorf("reply = %q", ad.lastText(t))
	}
}

func TestReportCommandRepliesInline(t *testing.T) {
	r, ad, _ := newTestRouter(t)
	r.dispatch(context.Background(), cmd("report", "", 1))
	if last := ad.sent[len(ad.sent)-1]; last.ChatID != 500 {
		t.Errorf("report sent to %d, want invoking chat", last.ChatID)
	}
	if !strings.Contains(ad.lastText(t), "Completed tasks report") {
		t.Errorf("reply = %q", ad.lastText(t))
	}
	if strings.Contains(ad.lastText(t), "Generated automatically") {
		t.Error("manual report carries the auto footer")
	}
}

func TestLeaderboardCommandWithDays(t *testing.T) {
	r, ad, _ := newTestRouter(t)
	r.dispatch(context.Background(), cmd("leaderboard", "7", 1))
	if !strings.Contains(ad.lastText(t), "last 7 days") {
		t.Errorf("reply = %q", ad.lastText(t))
	}
}

func TestLeaderboardCommandRejectsBadDays(t *testing.T) {
	for _, arg := range []string{"0", "-3", "400", "week"} {
		r, ad, _ := newTestRouter(t)
		r.dispatch(context.Background(), cmd("leaderboard", arg, 1))
		if !strings.Contains(ad.lastText(t), "Usage") {
			t.Errorf("arg %q: reply = %q", arg, ad.lastText(t))
		}
	}
}

func TestStatusShowsConfiguration(t *testing.T) {
	r, ad, _ := newTestRouter(t)
	r.dispatch(context.Background(), cmd("status", "", 1))
	text := ad.lastText(t)
	for _, want := range []string{"Bugs chat: 42", "Reports chat: 43", "Leaderboard chat: not set", "Update interval"} {
		if !strings.Contains(text, want) {
			t.Errorf("status missing %q:\n%s", want, text)
		}
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	r, ad, _ := newTestRouter(t)
	r.dispatch(context.Background(), cmd("frobnicate", "", 1))
	if len(ad.sent) != 0 {
		t.Errorf("unknown command produced %d replies", len(ad.sent))
	}
}

func TestRunStopsOnChannelClose(t *testing.T) {
	r, _, _ := newTestRouter(t)
	in := make(chan transport.Command)
	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), in) }()
	close(in)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on channel close")
	}
}
