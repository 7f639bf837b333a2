package telegram

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"bugwatch/internal/transport"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in   string
		name string
		args string
		ok   bool
	}{
		{"/refresh", "refresh", "", true},
		{"/setinterval 600", "setinterval", "600", true},
		{"/REFRESH", "refresh", "", true},
		{"/refresh@bugwatch_bot", "refresh", "", true},
		{"/setbugschat@bugwatch_bot -100123", "setbugschat", "-100123", true},
		{"  /refresh  ", "refresh", "", true},
		{"/leaderboard   14 ", "leaderboard", "14", true},
		{"hello", "", "", false},
		{"/", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range tests {
		name, args, ok := splitCommand(tc.in)
		if name != tc.name || args != tc.args || ok != tc.ok {
			t.Errorf("splitCommand(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.in, name, args, ok, tc.name, tc.args, tc.ok)
		}
	}
}

func TestMapError(t *testing.T) {
	for _, msg := range []string{
		"telegram: message to edit not found (400)",
		"telegram: message to delete not found (400)",
		"telegram: message can't be edited (400)",
	} {
		if got := mapError(errors.New(msg)); !errors.Is(got, transport.ErrNotFound) {
			t.Errorf("mapError(%q) = %v, want ErrNotFound", msg, got)
		}
	}
	other := errors.New("telegram: chat not found (400)")
	if got := mapError(other); errors.Is(got, transport.ErrNotFound) {
		t.Errorf("mapError mapped unrelated error %v", other)
	}
	if mapError(nil) != nil {
		t.Error("mapError(nil) != nil")
	}
}

func TestRecordSentBoundsHistory(t *testing.T) {
	a := &Adapter{cfg: Config{SentHistory: 3}, sent: map[int64][]transport.MessageRef{}}
	for i := 1; i <= 10; i++ {
		a.recordSent(transport.MessageRef{ChatID: 1, MessageID: i})
	}
	refs := a.sent[1]
	if len(refs) != 3 {
		t.Fatalf("cache size = %d, want 3", len(refs))
	}
	// Oldest entries are evicted first.
	if refs[0].MessageID != 8 || refs[2].MessageID != 10 {
		t.Errorf("cache = %+v, want newest three", refs)
	}
}

func TestHistoryReturnsPerChatCopy(t *testing.T) {
	a := &Adapter{cfg: Config{SentHistory: 10}, sent: map[int64][]transport.MessageRef{}}
	a.recordSent(transport.MessageRef{ChatID: 1, MessageID: 5})
	a.recordSent(transport.MessageRef{ChatID: 2, MessageID: 6})

	refs := a.History(context.Background(), transport.ChatTarget{ChatID: 1}, 10)
	if len(refs) != 1 || refs[0].MessageID != 5 {
		t.Fatalf("history = %+v", refs)
	}
	refs[0].MessageID = 99
	if a.sent[1][0].MessageID != 5 {
		t.Error("History returned the internal slice, not a copy")
	}
}

func TestStopBotStopsPollerOnce(t *testing.T) {
	var calls int32
	a := &Adapter{stopPoll: func() { atomic.AddInt32(&calls, 1) }, stopOnce: new(sync.Once)}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.stopBot()
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("poller stopped %d times, want 1", n)
	}
}

func TestStopBotBeforeStartIsNoop(t *testing.T) {
	a := &Adapter{stopPoll: func() { t.Error("poller stopped without a Start") }}
	a.stopBot()
}

func TestForgetSentRemovesRef(t *testing.T) {
	a := &Adapter{cfg: Config{SentHistory: 10}, sent: map[int64][]transport.MessageRef{}}
	ref := transport.MessageRef{ChatID: 1, MessageID: 5}
	a.recordSent(ref)
	a.recordSent(transport.MessageRef{ChatID: 1, MessageID: 6})
	a.forgetSent(ref)
	for _, r := range a.sent[1] {
		if r == ref {
			t.Fatal("ref still cached after forget")
		}
	}
}
