package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bugwatch/internal/config"
	"bugwatch/internal/jira"
	"bugwatch/internal/render"
	"bugwatch/internal/transport"
)

// historyScan bounds how many remembered adapter messages a fresh send
// sweeps before posting.
const historyScan = 50

// ErrNoChat reports an operation whose destination chat has not been
// configured yet. The scheduled loops skip such cycles quietly; commands
// surface it to the operator.
var ErrNoChat = errors.New("destination chat not configured")

// BugSource is the slice of the tracker client the bug loop needs.
type BugSource interface {
	SearchOpenBugs(ctx context.Context) ([]jira.Issue, error)
}

// Refresher keeps exactly one live bug listing in the bugs chat: it edits
// the remembered message in place when possible and otherwise clears stale
// listings and posts fresh ones. Safe for concurrent use; the scheduled
// loop and the /refresh command share one instance.
type Refresher struct {
	cfg *config.Store
	src BugSource
	ad  transport.Adapter
	log zerolog.Logger
	loc *time.Location

	mu   sync.Mutex
	prev []transport.MessageRef
}

func NewRefresher(cfg *config.Store, src BugSource, ad transport.Adapter, loc *time.Location, log zerolog.Logger) *Refresher {
	return &Refresher{cfg: cfg, src: src, ad: ad, loc: loc, log: log.With().Str("component", "bugs").Logger()}
}

// Refresh runs one update cycle. It fails when the bugs chat is not
// configured or the tracker is unreachable; delivery cleanup failures are
// logged and tolerated.
func (r *Refresher) Refresh(ctx context.Context) error {
	chat, ok := r.cfg.BugsChat()
	if !ok {
		return fmt.Errorf("bugs: %w", ErrNoChat)
	}

	issues, err := r.src.SearchOpenBugs(ctx)
	if err != nil {
		return fmt.Errorf("fetch open bugs: %w", err)
	}

	now := time.Now().In(r.loc)
	docs := render.Bugs(issues, now, r.cfg.NameMapping())

	r.mu.Lock()
	defer r.mu.Unlock()

	last, haveLast := r.cfg.LastBugsMessage()
	if haveLast && last.ChatID == chat.ChatID && len(docs) == 1 {
		err := r.ad.Edit(ctx, last, docs[0])
		if err == nil {
			r.log.Debug().Int("issues", len(issues)).Int("message", last.MessageID).Msg("bug listing edited in place")
			return nil
		}
		if errors.Is(err, transport.ErrNotFound) {
			r.log.Info().Int("message", last.MessageID).Msg("remembered bug message is gone, posting fresh")
		} else {
			r.log.Warn().Err(err).Int("message", last.MessageID).Msg("edit failed, posting fresh")
		}
	}

	return r.sendFresh(ctx, chat, docs, last, haveLast)
}

// sendFresh sweeps stale listings out of the chat and posts the rendered
// documents in order, remembering the final one for the next edit attempt.
func (r *Refresher) sendFresh(ctx context.Context, chat transport.ChatTarget, docs []transport.Document, last transport.MessageRef, haveLast bool) error {
	stale := make(map[int]transport.MessageRef)
	if haveLast && last.ChatID == chat.ChatID {
		stale[last.MessageID] = last
	}
	for _, ref := range r.prev {
		if ref.ChatID == chat.ChatID {
			stale[ref.MessageID] = ref
		}
	}
	for _, ref := range r.ad.History(ctx, chat, historyScan) {
		stale[ref.MessageID] = ref
	}
	for _, ref := range stale {
		if err := r.ad.Delete(ctx, ref); err != nil && !errors.Is(err, transport.ErrNotFound) {
			r.log.Warn().Err(err).Int("message", ref.MessageID).Msg("could not delete stale listing")
		}
	}

	sent := make([]transport.MessageRef, 0, len(docs))
	for i, doc := range docs {
		ref, err := r.ad.Send(ctx, chat, doc)
		if err != nil {
			// Remember partial output so the next cycle sweeps it.
			r.prev = sent
			r.cfg.ClearLastBugsMessage()
			return fmt.Errorf("send bug listing %d/%d: %w", i+1, len(docs), err)
		}
		sent = append(sent, ref)
	}
	r.prev = sent
	if len(sent) > 0 {
		r.cfg.SetLastBugsMessage(sent[len(sent)-1])
	}
	r.log.Info().Int("messages", len(sent)).Int64("chat", chat.ChatID).Msg("bug listing posted")
	return nil
}

// NewBugLoop builds the recurring runner for the live bug listing. It runs
// immediately on startup and then on the configured interval; repeated
// failures escalate into a long cool-off instead of hammering the tracker.
func NewBugLoop(r *Refresher, cfg *config.Store, log zerolog.Logger) *Runner {
	return &Runner{
		Name:      "bugs",
		Log:       log,
		Immediate: true,
		Delay: func(time.Time) time.Duration {
			return cfg.UpdateInterval()
		},
		Action: func(ctx context.Context) error {
			err := r.Refresh(ctx)
			if errors.Is(err, ErrNoChat) {
				log.Debug().Msg("bugs chat not configured, skipping cycle")
				return nil
			}
			return err
		},
		RetryDelay: func(failures int) time.Duration {
			return bugRetry(cfg.UpdateInterval(), failures)
		},
		RetryReplacesDelay: true,
	}
}
