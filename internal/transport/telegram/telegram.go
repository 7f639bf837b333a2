package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"bugwatch/internal/transport"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
	// SentHistory bounds the per-chat record of messages the bot sent.
	SentHistory int
}

// Adapter wraps telebot behind transport.Adapter. Incoming "/command"
// messages are pushed to the channel given to Start; everything else from
// Telegram is ignored.
type Adapter struct {
	cfg Config
	log zerolog.Logger

	bot       *tele.Bot
	out       chan<- transport.Command
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
	runMu     sync.Mutex
	running   bool

	// stopPoll halts the telebot poller. telebot's Stop blocks when the
	// poller is not running, so every shutdown path goes through stopOnce,
	// which Start renews for the next run.
	stopPoll func()
	stopOnce *sync.Once

	// droppedCommands counts commands dropped because the consumer was slower
	// than the Telegram poll loop. Logged periodically to avoid per-update spam.
	droppedCommands uint64

	sentMu sync.Mutex
	sent   map[int64][]transport.MessageRef
}

func New(cfg Config, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.SentHistory <= 0 {
		cfg.SentHistory = 50
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, log: log, bot: b, stopPoll: b.Stop, sent: map[int64][]transport.MessageRef{}}, nil
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Command) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out = out
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.stopOnce = new(sync.Once)
	a.runWG.Add(2)
	a.runMu.Unlock()

	// Periodic summary for dropped commands.
	go func() {
		defer a.runWG.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-rctx.Done():
				if n := atomic.SwapUint64(&a.droppedCommands, 0); n > 0 {
					a.log.Warn().Uint64("count", n).Msg("incoming commands dropped (channel full)")
				}
				return
			case <-ticker.C:
				if n := atomic.SwapUint64(&a.droppedCommands, 0); n > 0 {
					a.log.Warn().Uint64("count", n).Msg("incoming commands dropped (channel full)")
				}
			}
		}
	}()

	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil {
			return nil
		}
		name, args, ok := splitCommand(m.Text)
		if !ok {
			return nil
		}
		cmd := transport.Command{
			Name:    name,
			Args:    args,
			ChatID:  m.Chat.ID,
			FromID:  m.Sender.ID,
			From:    m.Sender.Username,
			Message: m.ID,
		}
		select {
		case out <- cmd:
		default:
			atomic.AddUint64(&a.droppedCommands, 1)
		}
		return nil
	})

	go func() {
		defer a.runWG.Done()
		// Ensure telebot stops when the context is cancelled.
		go func() {
			<-rctx.Done()
			a.stopBot()
		}()
		a.log.Info().Msg("polling started")
		a.bot.Start() // blocks until Stop() called
	}()

	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	go a.stopBot()

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()

	// Grace window: keep shutdown snappy even if getUpdates long-poll is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		a.log.Info().Msg("polling stopped")
		return nil
	case <-ctx.Done():
		a.log.Warn().Err(ctx.Err()).Msg("telegram stop cancelled")
		return ctx.Err()
	case <-t.C:
		a.log.Warn().Msg("telegram stop grace elapsed; continuing shutdown")
		return nil
	}
}

// stopBot stops the poller at most once per Start.
func (a *Adapter) stopBot() {
	a.runMu.Lock()
	once := a.stopOnce
	a.runMu.Unlock()
	if once != nil {
		once.Do(a.stopPoll)
	}
}

func (a *Adapter) Send(ctx context.Context, to transport.ChatTarget, doc transport.Document) (transport.MessageRef, error) {
	chat := &tele.Chat{ID: to.ChatID}
	msg, err := a.bot.Send(chat, doc.Text, sendOptions(doc))
	if err != nil {
		return transport.MessageRef{}, mapError(err)
	}
	ref := transport.MessageRef{ChatID: to.ChatID, MessageID: msg.ID}
	a.recordSent(ref)
	return ref, nil
}

func (a *Adapter) Edit(ctx context.Context, ref transport.MessageRef, doc transport.Document) error {
	m := &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
	_, err := a.bot.Edit(m, doc.Text, sendOptions(doc))
	return mapError(err)
}

func (a *Adapter) Delete(ctx context.Context, ref transport.MessageRef) error {
	err := a.bot.Delete(&tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}})
	if err == nil {
		a.forgetSent(ref)
	}
	return mapError(err)
}

func (a *Adapter) History(ctx context.Context, chat transport.ChatTarget, limit int) []transport.MessageRef {
	a.sentMu.Lock()
	defer a.sentMu.Unlock()
	refs := a.sent[chat.ChatID]
	if limit > 0 && len(refs) > limit {
		refs = refs[len(refs)-limit:]
	}
	out := make([]transport.MessageRef, len(refs))
	copy(out, refs)
	return out
}

func (a *Adapter) recordSent(ref transport.MessageRef) {
	a.sentMu.Lock()
	defer a.sentMu.Unlock()
	refs := append(a.sent[ref.ChatID], ref)
	if len(refs) > a.cfg.SentHistory {
		refs = refs[len(refs)-a.cfg.SentHistory:]
	}
	a.sent[ref.ChatID] = refs
}

func (a *Adapter) forgetSent(ref transport.MessageRef) {
	a.sentMu.Lock()
	defer a.sentMu.Unlock()
	refs := a.sent[ref.ChatID]
	for i, r := range refs {
		if r.MessageID == ref.MessageID {
			a.sent[ref.ChatID] = append(refs[:i], refs[i+1:]...)
			return
		}
	}
}

func sendOptions(doc transport.Document) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:             doc.ParseMode,
		DisableWebPagePreview: doc.DisablePreview,
	}
}

// mapError translates telebot's "message to edit/delete not found" class of
// errors to transport.ErrNotFound so callers can branch without string checks.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "message to edit not found") ||
		strings.Contains(msg, "message to delete not found") ||
		strings.Contains(msg, "message can't be edited") {
		return transport.ErrNotFound
	}
	return err
}

func splitCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if head == "" {
		return "", "", false
	}
	// Strip "@botname" suffix used in groups.
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}
