package transport

import (
	"context"
	"errors"
)

// ErrNotFound reports that the message a call referred to no longer exists
// (deleted by a user, or never known to the platform). Callers branch on it
// with errors.Is instead of parsing platform error strings.
var ErrNotFound = errors.New("message not found")

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Document is one rendered output unit: a single chat message worth of text
// plus its send options. Formatters produce Documents; loops push them
// through an Adapter without looking inside.
type Document struct {
	Text           string
	ParseMode      string // "" = plain text
	DisablePreview bool
}

// Command is a parsed "/cmd args" message from a chat.
type Command struct {
	Name    string // without leading slash or @bot suffix
	Args    string // raw remainder after the command word
	ChatID  int64
	FromID  int64
	From    string // username, may be empty
	Message int
}

// Adapter is the messaging sink the loops drive.
//
// History returns references to messages this bot itself sent to the chat,
// oldest first. The Telegram Bot API cannot list arbitrary chat history, so
// implementations keep a bounded per-chat record of their own sends; after a
// restart the record starts empty, which callers must treat as "no known
// previous messages".
type Adapter interface {
	Start(ctx context.Context, out chan<- Command) error
	Stop(ctx context.Context) error

	Send(ctx context.Context, to ChatTarget, doc Document) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, doc Document) error
	Delete(ctx context.Context, ref MessageRef) error
	History(ctx context.Context, chat ChatTarget, limit int) []MessageRef
}
