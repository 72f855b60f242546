// Package telegram runs the chat lookup bot: a long-polling worker that
// answers BIN queries over the Telegram Bot API. The bot is read-only; it
// never mutates the registry or the submission queue.
package telegram

import "context"

// Update is one incoming event from the chat platform.
type Update struct {
	ID      int64  `json:"update_id"`
	ChatID  int64  `json:"-"`
	Text    string `json:"-"`
	Command string `json:"-"`
}

// Command describes a bot command advertised to clients.
type Command struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// Transport is the chat platform the worker talks to. The production
// implementation is HTTPTransport; tests substitute a fake.
type Transport interface {
	// SetCommands publishes the bot's command menu. Failure is non-fatal.
	SetCommands(ctx context.Context, cmds []Command) error
	// GetUpdates long-polls for updates with an id strictly greater than
	// offset. It blocks up to the transport's poll timeout and returns an
	// empty slice when nothing arrived.
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
	// SendMessage delivers text to a chat.
	SendMessage(ctx context.Context, chatID int64, text string) error
}
