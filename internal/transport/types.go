package transport

import "context"

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
	UpdateVoice   UpdateKind = "voice"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	FromName     string
	Text         string
	Voice        *Voice // set for UpdateVoice
}

// Voice references an audio attachment that can be fetched with Adapter.Download.
type Voice struct {
	FileID   string
	Duration int // seconds
	MIME     string
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender is the outbound half of a chat transport.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

type Adapter interface {
	Sender

	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	// Download stores the referenced file at dst.
	Download(ctx context.Context, fileID, dst string) error
	// Typing shows a transient "typing..." indicator in the chat.
	Typing(ctx context.Context, to ChatTarget) error
	Delete(ctx context.Context, ref MessageRef) error
	// SetCommands publishes the command menu. Unchanged lists are not re-sent.
	SetCommands(ctx context.Context, cmds []BotCommand) error
}

// BotCommand is one entry of the bot's command menu.
type BotCommand struct {
	Command     string
	Description string
}
