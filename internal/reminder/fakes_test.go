package reminder

import (
	"context"
	"errors"
	"sync"

	"taskbot/internal/transport"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMessage
	failTo map[int64]bool
}

func (f *fakeSender) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo[to.ChatID] {
		return transport.MessageRef{}, errors.New("chat not found")
	}
	f.sent = append(f.sent, sentMessage{chatID: to.ChatID, text: text})
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}
