package adapter

import (
	"context"
	"testing"

	kit "taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{Offline: true}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	a, err := New(Config{Token: "123:abc", Offline: true}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.cfg.PollTimeout != defaultPollTimeout || a.cfg.SendBurst != defaultSendBurst {
		t.Fatalf("defaults not applied: %+v", a.cfg)
	}
	if got := a.sendLimiter.Burst(); got != defaultSendBurst {
		t.Fatalf("limiter burst = %d", got)
	}
}

func TestUpdatesDroppedWhenConsumerIsFull(t *testing.T) {
	a, err := New(Config{Token: "123:abc", Offline: true}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	out := make(chan kit.Update, 1)
	a.out.Store((chan<- kit.Update)(out))

	a.sendUpdate(kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{Text: "1"}})
	a.sendUpdate(kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{Text: "2"}})

	if got := (<-out).Message.Text; got != "1" {
		t.Fatalf("first update = %q", got)
	}
	if a.droppedUpdates != 1 {
		t.Fatalf("dropped = %d, want 1", a.droppedUpdates)
	}
}

func TestStopWithoutStart(t *testing.T) {
	a, err := New(Config{Token: "123:abc", Offline: true}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
