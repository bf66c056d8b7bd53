package eventbus

import "testing"

func TestPublishFiltersByType(t *testing.T) {
	b := New()
	all, unsubAll := b.Subscribe(4)
	fired, unsubFired := b.Subscribe(4, "fired")
	defer unsubAll()
	defer unsubFired()

	b.Publish(Event{Type: "fired", Data: "a"})
	b.Publish(Event{Type: "replaced", Data: "b"})

	if got := len(all); got != 2 {
		t.Fatalf("all subscriber got %d events, want 2", got)
	}
	if got := len(fired); got != 1 {
		t.Fatalf("filtered subscriber got %d events, want 1", got)
	}
	e := <-fired
	if e.Data != "a" || e.Time.IsZero() {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	for i := 0; i < 3; i++ {
		b.Publish(Event{Type: "x"})
	}
	if got := b.Dropped(); got != 2 {
		t.Fatalf("dropped=%d want 2", got)
	}
}

func TestUnsubscribeClosesOnce(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed")
	}
	b.Publish(Event{Type: "x"})
}
