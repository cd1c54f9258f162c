package eventbus

import "testing"

func TestPublishFanoutAndDrop(t *testing.T) {
	t.Parallel()

	b := New()
	a, unsubA := b.Subscribe(1)
	c, unsubC := b.Subscribe(4)
	defer unsubC()

	b.Publish(Event{Type: "schedules.refreshed"})
	b.Publish(Event{Type: "schedules.cleared"}) // a is full; dropped for a only

	if e := <-a; e.Type != "schedules.refreshed" || e.Time.IsZero() {
		t.Fatalf("a got %+v", e)
	}
	if len(c) != 2 {
		t.Fatalf("c buffered %d events, want 2", len(c))
	}

	unsubA()
	unsubA()
	if _, ok := <-a; ok {
		t.Fatalf("a should be closed after unsubscribe")
	}
	b.Publish(Event{Type: "after"})
}
