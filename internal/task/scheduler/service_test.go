package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"pingu/internal/eventbus"
	logx "pingu/pkg/logx"
)

func newTestService(t *testing.T) (*Service, eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	s := New(Config{Enabled: true, Timezone: "UTC"}, logx.Nop(), bus)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s, bus
}

func TestTriggerRunsJobAndPublishes(t *testing.T) {
	t.Parallel()
	s, bus := newTestService(t)
	events, unsub := bus.Subscribe(4)
	defer unsub()

	boom := errors.New("boom")
	if err := s.AddInterval("refresh", time.Hour, time.Second, func(ctx context.Context) error { return boom }); err != nil {
		t.Fatalf("AddInterval: %v", err)
	}
	if !s.Trigger("refresh") {
		t.Fatal("Trigger returned false")
	}

	select {
	case ev := <-events:
		if ev.Type != EventJobFinished {
			t.Fatalf("event type = %s", ev.Type)
		}
		je := ev.Data.(JobEvent)
		if je.Name != "refresh" || !errors.Is(je.Err, boom) {
			t.Fatalf("unexpected event: %+v", je)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}

	snap := s.Snapshot()
	if len(snap.Schedules) != 1 {
		t.Fatalf("schedules = %d", len(snap.Schedules))
	}
	info := snap.Schedules[0]
	if info.Runs != 1 || info.Failures != 1 || info.LastErr != "boom" {
		t.Fatalf("unexpected stats: %+v", info)
	}
}

func TestTriggerSkipsWhileRunning(t *testing.T) {
	t.Parallel()
	s, bus := newTestService(t)
	events, unsub := bus.Subscribe(8)
	defer unsub()

	started := make(chan struct{})
	release := make(chan struct{})
	job := func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}
	if err := s.AddInterval("slow", time.Hour, 0, job); err != nil {
		t.Fatalf("AddInterval: %v", err)
	}
	s.Trigger("slow")
	<-started
	s.Trigger("slow")

	select {
	case ev := <-events:
		if ev.Type != EventJobSkipped {
			t.Fatalf("event type = %s, want skipped", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no skip event")
	}
	close(release)
}

func TestTriggerUnknownOrStopped(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, logx.Nop(), nil)
	_ = s.AddInterval("x", time.Minute, 0, func(context.Context) error { return nil })
	if s.Trigger("x") {
		t.Fatal("Trigger before Start should fail")
	}
	s.Start(context.Background())
	defer s.Stop(context.Background())
	if s.Trigger("missing") {
		t.Fatal("Trigger of unknown schedule should fail")
	}
}

func TestAddUpsertsByName(t *testing.T) {
	t.Parallel()
	s, _ := newTestService(t)
	job := func(context.Context) error { return nil }
	_ = s.AddInterval("a", time.Minute, 0, job)
	_ = s.AddInterval("a", 2*time.Minute, 0, job)
	snap := s.Snapshot()
	if len(snap.Schedules) != 1 || snap.Schedules[0].Spec != "@every 2m0s" {
		t.Fatalf("unexpected schedules: %+v", snap.Schedules)
	}
	if !s.Remove("a") || s.Remove("a") {
		t.Fatal("Remove should succeed once")
	}
}

func TestAddCronRejectsBadSpec(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, logx.Nop(), nil)
	if err := s.AddCron("bad", "not cron at all", 0, func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error")
	}
}
