package router

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pingu/internal/transport"
	logx "pingu/pkg/logx"
)

type fakeAdapter struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                           { return nil }
func (f *fakeAdapter) EditText(context.Context, transport.MessageRef, string, *transport.SendOptions) error {
	return nil
}
func (f *fakeAdapter) AnswerCallback(context.Context, string, string) error { return nil }

func (f *fakeAdapter) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestManager(t *testing.T, cmds ...Command) (*CommandManager, *fakeAdapter) {
	t.Helper()
	ad := &fakeAdapter{}
	m := NewCommandManager(logx.Nop(), ad, []int64{42})
	m.SetRegistry(cmds)
	return m, ad
}

func message(from int64, text string) transport.Update {
	return transport.Update{Kind: transport.UpdateMessage, Message: &transport.Message{ChatID: 1, FromID: from, Text: text}}
}

// drain runs every queued job synchronously.
func drain(m *CommandManager) {
	for {
		select {
		case job := <-m.jobs:
			m.runJob(0, job)
		default:
			return
		}
	}
}

func TestResolveRoutesAndAliases(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, *Request) error { return nil }
	m, _ := newTestManager(t,
		Command{Route: "course", Aliases: []string{"c"}, Handle: noop},
		Command{Route: "schedules status", Handle: noop},
		Command{Route: "schedules refresh", Handle: noop},
	)

	tests := []struct {
		text  string
		route string
		args  []string
		group bool
		ok    bool
	}{
		{text: "/course full CS100", route: "course", args: []string{"full", "CS100"}, ok: true},
		{text: "/c@pingubot less CS100", route: "course", args: []string{"less", "CS100"}, ok: true},
		{text: "/schedules status", route: "schedules status", ok: true},
		{text: "/schedules_refresh", route: "schedules refresh", ok: true},
		{text: "/schedules", group: true, ok: true},
		{text: "/nope", ok: false},
	}
	for _, tc := range tests {
		node, _, args, ok := m.resolve(tc.text)
		if ok != tc.ok {
			t.Fatalf("resolve(%q) ok = %v, want %v", tc.text, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if tc.group {
			if node.cmd != nil {
				t.Fatalf("resolve(%q) expected group node", tc.text)
			}
			continue
		}
		if node.cmd == nil || node.cmd.Route != tc.route {
			t.Fatalf("resolve(%q) route = %+v, want %q", tc.text, node.cmd, tc.route)
		}
		if strings.Join(args, " ") != strings.Join(tc.args, " ") {
			t.Fatalf("resolve(%q) args = %q, want %q", tc.text, args, tc.args)
		}
	}
}

func TestOwnerOnlyRejected(t *testing.T) {
	t.Parallel()

	called := false
	m, ad := newTestManager(t, Command{
		Route:  "schedules refresh",
		Access: AccessOwnerOnly,
		Handle: func(context.Context, *Request) error { called = true; return nil },
	})

	m.routeMessage(context.Background(), message(7, "/schedules refresh"))
	drain(m)
	if called {
		t.Fatalf("non-owner reached owner-only handler")
	}
	if msgs := ad.messages(); len(msgs) != 1 || msgs[0] != "unauthorized" {
		t.Fatalf("messages = %q", msgs)
	}

	m.routeMessage(context.Background(), message(42, "/schedules refresh"))
	drain(m)
	if !called {
		t.Fatalf("owner did not reach handler")
	}
}

func TestCooldownMiddleware(t *testing.T) {
	t.Parallel()

	calls := 0
	m, ad := newTestManager(t, Command{
		Route:    "course",
		Cooldown: 5 * time.Second,
		Handle:   func(context.Context, *Request) error { calls++; return nil },
	})

	for i := 0; i < 3; i++ {
		m.routeMessage(context.Background(), message(7, "/course full CS100"))
		drain(m)
	}
	m.routeMessage(context.Background(), message(8, "/course full CS100"))
	drain(m)

	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (one per user)", calls)
	}
	cooldownMsgs := 0
	for _, s := range ad.messages() {
		if strings.HasPrefix(s, "You are on cooldown.") {
			cooldownMsgs++
		}
	}
	if cooldownMsgs != 2 {
		t.Fatalf("cooldown replies = %d, want 2", cooldownMsgs)
	}
}

func TestUnknownCommandAndHelp(t *testing.T) {
	t.Parallel()

	m, ad := newTestManager(t, Command{Route: "course", Description: "look up a course", Handle: func(context.Context, *Request) error { return nil }})

	m.routeMessage(context.Background(), message(7, "/what"))
	m.routeMessage(context.Background(), message(7, "/help"))
	drain(m)

	msgs := ad.messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %q", msgs)
	}
	if msgs[0] != "Unknown command. Try /help" {
		t.Fatalf("unknown reply = %q", msgs[0])
	}
	if !strings.Contains(msgs[1], "<code>/course</code> - look up a course") {
		t.Fatalf("help text missing course entry:\n%s", msgs[1])
	}
}

func TestSanitizeTelegramCommand(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"schedules refresh": "schedules_refresh",
		"Course-Info":       "course_info",
		"2fa":               "cmd_2fa",
		"!!":                "",
	}
	for in, want := range cases {
		if got := sanitizeTelegramCommand(in); got != want {
			t.Fatalf("sanitizeTelegramCommand(%q) = %q, want %q", in, got, want)
		}
	}
}
