package system

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"pingu/internal/plugin"
	"pingu/internal/task/scheduler"
)

func (p *Plugin) cmdHealth(ctx context.Context, req *plugin.Request) error {
	var plugins []plugin.PluginStatus
	if p.Deps.Plugins != nil {
		plugins = p.Deps.Plugins.Status()
	}
	var sched *scheduler.Snapshot
	if p.Deps.Scheduler != nil {
		s := p.Deps.Scheduler.Snapshot()
		sched = &s
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	// Plain text: schedule names and errors are not Markdown-safe.
	return req.Reply(ctx, healthText(time.Since(p.startedAt), &m, plugins, sched, time.Now()))
}

func healthText(up time.Duration, m *runtime.MemStats, plugins []plugin.PluginStatus, sched *scheduler.Snapshot, now time.Time) string {
	status := "Running"
	for _, st := range plugins {
		if st.Quarantined || (st.Enabled && !st.Running) {
			status = "Degraded"
		}
	}

	var b strings.Builder
	b.WriteString("🏥 Bot Health\n")
	fmt.Fprintf(&b, "Status: %s\nUptime: %s\n\n", status, shortDur(up))

	b.WriteString("💾 Memory\n")
	fmt.Fprintf(&b, "  • Allocated: %s\n  • System: %s\n  • GC runs: %d\n\n", humanize.IBytes(m.Alloc), humanize.IBytes(m.Sys), m.NumGC)

	b.WriteString("🤖 Runtime\n")
	fmt.Fprintf(&b, "  • Go: %s\n  • Goroutines: %d\n\n", runtime.Version(), runtime.NumGoroutine())

	b.WriteString("⏱ Scheduler\n")
	switch {
	case sched == nil || !sched.Enabled:
		b.WriteString("  • disabled\n")
	case len(sched.Schedules) == 0:
		fmt.Fprintf(&b, "  • no schedules (%s)\n", sched.Timezone)
	default:
		schedules := append([]scheduler.ScheduleInfo(nil), sched.Schedules...)
		sort.Slice(schedules, func(i, j int) bool { return schedules[i].Name < schedules[j].Name })
		for _, s := range schedules {
			next := "-"
			if !s.Next.IsZero() && s.Next.After(now) {
				next = "in " + shortDur(s.Next.Sub(now))
			}
			fmt.Fprintf(&b, "  • %s: %s, next %s, runs %d, failed %d", s.Name, s.Spec, next, s.Runs, s.Failures)
			if s.Running {
				b.WriteString(", running")
			}
			if s.LastErr != "" {
				b.WriteString(", last error: " + s.LastErr)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	b.WriteString("🔌 Plugins\n")
	if len(plugins) == 0 {
		b.WriteString("  • (none)\n")
	}
	for _, st := range plugins {
		icon := "✅"
		switch {
		case st.Quarantined:
			icon = "🧯"
		case !st.Enabled:
			icon = "⛔"
		case !st.Running:
			icon = "🟨"
		}
		fmt.Fprintf(&b, "  • %s %s", icon, st.Name)
		if st.Error != "" {
			b.WriteString(": " + st.Error)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortDur(d time.Duration) string {
	d = d.Abs()
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
	}
}
