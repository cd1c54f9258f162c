package schedules

import (
	"fmt"
	"strings"
	"time"

	"pingu/internal/storage"
	"pingu/internal/task/scheduler"
	"pingu/pkg/courses"
)

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// escapeMarkdown escapes the characters Telegram's legacy Markdown treats as entities.
func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

func semestersText(snap *courses.Snapshot) string {
	var b strings.Builder
	b.WriteString("Semesters:\n")
	descs := snap.Index.Descriptions()
	if len(descs) == 0 {
		b.WriteString("- none\n")
	}
	for _, d := range descs {
		b.WriteString("- " + d)
		if d == snap.Current {
			b.WriteString(" (current)")
		}
		if _, ok := snap.Dataset(d); !ok {
			b.WriteString(" [not loaded]")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

type status struct {
	Snapshot    *courses.Snapshot
	Settings    settings
	Last        courses.CycleResult
	HasLast     bool
	Schedule    scheduler.ScheduleInfo
	HasSchedule bool
	Recent      []storage.AuditEntry
}

func (s status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schedules\n- endpoint: %s\n- years: %s\n- refresh every: %s\n",
		s.Settings.endpoint, strings.Join(s.Settings.years, ", "), s.Settings.refreshEvery)

	if s.HasSchedule {
		fmt.Fprintf(&b, "- running: %t\n- runs: %d (failed %d, skipped %d)\n", s.Schedule.Running, s.Schedule.Runs, s.Schedule.Failures, s.Schedule.Skipped)
		if !s.Schedule.Next.IsZero() {
			fmt.Fprintf(&b, "- next: %s\n", s.Schedule.Next.Format(time.RFC3339))
		}
		if s.Schedule.LastErr != "" {
			fmt.Fprintf(&b, "- last error: %s\n", s.Schedule.LastErr)
		}
	} else {
		b.WriteString("- schedule: not registered\n")
	}

	if s.HasLast {
		fmt.Fprintf(&b, "- last cycle: %s (%s), loaded %d, failed %d\n",
			s.Last.Started.Format(time.RFC3339), s.Last.Took.Round(time.Millisecond), len(s.Last.Loaded), len(s.Last.Failed))
		if len(s.Last.Failed) > 0 {
			fmt.Fprintf(&b, "- failed: %s\n", strings.Join(s.Last.Failed, ", "))
		}
	}

	if s.Snapshot == nil {
		b.WriteString("- cache: empty\n")
	} else {
		keys := s.Snapshot.Keys()
		fmt.Fprintf(&b, "- current: %s\n- cached: %s\n", s.Snapshot.Current, strings.Join(keys[1:], ", "))
	}

	if len(s.Recent) > 0 {
		b.WriteString("Recent refreshes:\n")
		for _, e := range s.Recent {
			fmt.Fprintf(&b, "- %s ok=%d fail=%d took=%dms", e.At.Format(time.RFC3339), e.OK, e.Fail, e.TookMS)
			if e.Error != "" {
				b.WriteString(" err=" + e.Error)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
