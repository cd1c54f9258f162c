package schedules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pingu/internal/plugin"
	"pingu/internal/storage"
	"pingu/internal/transport"
	"pingu/pkg/courses"
	logx "pingu/pkg/logx"
)

const (
	courseUsage = "/course <full|compact> <course> [semester]"
	// Paging sleeps between chunks, so a long result needs more than the default timeout.
	courseTimeout = 2 * time.Minute
)

func (p *Plugin) Commands() []plugin.Command {
	s := p.settings()
	return []plugin.Command{
		{
			Route:       "course",
			Description: "look up the sections of a course",
			Usage:       courseUsage,
			Access:      plugin.AccessEveryone,
			Timeout:     courseTimeout,
			Cooldown:    s.cooldown,
			Handle:      p.handleCourse,
		},
		{
			Route:       "semesters",
			Description: "list semesters with cached course data",
			Usage:       "/semesters",
			Access:      plugin.AccessEveryone,
			Handle:      p.handleSemesters,
		},
		{
			Route:       "schedules status",
			Description: "course data refresh status",
			Usage:       "/schedules status",
			Access:      plugin.AccessOwnerOnly,
			Handle:      p.handleStatus,
		},
		{
			Route:       "schedules refresh",
			Description: "refresh course data now",
			Usage:       "/schedules refresh",
			Access:      plugin.AccessOwnerOnly,
			Handle:      p.handleRefresh,
		},
	}
}

func (p *Plugin) handleCourse(ctx context.Context, req *plugin.Request) error {
	switch len(req.Args) {
	case 0:
		return req.Reply(ctx, "No display format was specified.\nCommand usage: "+courseUsage)
	case 1:
		return req.Reply(ctx, "No course was specified.\nCommand usage: "+courseUsage)
	}

	q := courses.Query{Mode: req.Args[0], Course: req.Args[1], Semester: strings.Join(req.Args[2:], " ")}
	start := time.Now()
	res, err := p.resolver.Resolve(q)
	p.auditQuery(ctx, req, q, res, err, time.Since(start))
	if err != nil {
		req.Logger.Debug("course query rejected", logx.String("course", q.Course), logx.String("semester", q.Semester), logx.Err(err))
		return req.Reply(ctx, queryErrorText(err))
	}
	req.Logger.Info("course query", logx.String("semester", res.Semester), logx.String("course", res.Course),
		logx.String("mode", res.Mode.String()), logx.Int("sections", len(res.Sections)))

	tbl := courses.Render(res)
	tbl.Header = escapeMarkdown(tbl.Header)

	s := p.settings()
	send := courses.SenderFunc(func(ctx context.Context, text string) error {
		_, err := req.Adapter.SendText(ctx, req.Chat, text, &transport.SendOptions{ParseMode: transport.ParseModeMarkdown, DisablePreview: true})
		return err
	})
	return courses.NewPaginator(s.pageThreshold, s.pageDelay).Send(ctx, send, tbl)
}

func queryErrorText(err error) string {
	switch {
	case errors.Is(err, courses.ErrInvalidDisplayMode):
		return "Invalid display format.\nCommand usage: " + courseUsage
	case errors.Is(err, courses.ErrCacheEmpty):
		return "Course data was not retrieved. Try again later."
	case errors.Is(err, courses.ErrUnknownSemester):
		return "Specified semester does not exist. See /semesters."
	case errors.Is(err, courses.ErrSemesterDataUnavailable):
		return "Course data for this semester was not retrieved. Try again later."
	case errors.Is(err, courses.ErrCourseNotFound):
		return "Specified course was not found."
	default:
		return "Something went wrong while getting course information."
	}
}

func (p *Plugin) auditQuery(ctx context.Context, req *plugin.Request, q courses.Query, res *courses.Result, err error, took time.Duration) {
	e := storage.AuditEntry{
		ActorID: req.FromID,
		ChatID:  req.Chat.ChatID,
		Action:  "query",
		Target:  strings.ToUpper(q.Course),
		TookMS:  took.Milliseconds(),
	}
	meta := map[string]any{"mode": q.Mode, "semester": q.Semester}
	if err != nil {
		e.Fail, e.Error = 1, err.Error()
	} else {
		e.OK = 1
		meta["semester"], meta["sections"] = res.Semester, len(res.Sections)
	}
	b, _ := json.Marshal(meta)
	e.MetaJSON = string(b)
	p.audit(ctx, e)
}

func (p *Plugin) handleSemesters(ctx context.Context, req *plugin.Request) error {
	snap := p.cache.Load()
	if snap == nil {
		return req.Reply(ctx, queryErrorText(courses.ErrCacheEmpty))
	}
	return req.Reply(ctx, semestersText(snap))
}

func (p *Plugin) handleStatus(ctx context.Context, req *plugin.Request) error {
	st := status{Snapshot: p.cache.Load(), Settings: p.settings()}
	st.Last, st.HasLast = p.refresher.Last()
	st.Schedule, st.HasSchedule = p.ScheduleInfo(refreshSchedule)
	if p.Deps.Store != nil {
		recent, err := p.Deps.Store.RecentAudit(ctx, p.Name(), "refresh", 3)
		if err != nil {
			req.Logger.Debug("recent audit unavailable", logx.Err(err))
		}
		st.Recent = recent
	}
	return req.Reply(ctx, st.String())
}

func (p *Plugin) handleRefresh(ctx context.Context, req *plugin.Request) error {
	if info, ok := p.ScheduleInfo(refreshSchedule); ok && info.Running {
		return req.Reply(ctx, "A refresh cycle is already running.")
	}
	if !p.Trigger(refreshSchedule) {
		if p.Runner == nil {
			return req.Reply(ctx, "Plugin is not running.")
		}
		p.Runner.Go("refresh.manual", p.refresh)
	}
	req.Logger.Info("manual refresh requested")
	return req.Reply(ctx, fmt.Sprintf("Refresh started for %s.", strings.Join(p.settings().years, ", ")))
}
