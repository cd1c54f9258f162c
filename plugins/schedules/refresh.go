package schedules

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"pingu/internal/storage"
	"pingu/pkg/courses"
	logx "pingu/pkg/logx"
)

// refresh runs one cycle. The error goes to the scheduler, which logs it and
// keeps the schedule; the cache is only changed by successful fetches.
func (p *Plugin) refresh(ctx context.Context) error {
	start := time.Now()
	res, err := p.refresher.Cycle(ctx)
	switch {
	case errors.Is(err, courses.ErrCycleInProgress):
		p.Log.Debug("refresh skipped, cycle already running")
		return nil
	case courses.IsCanceled(err):
		p.Log.Info("refresh cycle stopped")
		return nil
	case err != nil:
		p.Log.Warn("refresh failed; keeping cached data", logx.Err(err))
	}

	ev := RefreshEvent{Loaded: len(res.Loaded), Failed: len(res.Failed), Took: time.Since(start)}
	if err != nil {
		ev.Err = err.Error()
	}

	meta, _ := json.Marshal(map[string]any{"loaded": res.Loaded, "failed": res.Failed, "semesters": res.Semesters})
	p.audit(ctx, storage.AuditEntry{
		Action:   "refresh",
		Target:   strings.Join(res.Loaded, ","),
		OK:       len(res.Loaded),
		Fail:     len(res.Failed),
		Error:    ev.Err,
		TookMS:   ev.Took.Milliseconds(),
		MetaJSON: string(meta),
	})
	p.PublishEvent(EventRefreshed, ev)
	return err
}

// audit is best effort; a disabled store is not an error.
func (p *Plugin) audit(ctx context.Context, e storage.AuditEntry) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.AppendAudit(actx, e); err != nil && !errors.Is(err, storage.ErrDisabled) {
		p.Log.Debug("audit append failed", logx.String("action", e.Action), logx.Err(err))
	}
}
