package scheduler

import "time"

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc := s.loc
	if loc == nil {
		loc = time.Local
	}
	snap := Snapshot{Enabled: s.cfg.Enabled, Running: s.c != nil, Timezone: loc.String()}
	for _, d := range s.defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec, Timeout: d.timeout, Running: d.running.Load()}
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			it.Next, it.Prev = e.Next, e.Prev
		}
		d.stats.mu.Lock()
		it.Runs, it.Skipped, it.Failures = d.stats.runs, d.stats.skipped, d.stats.failures
		it.LastRun, it.LastDur, it.LastErr = d.stats.lastRun, d.stats.lastDur, d.stats.lastErr
		d.stats.mu.Unlock()
		snap.Schedules = append(snap.Schedules, it)
	}
	return snap
}
