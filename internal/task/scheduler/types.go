package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"pingu/internal/eventbus"
	logx "pingu/pkg/logx"
)

type Config struct {
	Enabled  bool
	Timezone string // IANA name, e.g. "America/New_York"
}

type Job func(ctx context.Context) error

type scheduleDef struct {
	name          string
	spec          string // cron expression or "@every <d>"
	timeout       time.Duration
	job           Job
	entryID       cron.EntryID
	startupSpread time.Duration

	running *atomic.Bool
	stats   *runStats
}

type runStats struct {
	mu       sync.Mutex
	runs     uint64
	skipped  uint64
	failures uint64
	lastRun  time.Time
	lastDur  time.Duration
	lastErr  string
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location
	bus eventbus.Bus

	parser cron.Parser
	c      *cron.Cron
	defs   []*scheduleDef

	// base parents every run; cancelled by Stop.
	base       context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

type ScheduleInfo struct {
	Name     string
	Spec     string
	Timeout  time.Duration
	Next     time.Time
	Prev     time.Time
	Running  bool
	Runs     uint64
	Skipped  uint64
	Failures uint64
	LastRun  time.Time
	LastDur  time.Duration
	LastErr  string
}

type Snapshot struct {
	Enabled   bool
	Running   bool
	Timezone  string
	Schedules []ScheduleInfo
}

// Event types published on the bus.
const (
	EventJobFinished = "scheduler.job_finished"
	EventJobSkipped  = "scheduler.job_skipped"
)

type JobEvent struct {
	Name string
	Took time.Duration
	Err  error
}
