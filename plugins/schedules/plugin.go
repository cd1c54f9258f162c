// Package schedules answers course schedule lookups from a periodically
// refreshed copy of the NJIT course feed.
package schedules

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pingu/internal/plugin"
	"pingu/pkg/courses"
	logx "pingu/pkg/logx"
)

const refreshSchedule = "refresh"

type Plugin struct {
	plugin.PluginBase

	cache     *courses.Cache
	resolver  *courses.Resolver
	refresher *courses.Refresher

	mu      sync.RWMutex
	set     settings
	running bool
}

func New() *Plugin {
	cache := courses.NewCache()
	return &Plugin{
		cache:    cache,
		resolver: courses.NewResolver(cache),
		set:      defaultSettings(),
	}
}

func (p *Plugin) Name() string { return "schedules" }

func (p *Plugin) Init(ctx context.Context, deps plugin.PluginDeps) error {
	p.InitBase(deps, p.Name())
	s := p.settings()
	p.refresher = courses.NewRefresher(p.cache, courses.NewClient(s.endpoint, s.fetchTimeout), s.years, p.Log)
	return nil
}

func (p *Plugin) ValidateConfig(ctx context.Context, raw json.RawMessage) error {
	c, err := plugin.DecodePluginConfig[Config](raw)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	_, err = c.resolve()
	return err
}

// OnConfigChange swaps the feed client and paging settings in place and
// re-registers the refresh interval. Cached data is kept.
func (p *Plugin) OnConfigChange(ctx context.Context, raw json.RawMessage) error {
	c, err := plugin.DecodePluginConfig[Config](raw)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	s, err := c.resolve()
	if err != nil {
		return err
	}

	p.mu.Lock()
	prev := p.set
	p.set = s
	running := p.running
	p.mu.Unlock()

	p.refresher.SetSource(courses.NewClient(s.endpoint, s.fetchTimeout), s.years)
	if running && prev.refreshEvery != s.refreshEvery {
		if err := p.registerRefresh(s); err != nil {
			return err
		}
	}
	p.Log.Info("config applied",
		logx.String("endpoint", s.endpoint),
		logx.Strings("years", s.years),
		logx.Duration("refresh_every", s.refreshEvery),
		logx.Duration("cooldown", s.cooldown),
	)
	return nil
}

// Start waits for the transport to be ready, then refreshes immediately and
// on every interval after that.
func (p *Plugin) Start(ctx context.Context) error {
	p.StartBase(ctx)
	p.Runner.Go("refresh.bootstrap", func(ctx context.Context) error {
		if err := p.WaitReady(ctx); err != nil {
			return nil
		}
		s := p.settings()
		if err := p.registerRefresh(s); err != nil {
			p.Log.Error("refresh schedule not registered", logx.Err(err))
		}
		p.mu.Lock()
		p.running = true
		p.mu.Unlock()

		if !p.Trigger(refreshSchedule) {
			p.Log.Warn("scheduler not running; refreshing once without a schedule")
			_ = p.refresh(ctx)
		}
		return nil
	})
	return nil
}

// Stop removes the schedule and clears every cached semester.
func (p *Plugin) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	err := p.StopBase(ctx)
	p.refresher.Reset()
	p.PublishEvent(EventCleared, nil)
	return err
}

func (p *Plugin) settings() settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.set
}

func (p *Plugin) registerRefresh(s settings) error {
	_, err := p.Every(refreshSchedule, s.refreshEvery, s.refreshEvery, p.refreshJob)
	return err
}

// refreshJob runs refresh under the scheduler's context, also cancelled when
// the plugin stops.
func (p *Plugin) refreshJob(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.Context(), cancel)
	defer stop()
	return p.refresh(ctx)
}
