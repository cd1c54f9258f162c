package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"pingu/internal/eventbus"
	"pingu/internal/runtime/supervisor"
	"pingu/internal/storage"
	"pingu/internal/task/scheduler"
	"pingu/internal/transport"
	logx "pingu/pkg/logx"
)

type Plugin interface {
	Name() string
	Init(ctx context.Context, deps PluginDeps) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Commands() []Command
}

// ConfigurablePlugin receives its raw config block before Start and on every change.
type ConfigurablePlugin interface {
	OnConfigChange(ctx context.Context, raw json.RawMessage) error
}

// ConfigValidator is checked before a new config is committed.
type ConfigValidator interface {
	ValidateConfig(ctx context.Context, raw json.RawMessage) error
}

type PluginDeps struct {
	Logger    logx.Logger
	Adapter   transport.Adapter
	Config    *ConfigManager
	Scheduler *scheduler.Service
	Bus       eventbus.Bus
	// Store is nil when storage is disabled.
	Store       storage.Store
	OwnerUserID []int64
	// Ready is closed once the transport is up and receiving updates.
	Ready <-chan struct{}
	// Plugins reports the manager's view; filled in by NewPluginManager.
	Plugins StatusSource
}

type StatusSource interface {
	Status() []PluginStatus
}

// PluginBase is embedded by plugins for logging, a supervised goroutine
// runner, namespaced schedules, audit and events.
//
//	type Plugin struct{ plugin.PluginBase }
//	func (p *Plugin) Init(ctx context.Context, deps plugin.PluginDeps) error { p.InitBase(deps, p.Name()); return nil }
//	func (p *Plugin) Start(ctx context.Context) error { p.StartBase(ctx); return nil }
//	func (p *Plugin) Stop(ctx context.Context) error { return p.StopBase(ctx) }
type PluginBase struct {
	Log        logx.Logger
	Deps       PluginDeps
	Runner     *Supervisor
	pluginName string

	ctx context.Context
}

func (b *PluginBase) InitBase(deps PluginDeps, pluginName string) {
	b.Deps = deps
	b.pluginName = pluginName
	log := deps.Logger
	if log.IsZero() {
		log = logx.Nop()
	}
	b.Log = log.With(logx.String("plugin", pluginName))
}

// StartBase creates the plugin's supervisor bound to ctx.
func (b *PluginBase) StartBase(ctx context.Context) {
	b.ctx = ctx
	b.Runner = supervisor.NewSupervisor(ctx, supervisor.WithLogger(b.Log))
}

// StopBase removes the plugin's schedules, cancels its goroutines and waits
// for them, bounded by ctx.
func (b *PluginBase) StopBase(ctx context.Context) error {
	for _, name := range b.schedules() {
		b.Deps.Scheduler.Remove(name)
	}
	if b.Runner == nil {
		return nil
	}
	b.Runner.Cancel()
	err := b.Runner.Wait(ctx)
	b.Runner = nil
	return err
}

// Context is the plugin runtime context, cancelled on stop or disable.
func (b *PluginBase) Context() context.Context {
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// WaitReady blocks until the transport is ready or ctx ends.
func (b *PluginBase) WaitReady(ctx context.Context) error {
	if b.Deps.Ready == nil {
		return nil
	}
	select {
	case <-b.Deps.Ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Every registers (or replaces) an interval schedule named "<plugin>:<name>".
func (b *PluginBase) Every(name string, every, timeout time.Duration, job scheduler.Job) (string, error) {
	if b.Deps.Scheduler == nil {
		return "", errors.New("scheduler not available")
	}
	id := b.ns(name)
	return id, b.Deps.Scheduler.AddInterval(id, every, timeout, job)
}

func (b *PluginBase) Cron(name, spec string, timeout time.Duration, job scheduler.Job) (string, error) {
	if b.Deps.Scheduler == nil {
		return "", errors.New("scheduler not available")
	}
	id := b.ns(name)
	return id, b.Deps.Scheduler.AddSchedule(id, spec, timeout, job)
}

// Trigger runs the named schedule now.
func (b *PluginBase) Trigger(name string) bool {
	if b.Deps.Scheduler == nil {
		return false
	}
	return b.Deps.Scheduler.Trigger(b.ns(name))
}

// ScheduleInfo reports the scheduler's view of one of this plugin's schedules.
func (b *PluginBase) ScheduleInfo(name string) (scheduler.ScheduleInfo, bool) {
	if b.Deps.Scheduler == nil {
		return scheduler.ScheduleInfo{}, false
	}
	id := b.ns(name)
	for _, s := range b.Deps.Scheduler.Snapshot().Schedules {
		if s.Name == id {
			return s, true
		}
	}
	return scheduler.ScheduleInfo{}, false
}

func (b *PluginBase) schedules() []string {
	if b.Deps.Scheduler == nil {
		return nil
	}
	prefix := b.ns("")
	var out []string
	for _, s := range b.Deps.Scheduler.Snapshot().Schedules {
		if s.Name == prefix || strings.HasPrefix(s.Name, prefix+":") {
			out = append(out, s.Name)
		}
	}
	return out
}

func (b *PluginBase) ns(name string) string {
	switch {
	case b.pluginName == "":
		return name
	case name == "":
		return b.pluginName
	default:
		return b.pluginName + ":" + name
	}
}

// AppendAudit writes e to the store. Plugin is filled in when empty.
// Returns storage.ErrDisabled when no store is configured.
func (b *PluginBase) AppendAudit(ctx context.Context, e storage.AuditEntry) error {
	if b.Deps.Store == nil {
		return storage.ErrDisabled
	}
	if e.Plugin == "" {
		e.Plugin = b.pluginName
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	return b.Deps.Store.AppendAudit(ctx, e)
}

func (b *PluginBase) PublishEvent(typ string, data any) {
	if b.Deps.Bus == nil {
		return
	}
	b.Deps.Bus.Publish(eventbus.Event{Type: typ, Data: data})
}

// DecodePluginConfig decodes raw into T, rejecting unknown keys.
func DecodePluginConfig[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
