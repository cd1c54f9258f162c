package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"pingu/internal/config"
	"pingu/internal/eventbus"
	logx "pingu/pkg/logx"
)

type StopReason string

const (
	StopShutdown      StopReason = "shutdown"
	StopPluginDisable StopReason = "plugin_disable"
	StopQuarantine    StopReason = "quarantine"
)

const callTimeout = 10 * time.Second

type pluginEvent struct {
	Plugin string `json:"plugin"`
	Reason string `json:"reason,omitempty"`
	Err    string `json:"err,omitempty"`
	TookMS int64  `json:"took_ms,omitempty"`
}

// PluginManager reconciles registered plugins with the plugins section of
// the config: it starts, stops and reconfigures them and keeps the command
// registry in sync with what is running.
type PluginManager struct {
	mu sync.Mutex

	log  logx.Logger
	cfgm *ConfigManager
	deps PluginDeps
	cmdm *CommandManager

	reg    map[string]Plugin
	run    map[string]bool
	inited map[string]bool
	// config hash last applied per running plugin
	lastRawHash map[string]uint64
	// plugins kept stopped until their config changes
	quarantine map[string]quarantineState

	// baseCtx outlives call-scoped contexts passed to StartAll/OnConfigUpdate.
	baseCtx    context.Context
	baseCancel context.CancelFunc
	bound      bool

	pcancel map[string]context.CancelFunc
}

type quarantineState struct {
	rawHash uint64
	err     string
	since   time.Time
}

type PluginStatus struct {
	Name        string
	Enabled     bool
	Running     bool
	Quarantined bool
	Error       string
}

func NewPluginManager(log logx.Logger, cfgm *ConfigManager, deps PluginDeps, cmdm *CommandManager) *PluginManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())
	pm := &PluginManager{
		log:         log,
		cfgm:        cfgm,
		deps:        deps,
		cmdm:        cmdm,
		reg:         map[string]Plugin{},
		run:         map[string]bool{},
		inited:      map[string]bool{},
		lastRawHash: map[string]uint64{},
		quarantine:  map[string]quarantineState{},
		baseCtx:     baseCtx,
		baseCancel:  baseCancel,
		pcancel:     map[string]context.CancelFunc{},
	}
	if pm.deps.Plugins == nil {
		pm.deps.Plugins = pm
	}
	return pm
}

func (pm *PluginManager) emit(typ string, data pluginEvent) {
	if pm.deps.Bus != nil {
		pm.deps.Bus.Publish(eventbus.Event{Type: typ, Data: data})
	}
}

// BindContext cancels every plugin context when appCtx ends. First bind wins.
func (pm *PluginManager) BindContext(appCtx context.Context) {
	pm.mu.Lock()
	if pm.bound || appCtx == nil {
		pm.mu.Unlock()
		return
	}
	pm.bound = true
	cancel := pm.baseCancel
	pm.mu.Unlock()

	go func() {
		<-appCtx.Done()
		cancel()
	}()
}

func (pm *PluginManager) Register(p ...Plugin) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, pl := range p {
		pm.reg[pl.Name()] = pl
	}
}

func (pm *PluginManager) StartAll(ctx context.Context) error {
	pm.BindContext(ctx)
	return pm.reconcile(pm.cfgm.Get())
}

func (pm *PluginManager) OnConfigUpdate(ctx context.Context, cfg *Config) {
	pm.BindContext(ctx)
	_ = pm.reconcile(cfg)
}

func (pm *PluginManager) StopAll(ctx context.Context, reason StopReason) {
	for _, name := range pm.names() {
		pm.stopOne(ctx, name, reason)
	}
	pm.refreshRegistry(pm.cfgm.Get())
}

func (pm *PluginManager) SetOwnerUserIDs(ids []int64) {
	pm.mu.Lock()
	pm.deps.OwnerUserID = append([]int64(nil), ids...)
	pm.mu.Unlock()
}

func (pm *PluginManager) names() []string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	out := make([]string, 0, len(pm.reg))
	for name := range pm.reg {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidateConfig runs each registered plugin's validator against cfg. It is
// used as the config manager's pre-commit hook.
func (pm *PluginManager) ValidateConfig(ctx context.Context, cfg *Config) error {
	for _, name := range pm.names() {
		pm.mu.Lock()
		p := pm.reg[name]
		pm.mu.Unlock()
		raw, ok := cfg.Plugins[name]
		if !ok || !raw.Enabled {
			continue
		}
		v, ok := p.(ConfigValidator)
		if !ok {
			continue
		}
		if err := pm.safeCall("plugin.validate."+name, func() error { return v.ValidateConfig(ctx, raw.Config) }); err != nil {
			return fmt.Errorf("plugins.%s: %w", name, err)
		}
	}
	return nil
}

func (pm *PluginManager) reconcile(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	for _, name := range pm.names() {
		pm.mu.Lock()
		p := pm.reg[name]
		running := pm.run[name]
		pm.mu.Unlock()

		raw, ok := cfg.Plugins[name]
		enabled := ok && raw.Enabled
		rawHash := config.CanonicalHashJSON(raw.Config)

		switch {
		case enabled && !running:
			pm.enable(name, p, raw.Config, rawHash)
		case !enabled && running:
			sctx, cancel := context.WithTimeout(pm.baseCtx, callTimeout)
			pm.stopOne(sctx, name, StopPluginDisable)
			cancel()
		case enabled && running:
			pm.reconfigure(name, p, raw.Config, rawHash)
		}
	}
	pm.refreshRegistry(cfg)
	return nil
}

func (pm *PluginManager) enable(name string, p Plugin, raw json.RawMessage, rawHash uint64) {
	pm.mu.Lock()
	q, quarantined := pm.quarantine[name]
	if quarantined && q.rawHash != rawHash {
		delete(pm.quarantine, name)
		quarantined = false
	}
	needInit := !pm.inited[name]
	deps := pm.deps
	pm.mu.Unlock()
	if quarantined {
		pm.log.Warn("plugin enable skipped (quarantined)", logx.String("plugin", name), logx.String("err", q.err))
		return
	}

	pctx, cancel := context.WithCancel(pm.baseCtx)
	fail := func(stage string, err error) {
		cancel()
		pm.log.Error("plugin "+stage+" failed", logx.String("plugin", name), logx.Err(err))
		pm.emit("plugin."+stage+"_failed", pluginEvent{Plugin: name, Err: err.Error()})
	}

	if needInit {
		ictx, icancel := context.WithTimeout(pctx, callTimeout)
		err := pm.safeCall("plugin.init."+name, func() error { return p.Init(ictx, deps) })
		icancel()
		if err != nil {
			fail("init", err)
			return
		}
		pm.mu.Lock()
		pm.inited[name] = true
		pm.mu.Unlock()
	}

	if err := pm.applyConfig(pctx, name, p, raw); err != nil {
		pm.setQuarantine(name, rawHash, err)
		fail("config", err)
		return
	}

	if err := pm.startWithTimeout(name, p, pctx, cancel, callTimeout); err != nil {
		fail("start", err)
		return
	}

	pm.mu.Lock()
	pm.run[name] = true
	pm.pcancel[name] = cancel
	pm.lastRawHash[name] = rawHash
	delete(pm.quarantine, name)
	pm.mu.Unlock()

	pm.log.Info("plugin started", logx.String("plugin", name))
	pm.emit("plugin.started", pluginEvent{Plugin: name})
}

func (pm *PluginManager) reconfigure(name string, p Plugin, raw json.RawMessage, rawHash uint64) {
	pm.mu.Lock()
	unchanged := pm.lastRawHash[name] == rawHash
	pm.mu.Unlock()
	if unchanged {
		return
	}
	if _, ok := p.(ConfigurablePlugin); !ok {
		return
	}

	if err := pm.applyConfig(pm.baseCtx, name, p, raw); err != nil {
		pm.setQuarantine(name, rawHash, err)
		pm.emit("plugin.config_failed", pluginEvent{Plugin: name, Err: err.Error()})
		sctx, cancel := context.WithTimeout(pm.baseCtx, callTimeout)
		pm.stopOne(sctx, name, StopQuarantine)
		cancel()
		return
	}
	pm.mu.Lock()
	pm.lastRawHash[name] = rawHash
	pm.mu.Unlock()
	pm.log.Info("plugin config applied", logx.String("plugin", name))
	pm.emit("plugin.config_applied", pluginEvent{Plugin: name})
}

func (pm *PluginManager) applyConfig(ctx context.Context, name string, p Plugin, raw json.RawMessage) error {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if v, ok := p.(ConfigValidator); ok {
		if err := pm.safeCall("plugin.validate."+name, func() error { return v.ValidateConfig(cctx, raw) }); err != nil {
			return fmt.Errorf("config validate: %w", err)
		}
	}
	if cp, ok := p.(ConfigurablePlugin); ok {
		if err := pm.safeCall("plugin.config."+name, func() error { return cp.OnConfigChange(cctx, raw) }); err != nil {
			return fmt.Errorf("config apply: %w", err)
		}
	}
	return nil
}

func (pm *PluginManager) setQuarantine(name string, rawHash uint64, err error) {
	pm.mu.Lock()
	pm.quarantine[name] = quarantineState{rawHash: rawHash, err: err.Error(), since: time.Now()}
	pm.mu.Unlock()
	pm.log.Warn("plugin quarantined until its config changes", logx.String("plugin", name), logx.Err(err))
}

func (pm *PluginManager) stopOne(stopCtx context.Context, name string, reason StopReason) {
	pm.mu.Lock()
	p := pm.reg[name]
	running := pm.run[name]
	cancel := pm.pcancel[name]
	pm.mu.Unlock()
	if !running || p == nil {
		return
	}

	start := time.Now()
	if cancel != nil {
		cancel()
	}

	// A misbehaving Stop must not block shutdown past stopCtx.
	done := make(chan struct{})
	go func() {
		_ = pm.safeCall("plugin.stop."+name, func() error { return p.Stop(stopCtx) })
		close(done)
	}()
	select {
	case <-done:
	case <-stopCtx.Done():
		pm.log.Warn("plugin stop timeout (continuing)", logx.String("plugin", name), logx.Err(stopCtx.Err()))
	}

	pm.mu.Lock()
	pm.run[name] = false
	delete(pm.pcancel, name)
	delete(pm.lastRawHash, name)
	pm.mu.Unlock()

	took := time.Since(start)
	pm.log.Info("plugin stopped", logx.String("plugin", name), logx.String("reason", string(reason)), logx.Duration("took", took))
	pm.emit("plugin.stopped", pluginEvent{Plugin: name, Reason: string(reason), TookMS: took.Milliseconds()})
}

// startWithTimeout cancels the plugin context if Start overruns timeout.
func (pm *PluginManager) startWithTimeout(name string, p Plugin, pctx context.Context, cancel context.CancelFunc, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- pm.safeCall("plugin.start."+name, func() error { return p.Start(pctx) }) }()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case err := <-done:
		return err
	case <-t.C:
		cancel()
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("start timeout (%s): %w", timeout, err)
			}
			return fmt.Errorf("start timeout (%s)", timeout)
		case <-time.After(2 * time.Second):
			return fmt.Errorf("start timeout (%s): start did not return after cancel", timeout)
		}
	}
}

func (pm *PluginManager) safeCall(label string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pm.log.Error("panic in plugin call", logx.String("call", label), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			err = fmt.Errorf("panic in %s: %v", label, r)
		}
	}()
	return fn()
}

func (pm *PluginManager) refreshRegistry(cfg *Config) {
	var cmds []Command
	for _, name := range pm.names() {
		pm.mu.Lock()
		p, running := pm.reg[name], pm.run[name]
		pm.mu.Unlock()
		if !running || cfg == nil || !cfg.Plugins[name].Enabled {
			continue
		}
		var list []Command
		_ = pm.safeCall("plugin.commands."+name, func() error { list = p.Commands(); return nil })
		for _, c := range list {
			c.PluginName = name
			cmds = append(cmds, c)
		}
	}
	if pm.cmdm != nil {
		pm.cmdm.SetRegistry(cmds)
	}
}

// Status lists every registered plugin, sorted by name.
func (pm *PluginManager) Status() []PluginStatus {
	cfg := pm.cfgm.Get()
	pm.mu.Lock()
	defer pm.mu.Unlock()
	out := make([]PluginStatus, 0, len(pm.reg))
	for name := range pm.reg {
		st := PluginStatus{Name: name, Running: pm.run[name]}
		if cfg != nil {
			st.Enabled = cfg.Plugins[name].Enabled
		}
		if q, ok := pm.quarantine[name]; ok {
			st.Quarantined, st.Error = true, q.err
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
