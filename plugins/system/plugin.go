// Package system provides liveness and health commands for the bot itself.
package system

import (
	"context"
	"time"

	"pingu/internal/plugin"
)

type Plugin struct {
	plugin.PluginBase
	startedAt time.Time
}

func New() *Plugin             { return &Plugin{startedAt: time.Now()} }
func (p *Plugin) Name() string { return "system" }

func (p *Plugin) Init(ctx context.Context, deps plugin.PluginDeps) error {
	p.InitBase(deps, p.Name())
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	p.StartBase(ctx)
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error { return p.StopBase(ctx) }

func (p *Plugin) Commands() []plugin.Command {
	return []plugin.Command{
		{
			Route:       "ping",
			Description: "liveness check",
			Usage:       "/ping",
			Access:      plugin.AccessEveryone,
			Handle: func(ctx context.Context, req *plugin.Request) error {
				return req.Reply(ctx, "pong")
			},
		},
		{
			Route:       "uptime",
			Aliases:     []string{"up"},
			Description: "show process uptime",
			Usage:       "/uptime",
			Access:      plugin.AccessEveryone,
			Handle: func(ctx context.Context, req *plugin.Request) error {
				return req.Reply(ctx, "uptime: "+shortDur(time.Since(p.startedAt)))
			},
		},
		{
			Route:       "health",
			Description: "runtime, scheduler and plugin status",
			Usage:       "/health",
			Access:      plugin.AccessOwnerOnly,
			Handle:      p.cmdHealth,
		},
	}
}
