package app

import (
	"pingu/internal/config"
	"pingu/internal/plugin"
	"pingu/internal/runtime/supervisor"
	"pingu/internal/transport/telegram/router"
)

type Config = config.Config

type ConfigManager = config.ConfigManager

var NewConfigManager = config.NewConfigManager

type Supervisor = supervisor.Supervisor

var (
	NewSupervisor     = supervisor.NewSupervisor
	WithLogger        = supervisor.WithLogger
	WithCancelOnError = supervisor.WithCancelOnError
)

type CommandManager = router.CommandManager

var NewCommandManager = router.NewCommandManager

type PluginManager = plugin.PluginManager

type PluginDeps = plugin.PluginDeps

var NewPluginManager = plugin.NewPluginManager

type StopReason = plugin.StopReason

const (
	StopShutdown = plugin.StopShutdown
)
