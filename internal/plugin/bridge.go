package plugin

import (
	"pingu/internal/config"
	"pingu/internal/runtime/supervisor"
	"pingu/internal/transport/telegram/router"
)

type Config = config.Config

type ConfigManager = config.ConfigManager

type PluginConfigRaw = config.PluginConfigRaw

type Supervisor = supervisor.Supervisor

type Access = router.Access

const (
	AccessEveryone  = router.AccessEveryone
	AccessOwnerOnly = router.AccessOwnerOnly
)

type Command = router.Command

type Request = router.Request

type HandlerFunc = router.HandlerFunc

type CommandManager = router.CommandManager
