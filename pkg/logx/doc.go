// Package logx is pingu's structured logging layer.
//
// A thin wrapper (logx.Logger) over zerolog keeps three sinks consistent:
//   - console output for humans (short timestamp + file:line caller)
//   - JSON lines on disk
//   - an optional Telegram chat sink, filtered by level and rate limited
package logx
