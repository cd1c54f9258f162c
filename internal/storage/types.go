// Package storage persists the audit trail: course queries and refresh
// cycles. Schedule data itself is never persisted.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config selects a backend.
//
// Driver values:
//   - "file":   JSON Lines audit log at <path>.audit.jsonl
//   - "sqlite": SQLite database file
//
// An empty Driver or "none" disables storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only
}

// AuditEntry records one user action or background run.
type AuditEntry struct {
	At       time.Time `json:"at"`
	ActorID  int64     `json:"actor_id,omitempty"`
	ChatID   int64     `json:"chat_id,omitempty"`
	Plugin   string    `json:"plugin"`
	Action   string    `json:"action"`
	Target   string    `json:"target,omitempty"`
	OK       int       `json:"ok"`
	Fail     int       `json:"fail"`
	Error    string    `json:"err,omitempty"`
	TookMS   int64     `json:"took_ms"`
	MetaJSON string    `json:"meta,omitempty"`
}

type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	// RecentAudit returns the newest entries for plugin/action first.
	// An empty action matches every action.
	RecentAudit(ctx context.Context, plugin, action string, limit int) ([]AuditEntry, error)
	Close() error
}
