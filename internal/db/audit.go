// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"os/user"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Audit actions recorded by the editor.
const (
	ActionAddUser    = "ADD_USER"
	ActionRemoveUser = "REMOVE_USER"
	ActionAddKey     = "ADD_KEY"
	ActionRemoveKey  = "REMOVE_KEY"
	ActionSetFlag    = "SET_FLAG"
	ActionImport     = "IMPORT"
	ActionSave       = "SAVE"
	ActionRestore    = "RESTORE"
)

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Timestamp     time.Time `bun:"timestamp"`
	Username      string    `bun:"username"`
	Action        string    `bun:"action"`
	Details       string    `bun:"details"`
}

// AuditEntry is a single audit log record.
type AuditEntry struct {
	ID        int64
	Timestamp time.Time
	Username  string
	Action    string
	Details   string
}

// currentUsername returns the OS user running the process, stripping a
// Windows domain prefix.
func currentUsername() string {
	curUser, err := user.Current()
	if err != nil {
		return "unknown"
	}
	if parts := strings.Split(curUser.Username, `\`); len(parts) > 1 {
		return parts[1]
	}
	return curUser.Username
}

// LogAction inserts an audit log entry attributed to the current OS user.
func (s *Store) LogAction(ctx context.Context, action, details string) error {
	m := &AuditLogModel{
		Timestamp: time.Now().UTC(),
		Username:  currentUsername(),
		Action:    action,
		Details:   details,
	}
	_, err := s.bun.NewInsert().Model(m).Exec(ctx)
	return MapDBError(err)
}

// AuditLog returns audit entries newest first. A limit <= 0 returns all.
func (s *Store) AuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	var am []AuditLogModel
	q := s.bun.NewSelect().Model(&am).OrderExpr("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]AuditEntry, 0, len(am))
	for _, a := range am {
		out = append(out, AuditEntry{ID: a.ID, Timestamp: a.Timestamp, Username: a.Username, Action: a.Action, Details: a.Details})
	}
	return out, nil
}
