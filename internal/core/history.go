// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"

	"github.com/toeirei/u2fmap/internal/db"
)

// History records what a Session changes. Implementations must be safe to
// call from a tea.Cmd goroutine.
type History interface {
	// LogAction appends an audit entry.
	LogAction(ctx context.Context, action, details string) error
	// SaveSnapshot keeps a copy of content as it was on disk at path.
	SaveSnapshot(ctx context.Context, path string, content []byte) error
}

// NopHistory discards everything. It is used when history is disabled.
type NopHistory struct{}

func (NopHistory) LogAction(context.Context, string, string) error    { return nil }
func (NopHistory) SaveSnapshot(context.Context, string, []byte) error { return nil }

// storeHistory adapts *db.Store to History.
type storeHistory struct {
	store *db.Store
}

// NewStoreHistory returns a History backed by the database store. A nil
// store yields NopHistory.
func NewStoreHistory(s *db.Store) History {
	if s == nil {
		return NopHistory{}
	}
	return storeHistory{store: s}
}

func (h storeHistory) LogAction(ctx context.Context, action, details string) error {
	return h.store.LogAction(ctx, action, details)
}

func (h storeHistory) SaveSnapshot(ctx context.Context, path string, content []byte) error {
	_, _, err := h.store.SaveSnapshot(ctx, path, content)
	return err
}
