// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

import (
	"context"
	"sync"
)

// FakeHistory records audit actions and snapshots in memory. Set
// SnapshotErr to make every snapshot fail.
type FakeHistory struct {
	mu          sync.Mutex
	actions     []string
	details     []string
	snapshots   []string
	SnapshotErr error
}

func (f *FakeHistory) LogAction(_ context.Context, action, details string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	f.details = append(f.details, details)
	return nil
}

func (f *FakeHistory) SaveSnapshot(_ context.Context, _ string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SnapshotErr != nil {
		return f.SnapshotErr
	}
	f.snapshots = append(f.snapshots, string(content))
	return nil
}

// Actions returns the recorded audit actions in order.
func (f *FakeHistory) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

// Details returns the recorded audit details in order.
func (f *FakeHistory) Details() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.details...)
}

// Snapshots returns the recorded snapshot contents in order.
func (f *FakeHistory) Snapshots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.snapshots...)
}
