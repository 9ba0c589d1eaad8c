// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/toeirei/u2fmap/internal/db"
	"github.com/toeirei/u2fmap/internal/logging"
	"github.com/toeirei/u2fmap/internal/mapfile"
	"github.com/toeirei/u2fmap/internal/mapping"
)

var (
	// ErrUserExists is returned when adding a user that already has a line.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when a user has no line in the file.
	ErrUserNotFound = errors.New("user not found")
	// ErrKeyNotFound is returned for a key index outside the user's keys.
	ErrKeyNotFound = errors.New("key not found")
	// ErrLineNotFound is returned for a line index outside the file.
	ErrLineNotFound = errors.New("line not found")
)

type auditEvent struct {
	action  string
	details string
}

// Session is an open mapping file. All methods are safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	path    string
	file    *mapping.File
	loaded  string // encoded content as last read from or written to disk
	exists  bool
	history History
	pending []auditEvent
}

// Open loads the mapping file at path. A missing file opens as an empty
// model and is created on the first save. A nil history disables history.
func Open(path string, history History) (*Session, error) {
	if history == nil {
		history = NopHistory{}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	s := &Session{path: abs, history: history}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) load() error {
	raw, err := mapfile.ReadRaw(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.file = &mapping.File{TrailingNewline: true}
		s.loaded = ""
		s.exists = false
		s.pending = nil
		return nil
	case err != nil:
		return err
	}
	f, err := mapping.Decode(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	if raw == "" {
		f.TrailingNewline = true
	}
	s.file = f
	s.loaded = raw
	s.exists = true
	s.pending = nil
	return nil
}

// Path returns the absolute path of the file.
func (s *Session) Path() string {
	return s.path
}

// Exists reports whether the file was present on disk at the last load or save.
func (s *Session) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists
}

// Model returns a copy of the current model.
func (s *Session) Model() *mapping.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Clone()
}

// Content returns the current model encoded as file content.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mapping.Encode(s.file)
}

// Dirty reports whether the model differs from what is on disk.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked()
}

func (s *Session) dirtyLocked() bool {
	if !s.exists {
		return len(s.file.Mappings) > 0
	}
	return mapping.Encode(s.file) != s.loaded
}

// Reload discards unsaved edits and reads the file again. On failure the
// current model is kept.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevFile, prevLoaded, prevExists, prevPending := s.file, s.loaded, s.exists, s.pending
	if err := s.load(); err != nil {
		s.file, s.loaded, s.exists, s.pending = prevFile, prevLoaded, prevExists, prevPending
		return err
	}
	return nil
}

// AddUser appends a line for user with no keys.
func (s *Session) AddUser(user string) error {
	m, err := mapping.NewMapping(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, _ := s.file.Find(user); existing != nil {
		return fmt.Errorf("%w: %s", ErrUserExists, user)
	}
	s.file.Add(m)
	s.record(db.ActionAddUser, "user="+user)
	return nil
}

// RemoveUser deletes every line for user.
func (s *Session) RemoveUser(user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file.Remove(user) == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, user)
	}
	s.record(db.ActionRemoveUser, "user="+user)
	return nil
}

// RemoveLine deletes the mapping on line (0-based), leaving other lines
// for the same user in place.
func (s *Session) RemoveLine(line int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.mappingAt(line)
	if err != nil {
		return err
	}
	user := m.User
	s.file.RemoveAt(line)
	s.record(db.ActionRemoveUser, fmt.Sprintf("user=%s line=%d", user, line+1))
	return nil
}

// AddKey appends k to user's line, creating the line when user has none.
func (s *Session) AddKey(user string, k mapping.Key) error {
	if err := mapping.ValidateUser(user); err != nil {
		return err
	}
	if _, err := mapping.NewKey(k.Handle, k.PublicKey, k.Kind, k.Flags...); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.ensureUser(user)
	m.AddKey(k.Clone())
	s.record(db.ActionAddKey, fmt.Sprintf("user=%s handle=%s kind=%s", user, ShortHandle(k.Handle), k.Kind))
	return nil
}

// AddKeyAt appends k to the mapping on line (0-based).
func (s *Session) AddKeyAt(line int, k mapping.Key) error {
	if _, err := mapping.NewKey(k.Handle, k.PublicKey, k.Kind, k.Flags...); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.mappingAt(line)
	if err != nil {
		return err
	}
	m.AddKey(k.Clone())
	s.record(db.ActionAddKey, fmt.Sprintf("user=%s line=%d handle=%s kind=%s", m.User, line+1, ShortHandle(k.Handle), k.Kind))
	return nil
}

func (s *Session) ensureUser(user string) *mapping.Mapping {
	if m, _ := s.file.Find(user); m != nil {
		return m
	}
	s.file.Add(mapping.Mapping{User: user})
	m, _ := s.file.Find(user)
	return m
}

// ImportLine merges one line of pamu2fcfg output. Keys whose handle the
// user already has are skipped. It returns the user and the number of
// keys added.
func (s *Session) ImportLine(line string) (string, int, error) {
	in, err := mapping.DecodeLine(line)
	if err != nil {
		return "", 0, err
	}
	if err := mapping.ValidateUser(in.User); err != nil {
		return "", 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.ensureUser(in.User)
	added := 0
	for _, k := range in.Keys {
		if hasHandle(m, k.Handle) {
			continue
		}
		m.AddKey(k)
		added++
	}
	if added > 0 {
		s.record(db.ActionImport, fmt.Sprintf("user=%s keys=%d", in.User, added))
	}
	return in.User, added, nil
}

func hasHandle(m *mapping.Mapping, handle string) bool {
	for _, k := range m.Keys {
		if k.Handle == handle {
			return true
		}
	}
	return false
}

// RemoveKey removes the key at index (0-based) from user's first line.
func (s *Session) RemoveKey(user string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, err := s.lineOf(user)
	if err != nil {
		return err
	}
	return s.removeKeyLocked(line, index)
}

// RemoveKeyAt removes the key at index from the mapping on line (both 0-based).
func (s *Session) RemoveKeyAt(line, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeKeyLocked(line, index)
}

func (s *Session) removeKeyLocked(line, index int) error {
	m, err := s.key(line, index)
	if err != nil {
		return err
	}
	handle := m.Keys[index].Handle
	m.RemoveKey(index)
	s.record(db.ActionRemoveKey, fmt.Sprintf("user=%s line=%d handle=%s", m.User, line+1, ShortHandle(handle)))
	return nil
}

// SetFlag turns flag on or off for the key at index (0-based) on user's
// first line.
func (s *Session) SetFlag(user string, index int, flag string, on bool) error {
	if err := mapping.ValidateFlag(flag); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	line, err := s.lineOf(user)
	if err != nil {
		return err
	}
	return s.setFlagLocked(line, index, flag, on)
}

// SetFlagAt turns flag on or off for the key at index on line.
func (s *Session) SetFlagAt(line, index int, flag string, on bool) error {
	if err := mapping.ValidateFlag(flag); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setFlagLocked(line, index, flag, on)
}

// ToggleFlag flips flag on the key at index on user's first line and
// returns the new state.
func (s *Session) ToggleFlag(user string, index int, flag string) (bool, error) {
	if err := mapping.ValidateFlag(flag); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	line, err := s.lineOf(user)
	if err != nil {
		return false, err
	}
	return s.toggleFlagLocked(line, index, flag)
}

// ToggleFlagAt flips flag on the key at index on line and returns the new state.
func (s *Session) ToggleFlagAt(line, index int, flag string) (bool, error) {
	if err := mapping.ValidateFlag(flag); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleFlagLocked(line, index, flag)
}

func (s *Session) toggleFlagLocked(line, index int, flag string) (bool, error) {
	m, err := s.key(line, index)
	if err != nil {
		return false, err
	}
	on := !m.Keys[index].HasFlag(flag)
	return on, s.setFlagLocked(line, index, flag, on)
}

func (s *Session) setFlagLocked(line, index int, flag string, on bool) error {
	m, err := s.key(line, index)
	if err != nil {
		return err
	}
	k := &m.Keys[index]
	if k.HasFlag(flag) == on {
		return nil
	}
	k.SetFlag(flag, on)
	state := "off"
	if on {
		state = "on"
	}
	s.record(db.ActionSetFlag, fmt.Sprintf("user=%s line=%d handle=%s flag=%s %s", m.User, line+1, ShortHandle(k.Handle), flag, state))
	return nil
}

// lineOf returns the index of user's first line.
func (s *Session) lineOf(user string) (int, error) {
	if _, i := s.file.Find(user); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%w: %s", ErrUserNotFound, user)
}

func (s *Session) mappingAt(line int) (*mapping.Mapping, error) {
	if line < 0 || line >= len(s.file.Mappings) {
		return nil, fmt.Errorf("%w: %d", ErrLineNotFound, line+1)
	}
	return &s.file.Mappings[line], nil
}

func (s *Session) key(line, index int) (*mapping.Mapping, error) {
	m, err := s.mappingAt(line)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(m.Keys) {
		return nil, fmt.Errorf("%w: %s has %d keys, index %d", ErrKeyNotFound, m.User, len(m.Keys), index+1)
	}
	return m, nil
}

// Replace swaps the model for the decoded content, for example an earlier
// snapshot. The change is saved like any other edit.
func (s *Session) Replace(content, reason string) error {
	f, err := mapping.Decode(content)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = f
	s.record(db.ActionRestore, reason)
	return nil
}

func (s *Session) record(action, details string) {
	s.pending = append(s.pending, auditEvent{action: action, details: details})
}

// Save writes the model to disk when it has changed. The previous content
// is snapshotted first; a failed snapshot aborts the save. Edits made since
// the last save are then written to the audit log.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirtyLocked() {
		s.pending = nil
		return nil
	}

	if s.exists {
		if err := s.history.SaveSnapshot(ctx, s.path, []byte(s.loaded)); err != nil {
			return fmt.Errorf("snapshot %s: %w", s.path, err)
		}
	}

	content := mapping.Encode(s.file)
	if err := mapfile.WriteRaw(s.path, []byte(content)); err != nil {
		return err
	}
	s.loaded = content
	s.exists = true

	events := append(s.pending, auditEvent{action: db.ActionSave, details: fmt.Sprintf("path=%s users=%d", s.path, len(s.file.Mappings))})
	s.pending = nil
	for _, e := range events {
		if err := s.history.LogAction(ctx, e.action, e.details); err != nil {
			logging.Warnf("audit %s: %v", e.action, err)
		}
	}
	logging.Infof("saved %s", s.path)
	return nil
}
