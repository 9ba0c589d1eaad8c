// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"errors"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/toeirei/u2fmap/internal/core"
	"github.com/toeirei/u2fmap/internal/i18n"
	"github.com/toeirei/u2fmap/internal/mapping"
	"github.com/toeirei/u2fmap/internal/testutil"
)

const fixture = "alice:H1,P1,es256,+presence:H2,P2,eddsa,+pin+presence\nbob:H3,P3,es256,\n"

func newTestEditor(t *testing.T, content string) (editorModel, string) {
	t.Helper()
	i18n.Init("en")
	p := testutil.WriteMapping(t, content)
	s, err := core.Open(p, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return newEditorModel(s), p
}

// listedUsers returns the users shown in the users pane.
func listedUsers(m editorModel) []string {
	users := make([]string, len(m.lines))
	for i, n := range m.lines {
		users[i] = m.file.Mappings[n].User
	}
	return users
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msg to the editor and runs the returned command once,
// feeding its message back.
func send(m editorModel, msg tea.Msg) editorModel {
	m, cmd := m.Update(msg)
	if cmd != nil {
		if out := cmd(); out != nil {
			if _, quit := out.(tea.QuitMsg); !quit {
				m, _ = m.Update(out)
			}
		}
	}
	return m
}

func TestEditor_InitialState(t *testing.T) {
	m, _ := newTestEditor(t, fixture)
	if len(m.lines) != 2 || m.cursor != 0 {
		t.Fatalf("unexpected users %v cursor %d", m.lines, m.cursor)
	}
	rows := m.table.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 key rows for alice, got %d", len(rows))
	}
	if rows[1][0] != "eddsa" || rows[1][2] != checkMark || rows[1][3] != checkMark || rows[1][4] != "" {
		t.Fatalf("unexpected second row %v", rows[1])
	}
	v := m.View()
	if !strings.Contains(v, "alice") || !strings.Contains(v, "bob") {
		t.Fatalf("view misses users:\n%s", v)
	}
}

func TestEditor_NavigateUsers(t *testing.T) {
	m, _ := newTestEditor(t, fixture)
	m = send(m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 || len(m.table.Rows()) != 1 {
		t.Fatalf("expected bob with one key, cursor=%d rows=%d", m.cursor, len(m.table.Rows()))
	}
	m = send(m, keyRunes("j"))
	if m.cursor != 1 {
		t.Fatalf("cursor must stop at the last user")
	}
	m = send(m, keyRunes("k"))
	if m.cursor != 0 {
		t.Fatalf("expected cursor back on alice")
	}
}

func TestEditor_ToggleFlagsInKeysPane(t *testing.T) {
	m, _ := newTestEditor(t, fixture)

	// Flags only toggle with the keys pane focused.
	m = send(m, keyRunes("p"))
	if m.session.Dirty() {
		t.Fatalf("toggle in users pane must not edit")
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.pane != keysPane {
		t.Fatalf("expected keys pane after tab")
	}
	m = send(m, keyRunes("p"))
	if !m.session.Model().Mappings[0].Keys[0].HasFlag(mapping.FlagPIN) {
		t.Fatalf("expected pin on first key")
	}
	m = send(m, keyRunes("v"))
	m = send(m, keyRunes("s"))
	k := m.session.Model().Mappings[0].Keys[0]
	if !k.HasFlag(mapping.FlagVerification) || k.HasFlag(mapping.FlagPresence) {
		t.Fatalf("unexpected flags %v", k.Flags)
	}
	if m.table.Rows()[0][4] != checkMark {
		t.Fatalf("table not refreshed: %v", m.table.Rows()[0])
	}
}

func TestEditor_AddUserAndKey(t *testing.T) {
	m, _ := newTestEditor(t, fixture)

	m = send(m, keyRunes("a"))
	if m.mode != modeAddUser {
		t.Fatalf("expected add user mode")
	}
	m = send(m, keyRunes("carol"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeNormal || len(m.lines) != 3 || m.selectedUser().User != "carol" {
		t.Fatalf("carol not added and selected: mode=%d users=%d", m.mode, len(m.lines))
	}

	m = send(m, keyRunes("n"))
	if m.mode != modeKeyForm || m.form.user != "carol" {
		t.Fatalf("expected key form for carol")
	}
	// Paste a full key entry into the handle field.
	m = send(m, keyRunes("H9,P9,es256,+pin"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeNormal {
		t.Fatalf("expected form to close, mode=%d err=%v", m.mode, m.form.err)
	}
	c, _ := m.session.Model().Find("carol")
	if c == nil || len(c.Keys) != 1 || c.Keys[0].Handle != "H9" || !c.Keys[0].HasFlag(mapping.FlagPIN) {
		t.Fatalf("unexpected carol %+v", c)
	}
}

func TestEditor_AddUserRejectsDuplicate(t *testing.T) {
	m, _ := newTestEditor(t, fixture)
	m = send(m, keyRunes("a"))
	m = send(m, keyRunes("bob"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.statusErr || len(m.lines) != 2 {
		t.Fatalf("expected error status, got %q", m.status)
	}
}

func TestEditor_DeleteWithConfirm(t *testing.T) {
	m, _ := newTestEditor(t, fixture)

	m = send(m, keyRunes("d"))
	if m.mode != modeConfirmDelete {
		t.Fatalf("expected confirmation")
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.lines) != 2 {
		t.Fatalf("cancel must keep the user")
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(m, tea.KeyMsg{Type: tea.KeyDown})
	m = send(m, keyRunes("d"))
	m = send(m, keyRunes("y"))
	a, _ := m.session.Model().Find("alice")
	if len(a.Keys) != 1 || a.Keys[0].Handle != "H1" {
		t.Fatalf("expected second key removed, got %+v", a.Keys)
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(m, keyRunes("d"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if users := m.session.Model().Users(); len(users) != 1 || users[0] != "bob" {
		t.Fatalf("expected only bob left, got %v", users)
	}
}

func TestEditor_FilterUsers(t *testing.T) {
	m, _ := newTestEditor(t, fixture)
	m = send(m, keyRunes("/"))
	m = send(m, keyRunes("bo"))
	if got := listedUsers(m); len(got) != 1 || got[0] != "bob" {
		t.Fatalf("filter did not apply: %v", got)
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.filter != "bo" || m.mode != modeNormal {
		t.Fatalf("filter should stay after enter")
	}
	m = send(m, keyRunes("/"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.filter != "" || len(m.lines) != 2 {
		t.Fatalf("esc should clear the filter")
	}
}

func TestEditor_FilterKeys(t *testing.T) {
	m, _ := newTestEditor(t, fixture)
	m = send(m, keyRunes("/"))
	m = send(m, keyRunes("eddsa"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := listedUsers(m); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("expected alice only, got %v", got)
	}
	rows := m.table.Rows()
	if len(rows) != 1 || rows[0][0] != "eddsa" {
		t.Fatalf("expected the eddsa key only, got %v", rows)
	}

	// The only visible row is alice's second key.
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(m, keyRunes("v"))
	a := m.session.Model().Mappings[0]
	if a.Keys[0].HasFlag(mapping.FlagVerification) || !a.Keys[1].HasFlag(mapping.FlagVerification) {
		t.Fatalf("flag set on the wrong key: %+v", a.Keys)
	}
}

func TestEditor_DuplicateUserLines(t *testing.T) {
	m, p := newTestEditor(t, "alice:H1,P1,es256,+presence\nalice:H2,P2,es256,\n")
	m = send(m, tea.KeyMsg{Type: tea.KeyDown})
	if rows := m.table.Rows(); len(rows) != 1 || rows[0][1] != "H2" {
		t.Fatalf("expected the second line's key, got %v", rows)
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(m, keyRunes("p"))
	ms := m.session.Model().Mappings
	if ms[0].Keys[0].HasFlag(mapping.FlagPIN) || !ms[1].Keys[0].HasFlag(mapping.FlagPIN) {
		t.Fatalf("pin set on the wrong line: %+v", ms)
	}

	m = send(m, keyRunes("n"))
	m = send(m, keyRunes("H3,P3,eddsa,"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if ms := m.session.Model().Mappings; len(ms[0].Keys) != 1 || len(ms[1].Keys) != 2 {
		t.Fatalf("new key added to the wrong line: %+v", ms)
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(m, keyRunes("d"))
	m = send(m, keyRunes("y"))
	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.statusErr {
		t.Fatalf("save failed: %q", m.status)
	}
	if got := testutil.ReadFile(t, p); got != "alice:H1,P1,es256,+presence\n" {
		t.Fatalf("expected only the first line left, got %q", got)
	}
}

func TestEditor_RemoveLastUserSavesEmptyFile(t *testing.T) {
	m, p := newTestEditor(t, "bob:H3,P3,es256,\n")
	m = send(m, keyRunes("d"))
	m = send(m, keyRunes("y"))
	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if got := testutil.ReadFile(t, p); got != "" {
		t.Fatalf("expected empty file, got %q", got)
	}
	if len(m.lines) != 0 || m.session.Dirty() {
		t.Fatalf("expected clean empty editor, lines=%v", m.lines)
	}
}

func TestEditor_SaveAndQuitGuard(t *testing.T) {
	m, p := newTestEditor(t, fixture)

	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.statusErr || m.status == "" {
		t.Fatalf("expected nothing-to-save status, got %q", m.status)
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(m, keyRunes("p"))

	_, cmd := m.Update(keyRunes("q"))
	if cmd != nil {
		t.Fatalf("first q with unsaved changes must only warn")
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.statusErr || m.session.Dirty() {
		t.Fatalf("save failed: %q", m.status)
	}
	if got := testutil.ReadFile(t, p); !strings.HasPrefix(got, "alice:H1,P1,es256,+presence+pin:") {
		t.Fatalf("unexpected file content %q", got)
	}

	_, cmd = m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatalf("q on a clean editor must quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestEditor_ReloadGuard(t *testing.T) {
	m, p := newTestEditor(t, fixture)
	m = send(m, keyRunes("a"))
	m = send(m, keyRunes("dave"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})

	if err := os.WriteFile(p, []byte("zed:H,P,es256,\n"), 0600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	m = send(m, keyRunes("r"))
	if len(m.lines) != 3 {
		t.Fatalf("first r must only warn")
	}
	m = send(m, keyRunes("r"))
	if got := listedUsers(m); len(got) != 1 || got[0] != "zed" {
		t.Fatalf("expected reloaded file, got %v", got)
	}
}

func TestEditor_CopyHandle(t *testing.T) {
	var copied string
	prev := clipboardWrite
	clipboardWrite = func(s string) error { copied = s; return nil }
	defer func() { clipboardWrite = prev }()

	m, _ := newTestEditor(t, fixture)
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(m, keyRunes("y"))
	if copied != "H1" {
		t.Fatalf("expected H1 on the clipboard, got %q", copied)
	}

	clipboardWrite = func(string) error { return errors.New("no clipboard") }
	m = send(m, keyRunes("y"))
	if !m.statusErr {
		t.Fatalf("expected clipboard failure to be reported")
	}
}

func TestKeyForm_Validation(t *testing.T) {
	i18n.Init("en")
	f := newKeyFormModel("alice")

	// Enter walks the fields before submitting.
	f, cmd := f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || f.focus != fieldPublicKey {
		t.Fatalf("expected focus on public key, got %d", f.focus)
	}
	f = f.moveFocus(2)
	f, cmd = f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || f.err == nil {
		t.Fatalf("expected required-field error")
	}

	f.inputs[fieldHandle].SetValue("H")
	f.inputs[fieldPublicKey].SetValue("P")
	f.inputs[fieldFlags].SetValue("pin presence")
	_, cmd = f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected submit")
	}
	msg, ok := cmd().(keyFormSubmitMsg)
	if !ok {
		t.Fatalf("expected keyFormSubmitMsg")
	}
	if msg.key.String() != "H,P,es256,+pin+presence" {
		t.Fatalf("unexpected key %q", msg.key.String())
	}

	_, cmd = f.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(keyFormCancelMsg); !ok {
		t.Fatalf("expected cancel")
	}
}

func TestParseFlags(t *testing.T) {
	got := parseFlags("+pin+presence, verification ")
	want := []string{"pin", "presence", "verification"}
	if len(got) != len(want) {
		t.Fatalf("parseFlags = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parseFlags = %v", got)
		}
	}
}

func TestAlignFooterAndTruncate(t *testing.T) {
	if got := AlignFooter("ab", "cd", 10); got != "ab      cd" {
		t.Fatalf("AlignFooter = %q", got)
	}
	if got := AlignFooter("abc", "def", 2); got != "abc def" {
		t.Fatalf("AlignFooter narrow = %q", got)
	}
	if got := truncateHandle("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("truncateHandle = %q", got)
	}
	if got := truncateHandle("abc", 5); got != "abc" {
		t.Fatalf("truncateHandle short = %q", got)
	}
}
