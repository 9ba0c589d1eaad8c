// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/toeirei/u2fmap/internal/i18n"
)

// editorKeyMap holds the editor bindings. Help texts are translated when
// the map is built, so it is rebuilt per editor.
type editorKeyMap struct {
	Up           key.Binding
	Down         key.Binding
	SwitchPane   key.Binding
	AddUser      key.Binding
	NewKey       key.Binding
	Delete       key.Binding
	TogglePIN    key.Binding
	TogglePres   key.Binding
	ToggleVerify key.Binding
	Copy         key.Binding
	Filter       key.Binding
	Save         key.Binding
	Reload       key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func (k editorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SwitchPane, k.AddUser, k.NewKey, k.Delete, k.Save, k.Help, k.Quit}
}

func (k editorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.SwitchPane, k.Filter},
		{k.AddUser, k.NewKey, k.Delete, k.Copy},
		{k.TogglePIN, k.TogglePres, k.ToggleVerify},
		{k.Save, k.Reload, k.Help, k.Quit},
	}
}

// editorKeyMap implements help.KeyMap
var _ help.KeyMap = editorKeyMap{}

func newEditorKeyMap() editorKeyMap {
	return editorKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", i18n.T("tui.help.up")),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", i18n.T("tui.help.down")),
		),
		SwitchPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", i18n.T("tui.help.switch_pane")),
		),
		AddUser: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", i18n.T("tui.help.add_user")),
		),
		NewKey: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", i18n.T("tui.help.new_key")),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", i18n.T("tui.help.delete")),
		),
		TogglePIN: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", i18n.T("tui.help.toggle_pin")),
		),
		TogglePres: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", i18n.T("tui.help.toggle_presence")),
		),
		ToggleVerify: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", i18n.T("tui.help.toggle_verification")),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", i18n.T("tui.help.copy_handle")),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", i18n.T("tui.help.filter")),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", i18n.T("tui.help.save")),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", i18n.T("tui.help.reload")),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", i18n.T("tui.help.more")),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", i18n.T("tui.help.quit")),
		),
	}
}
