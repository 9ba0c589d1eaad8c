// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/toeirei/u2fmap/internal/core"
	"github.com/toeirei/u2fmap/internal/logging"
)

// viewState represents which part of the UI is currently active.
type viewState int

const (
	openerView viewState = iota
	editorView
)

// mainModel is the top-level model. It routes messages to the opener until
// a file is open and to the editor afterwards.
type mainModel struct {
	state   viewState
	opener  openerModel
	editor  editorModel
	history core.History
	width   int
	height  int
}

func initialModel(path string, history core.History) mainModel {
	if history == nil {
		history = core.NopHistory{}
	}
	return mainModel{
		state:   openerView,
		opener:  newOpenerModel(path, history),
		history: history,
	}
}

func (m mainModel) Init() tea.Cmd {
	return m.opener.Init()
}

func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case sessionOpenedMsg:
		m.state = editorView
		m.editor = newEditorModel(msg.session)
		if m.width > 0 {
			m.editor, _ = m.editor.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		}
		return m, m.editor.Init()
	}

	switch m.state {
	case editorView:
		m.editor, cmd = m.editor.Update(msg)
	default:
		m.opener, cmd = m.opener.Update(msg)
	}
	return m, cmd
}

func (m mainModel) View() string {
	if m.state == editorView {
		return m.editor.View()
	}
	return m.opener.View()
}

// Run starts the editor in the alternate screen, with the opener prefilled
// with path. Log output is suppressed while the TUI owns the terminal.
func Run(path string, history core.History) error {
	logging.SetOutput(io.Discard)
	defer logging.SetOutput(os.Stderr)

	p := tea.NewProgram(initialModel(path, history), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
