// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/toeirei/u2fmap/internal/core"
	"github.com/toeirei/u2fmap/internal/i18n"
	"github.com/toeirei/u2fmap/internal/mapfile"
)

type sessionOpenedMsg struct{ session *core.Session }
type openFailedMsg struct{ err error }

// openerModel asks for the mapping file to edit.
type openerModel struct {
	input       textinput.Model
	suggestions []string
	next        int
	history     core.History
	err         error
	loading     bool
}

func newOpenerModel(path string, history core.History) openerModel {
	in := textinput.New()
	in.Placeholder = mapfile.DefaultPath()
	in.CharLimit = 4096
	in.Width = 60
	in.SetValue(path)
	in.CursorEnd()
	in.Focus()

	var suggestions []string
	for _, p := range []string{path, mapfile.DefaultPath(), mapfile.CentralPath} {
		if p != "" && !contains(suggestions, p) {
			suggestions = append(suggestions, p)
		}
	}
	return openerModel{input: in, suggestions: suggestions, next: 1, history: history}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func openCmd(path string, history core.History) tea.Cmd {
	return func() tea.Msg {
		s, err := core.Open(path, history)
		if err != nil {
			return openFailedMsg{err: err}
		}
		return sessionOpenedMsg{session: s}
	}
}

func (m openerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m openerModel) Update(msg tea.Msg) (openerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case openFailedMsg:
		m.loading = false
		m.err = msg.err
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			if len(m.suggestions) > 0 {
				m.input.SetValue(m.suggestions[m.next%len(m.suggestions)])
				m.input.CursorEnd()
				m.next++
			}
			return m, nil
		case tea.KeyEnter:
			path := strings.TrimSpace(m.input.Value())
			if path == "" {
				path = m.input.Placeholder
			}
			m.loading = true
			m.err = nil
			return m, openCmd(path, m.history)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m openerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("tui.opener.title")))
	b.WriteString("\n\n")
	b.WriteString(i18n.T("tui.opener.prompt"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	switch {
	case m.loading:
		b.WriteString(helpStyle.Render(i18n.T("tui.opener.loading")))
	case m.err != nil:
		b.WriteString(errorStyle.Render(core.ErrorMessage(m.err)))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(i18n.T("tui.opener.help")))
	return docStyle.Render(b.String())
}
