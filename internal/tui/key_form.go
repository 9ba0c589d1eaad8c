// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/toeirei/u2fmap/internal/core"
	"github.com/toeirei/u2fmap/internal/i18n"
	"github.com/toeirei/u2fmap/internal/mapping"
)

const (
	fieldHandle = iota
	fieldPublicKey
	fieldKind
	fieldFlags
	fieldCount
)

// keyFormSubmitMsg carries a validated key out of the form.
type keyFormSubmitMsg struct {
	user string
	key  mapping.Key
}

// keyFormCancelMsg is sent when the form is dismissed.
type keyFormCancelMsg struct{}

// keyFormModel collects the parts of a new credential for one user.
type keyFormModel struct {
	user   string
	inputs []textinput.Model
	focus  int
	err    error
}

func newKeyFormModel(user string) keyFormModel {
	m := keyFormModel{user: user, inputs: make([]textinput.Model, fieldCount)}
	for i := range m.inputs {
		ti := textinput.New()
		ti.CharLimit = 0
		ti.Width = 50
		m.inputs[i] = ti
	}
	m.inputs[fieldHandle].Placeholder = i18n.T("tui.key_form.handle_placeholder")
	m.inputs[fieldPublicKey].Placeholder = "..."
	m.inputs[fieldKind].SetValue(mapping.KindES256)
	m.inputs[fieldFlags].SetValue("+" + mapping.FlagPresence)
	m.inputs[fieldFlags].Placeholder = "+presence+pin"
	m.inputs[fieldHandle].Focus()
	return m
}

func (m keyFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m keyFormModel) Update(msg tea.Msg) (keyFormModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return keyFormCancelMsg{} }
		case "tab", "down":
			return m.moveFocus(1), nil
		case "shift+tab", "up":
			return m.moveFocus(-1), nil
		case "enter":
			// A full key entry pasted into the first field is submitted as is.
			if m.focus < fieldCount-1 && !strings.Contains(m.inputs[fieldHandle].Value(), ",") {
				return m.moveFocus(1), nil
			}
			k, err := m.build()
			if err != nil {
				m.err = err
				return m, nil
			}
			user := m.user
			return m, func() tea.Msg { return keyFormSubmitMsg{user: user, key: k} }
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.err = nil
	return m, cmd
}

func (m keyFormModel) moveFocus(delta int) keyFormModel {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	m.inputs[m.focus].Focus()
	return m
}

// build validates the inputs and returns the key they describe.
func (m keyFormModel) build() (mapping.Key, error) {
	handle := strings.TrimSpace(m.inputs[fieldHandle].Value())
	if strings.Contains(handle, ",") {
		return mapping.DecodeKey(handle)
	}
	pub := strings.TrimSpace(m.inputs[fieldPublicKey].Value())
	if handle == "" || pub == "" {
		return mapping.Key{}, fmt.Errorf("%s", i18n.T("tui.key_form.error_required"))
	}
	return mapping.NewKey(handle, pub, strings.TrimSpace(m.inputs[fieldKind].Value()), parseFlags(m.inputs[fieldFlags].Value())...)
}

// parseFlags accepts "+pin+presence" as well as space or comma separated names.
func parseFlags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '+' || r == ' ' || r == ','
	})
}

func (m keyFormModel) View() string {
	labels := []string{
		i18n.T("tui.key_form.handle"),
		i18n.T("tui.key_form.public_key"),
		i18n.T("tui.key_form.kind"),
		i18n.T("tui.key_form.flags"),
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("tui.key_form.title", m.user)))
	b.WriteString("\n\n")
	for i, in := range m.inputs {
		style := formItemStyle
		if i == m.focus {
			style = formSelectedItemStyle
		}
		b.WriteString(style.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(core.ErrorMessage(m.err)))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(i18n.T("tui.key_form.help")))
	return dialogBoxStyle.Render(b.String())
}
