// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/u2fmap/internal/core"
	"github.com/toeirei/u2fmap/internal/i18n"
	"github.com/toeirei/u2fmap/internal/mapping"
	"github.com/toeirei/u2fmap/util/slicest"
)

type pane int

const (
	usersPane pane = iota
	keysPane
)

type editorMode int

const (
	modeNormal editorMode = iota
	modeAddUser
	modeFilter
	modeKeyForm
	modeConfirmDelete
)

const (
	usersPaneWidth  = 24
	handleColWidth  = 44
	minTableHeight  = 3
	chromeHeight    = 12
	checkMark       = "✓"
	defaultWidth    = 100
	defaultHeight   = 30
	handleCopyLabel = "handle"
)

type savedMsg struct{ err error }
type reloadedMsg struct{ err error }

// pendingDelete describes the item waiting for confirmation.
type pendingDelete struct {
	user  string
	line  int
	index int // -1 deletes the whole line
}

// editorModel edits one open mapping file.
type editorModel struct {
	session *core.Session
	keys    editorKeyMap
	help    help.Model

	file    *mapping.File
	lines   []int // file line of each listed user, after the filter
	keyRows []int // key index of each table row, after the filter
	cursor  int
	pane    pane
	table   table.Model

	mode     editorMode
	input    textinput.Model
	filter   string
	form     keyFormModel
	formLine int
	pending  pendingDelete

	status    string
	statusErr bool
	armed     string // "q" or "r" after a warning about unsaved changes

	width, height int
}

func newEditorModel(s *core.Session) editorModel {
	columns := []table.Column{
		{Title: i18n.T("tui.keys.header.type"), Width: 8},
		{Title: i18n.T("tui.keys.header.handle"), Width: handleColWidth},
		{Title: i18n.T("tui.keys.header.pin"), Width: 5},
		{Title: i18n.T("tui.keys.header.presence"), Width: 9},
		{Title: i18n.T("tui.keys.header.verification"), Width: 12},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(defaultHeight-chromeHeight),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSubtle).
		BorderBottom(true).
		Bold(true)
	st.Selected = st.Selected.
		Foreground(colorWhite).
		Background(colorHighlight).
		Bold(false)
	t.SetStyles(st)

	in := textinput.New()
	in.CharLimit = 256

	m := editorModel{
		session: s,
		keys:    newEditorKeyMap(),
		help:    help.New(),
		table:   t,
		input:   in,
		width:   defaultWidth,
		height:  defaultHeight,
	}
	m.refresh()
	return m
}

func (m editorModel) Init() tea.Cmd {
	return nil
}

// refresh reloads the model copy from the session and rebuilds the views.
func (m *editorModel) refresh() {
	m.file = m.session.Model()
	m.lines = core.FilterMappings(m.file.Mappings, m.filter)
	if m.cursor >= len(m.lines) {
		m.cursor = len(m.lines) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.rebuildTable()
}

func (m *editorModel) rebuildTable() {
	m.keyRows = nil
	u := m.selectedUser()
	if u != nil {
		m.keyRows = core.VisibleKeys(*u, m.filter)
	}
	rows := slicest.Map(m.keyRows, func(i int) table.Row {
		k := u.Keys[i]
		return table.Row{
			k.Kind,
			truncateHandle(k.Handle, handleColWidth),
			mark(k.HasFlag(mapping.FlagPIN)),
			mark(k.HasFlag(mapping.FlagPresence)),
			mark(k.HasFlag(mapping.FlagVerification)),
		}
	})
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func mark(on bool) string {
	if on {
		return checkMark
	}
	return ""
}

// selectedLine returns the file line of the highlighted user.
func (m editorModel) selectedLine() (int, bool) {
	if m.cursor < 0 || m.cursor >= len(m.lines) {
		return 0, false
	}
	return m.lines[m.cursor], true
}

func (m editorModel) selectedUser() *mapping.Mapping {
	line, ok := m.selectedLine()
	if !ok {
		return nil
	}
	return &m.file.Mappings[line]
}

// selectedKey returns the file line and key index of the highlighted key.
func (m editorModel) selectedKey() (int, int, bool) {
	line, ok := m.selectedLine()
	if !ok {
		return 0, 0, false
	}
	row := m.table.Cursor()
	if row < 0 || row >= len(m.keyRows) {
		return 0, 0, false
	}
	return line, m.keyRows[row], true
}

func (m *editorModel) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *editorModel) setError(err error) {
	m.status, m.statusErr = core.ErrorMessage(err), true
}

func saveCmd(s *core.Session) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{err: s.Save(context.Background())}
	}
}

func reloadCmd(s *core.Session) tea.Cmd {
	return func() tea.Msg {
		return reloadedMsg{err: s.Reload()}
	}
}

func (m editorModel) Update(msg tea.Msg) (editorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-chromeHeight, minTableHeight))
		m.help.Width = msg.Width
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(i18n.T("tui.status.saved", m.session.Path()))
		}
		m.refresh()
		return m, nil

	case reloadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(i18n.T("tui.status.reloaded"))
		}
		m.refresh()
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(i18n.T("tui.status.copied"))
		}
		return m, nil

	case keyFormSubmitMsg:
		m.mode = modeNormal
		if err := m.session.AddKeyAt(m.formLine, msg.key); err != nil {
			m.setError(err)
		} else {
			m.setStatus(i18n.T("tui.status.key_added", msg.user))
		}
		m.refresh()
		m.table.GotoBottom()
		return m, nil

	case keyFormCancelMsg:
		m.mode = modeNormal
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeKeyForm:
			var cmd tea.Cmd
			m.form, cmd = m.form.Update(msg)
			return m, cmd
		case modeAddUser:
			return m.updateAddUser(msg)
		case modeFilter:
			return m.updateFilter(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg), nil
		}
		return m.updateNormal(msg)
	}

	if m.mode == modeKeyForm {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m editorModel) updateNormal(msg tea.KeyMsg) (editorModel, tea.Cmd) {
	armed := m.armed
	m.armed = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.session.Dirty() && armed != "q" {
			m.armed = "q"
			m.status, m.statusErr = i18n.T("tui.status.unsaved_quit"), true
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Reload):
		if m.session.Dirty() && armed != "r" {
			m.armed = "r"
			m.status, m.statusErr = i18n.T("tui.status.unsaved_reload"), true
			return m, nil
		}
		return m, reloadCmd(m.session)

	case key.Matches(msg, m.keys.Save):
		if !m.session.Dirty() {
			m.setStatus(i18n.T("tui.status.nothing_to_save"))
			return m, nil
		}
		return m, saveCmd(m.session)

	case key.Matches(msg, m.keys.SwitchPane):
		if m.pane == usersPane {
			m.pane = keysPane
			m.table.Focus()
		} else {
			m.pane = usersPane
			m.table.Blur()
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.AddUser):
		m.mode = modeAddUser
		m.input.Reset()
		m.input.Placeholder = i18n.T("tui.users.add_placeholder")
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Filter):
		m.mode = modeFilter
		m.input.SetValue(m.filter)
		m.input.Placeholder = i18n.T("tui.users.filter_placeholder")
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.NewKey):
		line, ok := m.selectedLine()
		if !ok {
			m.setStatus(i18n.T("tui.status.no_user"))
			return m, nil
		}
		m.mode = modeKeyForm
		m.formLine = line
		m.form = newKeyFormModel(m.file.Mappings[line].User)
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		if m.pane == usersPane {
			if line, ok := m.selectedLine(); ok {
				m.pending = pendingDelete{user: m.file.Mappings[line].User, line: line, index: -1}
				m.mode = modeConfirmDelete
			}
			return m, nil
		}
		if line, i, ok := m.selectedKey(); ok {
			m.pending = pendingDelete{user: m.file.Mappings[line].User, line: line, index: i}
			m.mode = modeConfirmDelete
		}
		return m, nil

	case key.Matches(msg, m.keys.TogglePIN):
		return m.toggle(mapping.FlagPIN), nil
	case key.Matches(msg, m.keys.TogglePres):
		return m.toggle(mapping.FlagPresence), nil
	case key.Matches(msg, m.keys.ToggleVerify):
		return m.toggle(mapping.FlagVerification), nil

	case key.Matches(msg, m.keys.Copy):
		if line, i, ok := m.selectedKey(); ok {
			return m, copyCmd(handleCopyLabel, m.file.Mappings[line].Keys[i].Handle)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		if m.pane == keysPane {
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
		if key.Matches(msg, m.keys.Up) && m.cursor > 0 {
			m.cursor--
		} else if key.Matches(msg, m.keys.Down) && m.cursor < len(m.lines)-1 {
			m.cursor++
		}
		m.table.SetCursor(0)
		m.rebuildTable()
		return m, nil
	}

	if m.pane == keysPane {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m editorModel) toggle(flag string) editorModel {
	if m.pane != keysPane {
		return m
	}
	line, i, ok := m.selectedKey()
	if !ok {
		return m
	}
	on, err := m.session.ToggleFlagAt(line, i, flag)
	if err != nil {
		m.setError(err)
		return m
	}
	if on {
		m.setStatus(i18n.T("tui.status.flag_on", flag))
	} else {
		m.setStatus(i18n.T("tui.status.flag_off", flag))
	}
	m.refresh()
	return m
}

func (m editorModel) updateAddUser(msg tea.KeyMsg) (editorModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeNormal
		m.input.Blur()
		name := strings.TrimSpace(m.input.Value())
		if err := m.session.AddUser(name); err != nil {
			m.setError(err)
			return m, nil
		}
		m.filter = ""
		m.refresh()
		m.cursor = len(m.lines) - 1
		m.rebuildTable()
		m.setStatus(i18n.T("tui.status.user_added", name))
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m editorModel) updateFilter(msg tea.KeyMsg) (editorModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.input.Blur()
		m.filter = ""
		m.refresh()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filter = m.input.Value()
	m.cursor = 0
	m.refresh()
	return m, cmd
}

func (m editorModel) updateConfirm(msg tea.KeyMsg) editorModel {
	switch msg.String() {
	case "y", "enter":
		m.mode = modeNormal
		var err error
		if m.pending.index < 0 {
			err = m.session.RemoveLine(m.pending.line)
			if err == nil {
				m.setStatus(i18n.T("tui.status.user_removed", m.pending.user))
			}
		} else {
			err = m.session.RemoveKeyAt(m.pending.line, m.pending.index)
			if err == nil {
				m.setStatus(i18n.T("tui.status.key_removed", m.pending.index+1, m.pending.user))
			}
		}
		if err != nil {
			m.setError(err)
		}
		m.refresh()
	case "n", "esc", "q":
		m.mode = modeNormal
		m.setStatus("")
	}
	return m
}

func (m editorModel) View() string {
	var b strings.Builder

	title := titleStyle.Render("u2fmap")
	path := helpStyle.Render(m.session.Path())
	if m.session.Dirty() {
		path += " " + specialStyle.Render(i18n.T("tui.modified"))
	}
	b.WriteString(title + " " + path + "\n\n")

	if m.mode == modeKeyForm {
		b.WriteString(m.form.View())
		return docStyle.Render(b.String())
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.usersView(), " ", m.keysView()))
	b.WriteString("\n")

	switch m.mode {
	case modeAddUser:
		b.WriteString(i18n.T("tui.users.add_prompt") + " " + m.input.View())
	case modeFilter:
		b.WriteString("/ " + m.input.View())
	case modeConfirmDelete:
		if m.pending.index < 0 {
			b.WriteString(specialStyle.Render(i18n.T("tui.confirm.delete_user", m.pending.user)))
		} else {
			b.WriteString(specialStyle.Render(i18n.T("tui.confirm.delete_key", m.pending.index+1, m.pending.user)))
		}
	default:
		if m.status != "" {
			if m.statusErr {
				b.WriteString(errorStyle.Render(m.status))
			} else {
				b.WriteString(successStyle.Render(m.status))
			}
		}
	}
	b.WriteString("\n")

	left := m.help.View(m.keys)
	right := statusMessageStyle.Render(i18n.T("tui.footer.counts", len(m.file.Mappings), core.CountKeys(m.file)))
	b.WriteString(AlignFooter(left, right, max(m.width-4, 0)))
	return docStyle.Render(b.String())
}

func (m editorModel) usersView() string {
	var lines []string
	lines = append(lines, titleStyle.Render(i18n.T("tui.users.title")))
	if m.filter != "" {
		lines = append(lines, helpStyle.Render("/"+m.filter))
	}
	if len(m.lines) == 0 {
		lines = append(lines, helpStyle.Render(i18n.T("tui.users.empty")))
	}
	for i, n := range m.lines {
		u := m.file.Mappings[n]
		name := u.User
		if name == "" {
			name = i18n.T("tui.users.blank")
		}
		line := fmt.Sprintf("%s (%d)", truncateHandle(name, usersPaneWidth-6), len(u.Keys))
		if i == m.cursor {
			lines = append(lines, selectedItemStyle.Render("▸ "+line))
		} else {
			lines = append(lines, itemStyle.Render("  "+line))
		}
	}
	style := paneStyle
	if m.pane == usersPane {
		style = focusedPaneStyle
	}
	return style.Width(usersPaneWidth).Render(strings.Join(lines, "\n"))
}

func (m editorModel) keysView() string {
	heading := i18n.T("tui.keys.title")
	if u := m.selectedUser(); u != nil {
		heading = i18n.T("tui.keys.title_user", u.User)
	}
	body := titleStyle.Render(heading) + "\n"
	if len(m.table.Rows()) == 0 {
		body += helpStyle.Render(i18n.T("tui.keys.empty"))
	} else {
		body += m.table.View()
	}
	style := paneStyle
	if m.pane == keysPane {
		style = focusedPaneStyle
	}
	return style.Render(body)
}
