// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

// AlignFooter returns a single-line string where `right` is right-aligned
// within `width` columns and `left` is at the start. If width is too small
// a single space separates the tokens. Widths ignore ANSI styling.
func AlignFooter(left, right string, width int) string {
	spaces := width - ansi.StringWidth(left) - ansi.StringWidth(right)
	if spaces < 1 {
		spaces = 1
	}
	return left + strings.Repeat(" ", spaces) + right
}

// truncateHandle shortens a key handle to width cells with an ellipsis.
func truncateHandle(h string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(h, width, "…")
}

// clipboardWrite is swapped out in tests.
var clipboardWrite = clipboard.WriteAll

type copiedMsg struct {
	what string
	err  error
}

// copyCmd writes text to the system clipboard.
func copyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{what: what, err: clipboardWrite(text)}
	}
}
