// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core contains the UI-agnostic editing logic shared by the CLI and
// the TUI. A Session owns one mapping file: it loads it, applies edits to
// the in-memory model and saves it back, recording a snapshot of the
// previous content and an audit trail through a History implementation.
package core // import "github.com/toeirei/u2fmap/internal/core"
