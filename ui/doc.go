// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ui groups the user-facing front ends of u2fmap. The command line
// lives in ui/cli; the interactive editor it launches is internal/tui.
package ui
