// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for u2fmap using Cobra.
// It wires configuration, logging, translations and the history store, and
// provides commands that delegate to the `core` editing session. CLI code
// should remain thin and leave file handling to `core` and `mapfile`.
package cli
