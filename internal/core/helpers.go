// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"strings"

	"github.com/toeirei/u2fmap/internal/mapping"
	"github.com/toeirei/u2fmap/util/slicest"
)

// ContainsIgnoreCase reports whether substr is within s, case-insensitive.
func ContainsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ShortHandle abbreviates a key handle for audit details and messages.
func ShortHandle(h string) string {
	const max = 16
	if len(h) <= max {
		return h
	}
	return h[:max] + "..."
}

// FlagSummary renders a key's flags as "+a+b", or "-" when it has none.
func FlagSummary(k mapping.Key) string {
	if len(k.Flags) == 0 {
		return "-"
	}
	return "+" + strings.Join(k.Flags, "+")
}

// CountKeys returns the number of keys across all lines of f.
func CountKeys(f *mapping.File) int {
	return slicest.ReduceD(f.Mappings, 0, func(m mapping.Mapping, n int) int {
		return n + len(m.Keys)
	})
}
