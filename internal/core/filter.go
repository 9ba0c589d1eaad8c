// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import "github.com/toeirei/u2fmap/internal/mapping"

// FilterMappings returns the line indexes of the mappings whose user name
// contains query, case-insensitive, or that hold a key matched by
// FilterKeys. An empty query returns every line.
func FilterMappings(mappings []mapping.Mapping, query string) []int {
	out := make([]int, 0, len(mappings))
	for i, m := range mappings {
		if query == "" || ContainsIgnoreCase(m.User, query) || len(FilterKeys(m.Keys, query)) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// FilterKeys returns the indexes of the keys whose kind, handle or flags
// contain query.
func FilterKeys(keys []mapping.Key, query string) []int {
	out := make([]int, 0, len(keys))
	for i, k := range keys {
		if query == "" || ContainsIgnoreCase(k.Kind, query) || ContainsIgnoreCase(k.Handle, query) || ContainsIgnoreCase(FlagSummary(k), query) {
			out = append(out, i)
		}
	}
	return out
}

// VisibleKeys returns the indexes of m's keys shown for query: every key
// when the user name matches, otherwise the keys FilterKeys keeps.
func VisibleKeys(m mapping.Mapping, query string) []int {
	if ContainsIgnoreCase(m.User, query) {
		return FilterKeys(m.Keys, "")
	}
	return FilterKeys(m.Keys, query)
}
