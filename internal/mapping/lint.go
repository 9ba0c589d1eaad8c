// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package mapping

import (
	"fmt"
	"slices"
)

// Finding codes reported by Lint.
const (
	LintEmptyUser       = "empty-user"
	LintDuplicateUser   = "duplicate-user"
	LintNoKeys          = "no-keys"
	LintUnknownKind     = "unknown-kind"
	LintUnknownFlag     = "unknown-flag"
	LintDuplicateFlag   = "duplicate-flag"
	LintDuplicateHandle = "duplicate-handle"
)

// Finding is a problem that does not stop a file from decoding but that
// pam_u2f would likely trip over.
type Finding struct {
	Line    int // 1-based
	Key     int // 1-based, 0 for line level findings
	Code    string
	Message string
}

func (f Finding) String() string {
	if f.Key > 0 {
		return fmt.Sprintf("line %d, key %d: %s (%s)", f.Line, f.Key, f.Message, f.Code)
	}
	return fmt.Sprintf("line %d: %s (%s)", f.Line, f.Message, f.Code)
}

// Lint inspects a decoded file and returns its findings in line order.
func Lint(f *File) []Finding {
	var out []Finding
	firstLine := make(map[string]int)

	for i, m := range f.Mappings {
		line := i + 1
		if m.User == "" {
			out = append(out, Finding{Line: line, Code: LintEmptyUser, Message: "line has no user"})
		} else if first, ok := firstLine[m.User]; ok {
			out = append(out, Finding{Line: line, Code: LintDuplicateUser,
				Message: fmt.Sprintf("user %q already listed on line %d", m.User, first)})
		} else {
			firstLine[m.User] = line
		}
		if len(m.Keys) == 0 && m.User != "" {
			out = append(out, Finding{Line: line, Code: LintNoKeys, Message: fmt.Sprintf("user %q has no keys", m.User)})
		}

		handles := make(map[string]int)
		for j, k := range m.Keys {
			key := j + 1
			if !slices.Contains(KnownKinds, k.Kind) {
				out = append(out, Finding{Line: line, Key: key, Code: LintUnknownKind,
					Message: fmt.Sprintf("unknown key kind %q", k.Kind)})
			}
			seen := make(map[string]bool, len(k.Flags))
			for _, flag := range k.Flags {
				if seen[flag] {
					out = append(out, Finding{Line: line, Key: key, Code: LintDuplicateFlag,
						Message: fmt.Sprintf("flag %q given more than once", flag)})
					continue
				}
				seen[flag] = true
				if !slices.Contains(KnownFlags, flag) {
					out = append(out, Finding{Line: line, Key: key, Code: LintUnknownFlag,
						Message: fmt.Sprintf("unknown flag %q", flag)})
				}
			}
			if prev, ok := handles[k.Handle]; ok {
				out = append(out, Finding{Line: line, Key: key, Code: LintDuplicateHandle,
					Message: fmt.Sprintf("same handle as key %d", prev)})
			} else {
				handles[k.Handle] = key
			}
		}
	}
	return out
}
