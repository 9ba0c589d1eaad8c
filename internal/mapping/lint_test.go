// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package mapping

import "testing"

func TestLint_CleanFile(t *testing.T) {
	f, err := Decode("alice:H,P,es256,+presence\nbob:H2,P2,eddsa,+pin+verification\n")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := Lint(f); len(got) != 0 {
		t.Fatalf("expected no findings, got %v", got)
	}
}

func TestLint_Findings(t *testing.T) {
	text := "alice:H,P,es384,+presence+presence+touch:H,P2,es256,\n" +
		"\n" +
		"alice:H3,P3,es256,\n" +
		"carol"
	f, err := Decode(text)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := Lint(f)

	want := []struct {
		line, key int
		code      string
	}{
		{1, 1, LintUnknownKind},
		{1, 1, LintDuplicateFlag},
		{1, 1, LintUnknownFlag},
		{1, 2, LintDuplicateHandle},
		{2, 0, LintEmptyUser},
		{3, 0, LintDuplicateUser},
		{4, 0, LintNoKeys},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d findings, got %d: %v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Line != w.line || got[i].Key != w.key || got[i].Code != w.code {
			t.Fatalf("finding %d = %+v, want line=%d key=%d code=%s", i, got[i], w.line, w.key, w.code)
		}
	}
}
