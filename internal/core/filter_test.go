// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"testing"

	"github.com/toeirei/u2fmap/internal/mapping"
)

func TestFilterMappings(t *testing.T) {
	ms := []mapping.Mapping{
		{User: "alice", Keys: []mapping.Key{{Handle: "AbCdEf", Kind: "es256"}}},
		{User: "bob", Keys: []mapping.Key{{Handle: "xyz", Kind: "eddsa"}}},
		{User: "alice", Keys: []mapping.Key{{Handle: "qrs", Kind: "rs256"}}},
	}
	cases := []struct {
		q    string
		want []int
	}{
		{"", []int{0, 1, 2}},
		{"ALI", []int{0, 2}},
		{"cde", []int{0}},
		{"o", []int{1}},
		{"EdDSA", []int{1}},
		{"nobody", nil},
	}
	for _, c := range cases {
		got := FilterMappings(ms, c.q)
		if len(got) != len(c.want) {
			t.Fatalf("FilterMappings(%q) = %v; want %v", c.q, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("FilterMappings(%q) = %v; want %v", c.q, got, c.want)
			}
		}
	}
}

func TestFilterKeys(t *testing.T) {
	keys := []mapping.Key{
		{Handle: "h1", Kind: "es256", Flags: []string{"pin"}},
		{Handle: "h2", Kind: "eddsa"},
	}
	if got := FilterKeys(keys, "EdD"); len(got) != 1 || got[0] != 1 {
		t.Fatalf("unexpected kind filter result %v", got)
	}
	if got := FilterKeys(keys, "+pin"); len(got) != 1 || got[0] != 0 {
		t.Fatalf("unexpected flag filter result %v", got)
	}
	if got := FilterKeys(keys, ""); len(got) != 2 {
		t.Fatalf("empty query should keep all keys")
	}
}

func TestVisibleKeys(t *testing.T) {
	m := mapping.Mapping{User: "alice", Keys: []mapping.Key{
		{Handle: "h1", Kind: "es256"},
		{Handle: "h2", Kind: "eddsa"},
	}}
	if got := VisibleKeys(m, "ali"); len(got) != 2 {
		t.Fatalf("matching user should show every key, got %v", got)
	}
	if got := VisibleKeys(m, "h2"); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only the second key, got %v", got)
	}
}

func TestHelpers(t *testing.T) {
	if !ContainsIgnoreCase("Hello", "") || !ContainsIgnoreCase("Hello", "ELL") || ContainsIgnoreCase("Hello", "x") {
		t.Fatalf("ContainsIgnoreCase mismatch")
	}
	if got := ShortHandle("short"); got != "short" {
		t.Fatalf("ShortHandle(short) = %q", got)
	}
	if got := ShortHandle("0123456789abcdefXYZ"); got != "0123456789abcdef..." {
		t.Fatalf("ShortHandle long = %q", got)
	}
	if got := FlagSummary(mapping.Key{}); got != "-" {
		t.Fatalf("FlagSummary empty = %q", got)
	}
	if got := FlagSummary(mapping.Key{Flags: []string{"pin", "presence"}}); got != "+pin+presence" {
		t.Fatalf("FlagSummary = %q", got)
	}
}

func TestCountKeys(t *testing.T) {
	f := &mapping.File{Mappings: []mapping.Mapping{
		{User: "alice", Keys: []mapping.Key{{Handle: "h1"}, {Handle: "h2"}}},
		{User: ""},
		{User: "bob", Keys: []mapping.Key{{Handle: "h3"}}},
	}}
	if got := CountKeys(f); got != 3 {
		t.Fatalf("CountKeys = %d, want 3", got)
	}
	if got := CountKeys(&mapping.File{}); got != 0 {
		t.Fatalf("CountKeys(empty) = %d", got)
	}
}
