// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package mapping

import (
	"errors"
	"reflect"
	"slices"
	"testing"
)

const (
	testHandle = "owBYtYMabYlexEG10ildyDLNqwkpeIZyc4YwqP6yUnqlQ3DCxNMjPXoGcQOPiNXu2kFuGKs" +
		"LsN6am/UCjgUpwvr9G54GyY85i0zt/vHRsU+OayYoalSjsVjBvyRqFai3fZUdGEHVLdpw9Y" +
		"Z3MZeJiSWWEumF59CBdFWNLtq0Xi5M1katPXKIqOUSHLePlq1UfaGkh7R5y+Cv8jXtrhtak" +
		"ROcMXjrAfo+5Wq0hNe0JiQwxFPufHUJ8IMBTFw4Qv3TnPGcVFTXZgJQU1FguzVlQ6pU7FS6" +
		"37Dhdg=="
	testPublic = "IiFyv2O8qSG517c2ghvHEbMb6xs5ToPaoOXdgGkkorH2ta/iYWtOhMB7wxaiS3BhOHSxcJU" +
		"JJkMLmfUWl8Uivw=="
)

// testMapping is a real pamu2fcfg line. Note that base64 blobs may contain
// '+' characters; only the fourth field is split on '+'.
var testMapping = "alice:" + testHandle + "," + testPublic + ",es256,+presence"

func TestDecodeLine_RealEntry(t *testing.T) {
	m, err := DecodeLine(testMapping)
	if err != nil {
		t.Fatalf("DecodeLine: %v", err)
	}
	if m.User != "alice" {
		t.Fatalf("user mismatch: %q", m.User)
	}
	if len(m.Keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(m.Keys))
	}
	k := m.Keys[0]
	if k.Handle != testHandle {
		t.Fatalf("key handle mismatch: %q", k.Handle)
	}
	if k.PublicKey != testPublic {
		t.Fatalf("public key mismatch: %q", k.PublicKey)
	}
	if k.Kind != "es256" {
		t.Fatalf("kind mismatch: %q", k.Kind)
	}
	if !slices.Equal(k.Flags, []string{"presence"}) {
		t.Fatalf("flags mismatch: %v", k.Flags)
	}
}

func TestDecode_FieldExtraction(t *testing.T) {
	f, err := Decode("alice:H,P,es256,+presence")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := &File{Mappings: []Mapping{{
		User: "alice",
		Keys: []Key{{Handle: "H", PublicKey: "P", Kind: "es256", Flags: []string{"presence"}}},
	}}}
	if !reflect.DeepEqual(f, want) {
		t.Fatalf("got %#v, want %#v", f, want)
	}
}

func TestDecode_FlagOrderPreserved(t *testing.T) {
	m, err := DecodeLine("alice:H,P,es256,+pin+presence")
	if err != nil {
		t.Fatalf("DecodeLine: %v", err)
	}
	if got := m.Keys[0].Flags; !slices.Equal(got, []string{"pin", "presence"}) {
		t.Fatalf("expected [pin presence], got %v", got)
	}
	if s := m.String(); s != "alice:H,P,es256,+pin+presence" {
		t.Fatalf("re-encode changed flag order: %q", s)
	}
}

func TestDecode_EmptyFlagsGroup(t *testing.T) {
	m, err := DecodeLine("alice:H,P,es256,")
	if err != nil {
		t.Fatalf("DecodeLine: %v", err)
	}
	if len(m.Keys[0].Flags) != 0 {
		t.Fatalf("expected no flags, got %v", m.Keys[0].Flags)
	}
}

func TestDecode_DuplicateFlagsPassThrough(t *testing.T) {
	m, err := DecodeLine("alice:H,P,es256,+pin+pin")
	if err != nil {
		t.Fatalf("DecodeLine: %v", err)
	}
	if !slices.Equal(m.Keys[0].Flags, []string{"pin", "pin"}) {
		t.Fatalf("duplicates not preserved: %v", m.Keys[0].Flags)
	}
}

func TestDecode_ExtraCommasAbsorbedIntoFlags(t *testing.T) {
	m, err := DecodeLine("alice:H,P,es256,+pin,extra+presence")
	if err != nil {
		t.Fatalf("DecodeLine: %v", err)
	}
	if !slices.Equal(m.Keys[0].Flags, []string{"pin,extra", "presence"}) {
		t.Fatalf("unexpected flags: %v", m.Keys[0].Flags)
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		kind ErrorKind
		key  int
	}{
		{"flags missing", "alice:H,P,es256", ErrFlagsMissing, 1},
		{"kind missing", "alice:H,P", ErrKindMissing, 1},
		{"handle missing", "alice:H", ErrHandleMissing, 1},
		{"empty key entry", "alice:", ErrHandleMissing, 1},
		{"bad flags", "alice:H,P,es256,pin", ErrBadFlags, 1},
		{"bad flags after valid flag group", "alice:H,P,es256,x+pin", ErrBadFlags, 1},
		{"second key bad", "alice:H1,P1,es256,:H2,P2", ErrKindMissing, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Decode(c.in)
			if err == nil {
				t.Fatalf("expected error for %q", c.in)
			}
			if !errors.Is(err, c.kind) {
				t.Fatalf("expected %v, got %v", c.kind, err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if de.Line != 1 || de.Key != c.key {
				t.Fatalf("unexpected position line=%d key=%d", de.Line, de.Key)
			}
			if KindOf(err) != c.kind {
				t.Fatalf("KindOf returned %v", KindOf(err))
			}
		})
	}
}

func TestDecode_MultipleKeys(t *testing.T) {
	f, err := Decode("alice:H1,P1,es256,:H2,P2,rs256,+pin")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(f.Mappings) != 1 {
		t.Fatalf("expected one mapping, got %d", len(f.Mappings))
	}
	keys := f.Mappings[0].Keys
	if len(keys) != 2 {
		t.Fatalf("expected two keys, got %d", len(keys))
	}
	if keys[0].Handle != "H1" || keys[0].PublicKey != "P1" || keys[0].Kind != "es256" || len(keys[0].Flags) != 0 {
		t.Fatalf("first key mismatch: %#v", keys[0])
	}
	if keys[1].Handle != "H2" || keys[1].PublicKey != "P2" || keys[1].Kind != "rs256" || !slices.Equal(keys[1].Flags, []string{"pin"}) {
		t.Fatalf("second key mismatch: %#v", keys[1])
	}
}

func TestDecode_MultiLineOrder(t *testing.T) {
	text := "alice:H1,P1,es256,+presence\nbob:H2,P2,eddsa,+pin"
	f, err := Decode(text)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := f.Users(); !slices.Equal(got, []string{"alice", "bob"}) {
		t.Fatalf("unexpected user order: %v", got)
	}
	if f.TrailingNewline {
		t.Fatalf("did not expect trailing newline")
	}
}

func TestDecode_ErrorReportsLineNumber(t *testing.T) {
	_, err := Decode("alice:H,P,es256,+presence\nbob:H,P\n")
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if de.Line != 2 || de.Key != 1 || de.Kind != ErrKindMissing {
		t.Fatalf("unexpected error %+v", de)
	}
	if de.Text != "H,P" {
		t.Fatalf("unexpected text %q", de.Text)
	}
	if got := de.Error(); got != "line 2, key 1: entry has no key type" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestDecode_LineEndings(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		users    []string
		trailing bool
	}{
		{"empty input", "", []string{}, false},
		{"single newline", "\n", []string{""}, true},
		{"trailing newline", "alice\nbob\n", []string{"alice", "bob"}, true},
		{"crlf", "alice\r\nbob\r\n", []string{"alice", "bob"}, true},
		{"blank line in the middle", "alice\n\nbob", []string{"alice", "", "bob"}, false},
		{"trailing blank line", "alice\n\n", []string{"alice", ""}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f, err := Decode(c.in)
			if err != nil {
				t.Fatalf("Decode(%q): %v", c.in, err)
			}
			if got := f.Users(); !slices.Equal(got, c.users) {
				t.Fatalf("users = %q, want %q", got, c.users)
			}
			if f.TrailingNewline != c.trailing {
				t.Fatalf("TrailingNewline = %v, want %v", f.TrailingNewline, c.trailing)
			}
		})
	}
}

func TestDecode_UserOnlyLine(t *testing.T) {
	m, err := DecodeLine("carol")
	if err != nil {
		t.Fatalf("DecodeLine: %v", err)
	}
	if m.User != "carol" || len(m.Keys) != 0 {
		t.Fatalf("unexpected mapping %#v", m)
	}
}

func TestDecodeKey(t *testing.T) {
	k, err := DecodeKey("H,P,eddsa,+verification")
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	if k.Kind != "eddsa" || !k.HasFlag(FlagVerification) {
		t.Fatalf("unexpected key %#v", k)
	}
	if _, err := DecodeKey("H"); !errors.Is(err, ErrHandleMissing) {
		t.Fatalf("expected ErrHandleMissing, got %v", err)
	}
}
