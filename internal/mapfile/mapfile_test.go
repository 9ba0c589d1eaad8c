// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package mapfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/toeirei/u2fmap/internal/mapping"
)

const sample = "alice:H1,P1,es256,+presence\nbob:H2,P2,eddsa,+pin+presence\n"

func TestReadWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u2f_keys")
	if err := os.WriteFile(path, []byte(sample), 0o640); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(f.Mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(f.Mappings))
	}
	if err := Write(path, f); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != sample {
		t.Fatalf("file changed on round trip: %q", data)
	}
	if runtime.GOOS != "windows" {
		st, _ := os.Stat(path)
		if st.Mode().Perm() != 0o640 {
			t.Fatalf("existing permissions not kept: %v", st.Mode().Perm())
		}
	}
}

func TestWrite_NewFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}
	path := filepath.Join(t.TempDir(), "sub", "u2f_keys")
	if err := Write(path, &mapping.File{Mappings: []mapping.Mapping{{User: "alice"}}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", st.Mode().Perm())
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestRead_DecodeErrorKeepsKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad")
	if err := os.WriteFile(path, []byte("alice:H,P,es256,pin\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := Read(path)
	if !errors.Is(err, mapping.ErrBadFlags) {
		t.Fatalf("expected ErrBadFlags in chain, got %v", err)
	}
	var de *mapping.DecodeError
	if !errors.As(err, &de) || de.Line != 1 {
		t.Fatalf("expected positioned decode error, got %v", err)
	}
}

func TestReadOrEmpty_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")
	if _, err := Read(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	f, err := ReadOrEmpty(path)
	if err != nil {
		t.Fatalf("ReadOrEmpty: %v", err)
	}
	if len(f.Mappings) != 0 || !f.TrailingNewline {
		t.Fatalf("unexpected empty model %+v", f)
	}
}

func TestDefaultPath_UsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultPath(); got != filepath.Join("/tmp/xdg", "Yubico", "u2f_keys") {
		t.Fatalf("unexpected default path %q", got)
	}
}
