// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package mapfile reads and writes mapping files on disk. Parsing and
// formatting are delegated to package mapping.
package mapfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/toeirei/u2fmap/internal/mapping"
)

// CentralPath is the conventional location of a central mapping file
// (pam_u2f authfile=/etc/u2f_mappings).
const CentralPath = "/etc/u2f_mappings"

// DefaultPath returns the per-user mapping file pam_u2f reads when no
// authfile is configured: $XDG_CONFIG_HOME/Yubico/u2f_keys, falling back
// to ~/.config/Yubico/u2f_keys.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "Yubico", "u2f_keys")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "Yubico", "u2f_keys")
	}
	return filepath.Join(home, ".config", "Yubico", "u2f_keys")
}

// ReadRaw returns the file contents. A missing file is reported with an
// error matching fs.ErrNotExist.
func ReadRaw(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Read loads and decodes the mapping file at path. Decode errors keep their
// *mapping.DecodeError in the chain.
func Read(path string) (*mapping.File, error) {
	raw, err := ReadRaw(path)
	if err != nil {
		return nil, err
	}
	f, err := mapping.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ReadOrEmpty is Read, except that a missing file yields an empty model.
func ReadOrEmpty(path string) (*mapping.File, error) {
	f, err := Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &mapping.File{TrailingNewline: true}, nil
	}
	return f, err
}

// Write encodes f and replaces the file at path.
func Write(path string, f *mapping.File) error {
	return WriteRaw(path, []byte(mapping.Encode(f)))
}

// WriteRaw replaces the file at path with content. The data is written to a
// temporary file in the same directory which is then renamed over the
// target, so readers never observe a partially written file. An existing
// file keeps its permissions; new files are created 0600 (0644 on Windows,
// where POSIX permissions are not meaningful).
func WriteRaw(path string, content []byte) error {
	perm := defaultPerm()
	if st, err := os.Stat(path); err == nil {
		perm = st.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func defaultPerm() fs.FileMode {
	if runtime.GOOS == "windows" {
		return 0644
	}
	return 0600
}
