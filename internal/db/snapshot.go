// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/blake2b"
)

// SnapshotModel maps the snapshots table. Content is zstd compressed.
type SnapshotModel struct {
	bun.BaseModel `bun:"table:snapshots"`
	ID            int64     `bun:"id,pk,autoincrement"`
	CreatedAt     time.Time `bun:"created_at"`
	Path          string    `bun:"path"`
	Digest        string    `bun:"digest"`
	Size          int64     `bun:"size"`
	Content       []byte    `bun:"content"`
}

// SnapshotInfo describes a stored snapshot without its content.
// Size is the uncompressed length in bytes.
type SnapshotInfo struct {
	ID        int64
	CreatedAt time.Time
	Path      string
	Digest    string
	Size      int64
}

func (m SnapshotModel) info() SnapshotInfo {
	return SnapshotInfo{ID: m.ID, CreatedAt: m.CreatedAt, Path: m.Path, Digest: m.Digest, Size: m.Size}
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Digest returns the hex encoded BLAKE2b-256 sum of content.
func Digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// SaveSnapshot stores content for path. When a snapshot with identical
// content already exists for path, it is returned and created is false.
func (s *Store) SaveSnapshot(ctx context.Context, path string, content []byte) (info SnapshotInfo, created bool, err error) {
	digest := Digest(content)

	existing, err := s.findSnapshot(ctx, path, digest)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return SnapshotInfo{}, false, err
	}

	m := &SnapshotModel{
		CreatedAt: time.Now().UTC(),
		Path:      path,
		Digest:    digest,
		Size:      int64(len(content)),
		Content:   zstdEncoder.EncodeAll(content, nil),
	}
	if _, err := s.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		err = MapDBError(err)
		if errors.Is(err, ErrDuplicate) {
			// Lost a race with another writer.
			existing, ferr := s.findSnapshot(ctx, path, digest)
			return existing, false, ferr
		}
		return SnapshotInfo{}, false, err
	}
	dbLogf("db: snapshot %d of %s (%d bytes, %d compressed)", m.ID, path, m.Size, len(m.Content))
	return m.info(), true, nil
}

func (s *Store) findSnapshot(ctx context.Context, path, digest string) (SnapshotInfo, error) {
	var m SnapshotModel
	err := s.bun.NewSelect().Model(&m).
		Column("id", "created_at", "path", "digest", "size").
		Where("path = ?", path).
		Where("digest = ?", digest).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return SnapshotInfo{}, MapDBError(err)
	}
	return m.info(), nil
}

// Snapshots lists snapshots newest first. An empty path lists all files.
func (s *Store) Snapshots(ctx context.Context, path string) ([]SnapshotInfo, error) {
	var ms []SnapshotModel
	q := s.bun.NewSelect().Model(&ms).
		Column("id", "created_at", "path", "digest", "size").
		OrderExpr("created_at DESC, id DESC")
	if path != "" {
		q = q.Where("path = ?", path)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]SnapshotInfo, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.info())
	}
	return out, nil
}

// Snapshot loads a snapshot by id and returns its decompressed content.
func (s *Store) Snapshot(ctx context.Context, id int64) (SnapshotInfo, []byte, error) {
	var m SnapshotModel
	if err := s.bun.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return SnapshotInfo{}, nil, MapDBError(err)
	}
	content, err := zstdDecoder.DecodeAll(m.Content, nil)
	if err != nil {
		return SnapshotInfo{}, nil, fmt.Errorf("snapshot %d: decompress: %w", id, err)
	}
	if got := Digest(content); got != m.Digest {
		return SnapshotInfo{}, nil, fmt.Errorf("snapshot %d: digest mismatch", id)
	}
	return m.info(), content, nil
}
