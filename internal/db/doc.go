// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db is the history store for u2fmap. It keeps an audit log of
// edits and zstd compressed snapshots of mapping files taken before they
// are overwritten, so an earlier version can be restored.
//
// The store runs on Bun over database/sql and supports SQLite
// (modernc.org/sqlite), PostgreSQL (pgx) and MySQL. Schema changes live in
// embedded per-dialect migrations under migrations/<type> and are tracked
// in a schema_migrations table.
//
// MySQL DSNs must include parseTime=true so timestamps scan into time.Time.
//
// Testing notes
//   - Use an in-memory SQLite DSN such as
//     "file:"+t.Name()+"?mode=memory&cache=shared" for real DB semantics.
package db // import "github.com/toeirei/u2fmap/internal/db"
