// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package mapping parses and formats pam_u2f authentication mapping files,
// the files written by pamu2fcfg(1).
//
// A mapping file holds one record per line:
//
//	<user>(':'<handle>','<public key>','<kind>','('+'<flag>)*)*
//
// for example
//
//	alice:owBYtYMa...Dhdg==,IiFyv2O8...Uivw==,es256,+presence+pin
//
// The key handle and public key are opaque base64 blobs; the package never
// interprets them. Decode and Encode round-trip canonical input byte for
// byte. Neither function performs I/O and both are safe for concurrent use.
package mapping // import "github.com/toeirei/u2fmap/internal/mapping"
