// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package mapping

import "slices"

// Flags written by pamu2fcfg.
const (
	FlagPresence     = "presence"
	FlagPIN          = "pin"
	FlagVerification = "verification"
)

// Key kinds (COSE algorithm names) written by pamu2fcfg.
const (
	KindES256 = "es256"
	KindEdDSA = "eddsa"
	KindRS256 = "rs256"
)

// KnownFlags lists the flags pam_u2f understands, in display order.
var KnownFlags = []string{FlagPresence, FlagPIN, FlagVerification}

// KnownKinds lists the key kinds pam_u2f understands.
var KnownKinds = []string{KindES256, KindEdDSA, KindRS256}

// File is the decoded contents of a mapping file. Mappings keep the order
// of the lines they were decoded from.
type File struct {
	Mappings []Mapping
	// TrailingNewline is set when the decoded text ended with a newline,
	// so that Encode reproduces it.
	TrailingNewline bool
}

// Mapping is one line of a mapping file: a user and its registered keys.
type Mapping struct {
	User string
	Keys []Key
}

// Key is one colon separated key entry of a mapping line.
type Key struct {
	// Handle is the credential (key) handle, the first comma separated field.
	Handle string
	// PublicKey is the public key material, the second field.
	PublicKey string
	// Kind is the key algorithm, e.g. "es256".
	Kind string
	// Flags holds the "+" prefixed options in file order.
	Flags []string
}

// HasFlag reports whether the key carries flag name.
func (k Key) HasFlag(name string) bool {
	return slices.Contains(k.Flags, name)
}

// SetFlag turns flag name on or off. Enabling a flag that is already set
// is a no-op; a new flag goes to the end. Disabling removes every
// occurrence and keeps the order of the remaining flags.
func (k *Key) SetFlag(name string, on bool) {
	if on {
		if !k.HasFlag(name) {
			k.Flags = append(k.Flags, name)
		}
		return
	}
	k.Flags = slices.DeleteFunc(k.Flags, func(f string) bool { return f == name })
}

// Clone returns a deep copy of the key.
func (k Key) Clone() Key {
	k.Flags = slices.Clone(k.Flags)
	return k
}

// AddKey appends k to the mapping.
func (m *Mapping) AddKey(k Key) {
	m.Keys = append(m.Keys, k)
}

// RemoveKey deletes the key at index i. It reports false when i is out of range.
func (m *Mapping) RemoveKey(i int) bool {
	if i < 0 || i >= len(m.Keys) {
		return false
	}
	m.Keys = slices.Delete(m.Keys, i, i+1)
	return true
}

// Clone returns a deep copy of the mapping.
func (m Mapping) Clone() Mapping {
	keys := make([]Key, len(m.Keys))
	for i, k := range m.Keys {
		keys[i] = k.Clone()
	}
	if m.Keys == nil {
		keys = nil
	}
	m.Keys = keys
	return m
}

// Find returns the first mapping for user and its index, or nil and -1.
func (f *File) Find(user string) (*Mapping, int) {
	for i := range f.Mappings {
		if f.Mappings[i].User == user {
			return &f.Mappings[i], i
		}
	}
	return nil, -1
}

// Users returns the user of every mapping in file order.
func (f *File) Users() []string {
	users := make([]string, len(f.Mappings))
	for i, m := range f.Mappings {
		users[i] = m.User
	}
	return users
}

// Add appends m as a new line.
func (f *File) Add(m Mapping) {
	f.Mappings = append(f.Mappings, m)
}

// Remove deletes every mapping for user and returns how many were removed.
func (f *File) Remove(user string) int {
	before := len(f.Mappings)
	f.Mappings = slices.DeleteFunc(f.Mappings, func(m Mapping) bool { return m.User == user })
	return before - len(f.Mappings)
}

// RemoveAt deletes the mapping at line index i. It reports false when i is
// out of range.
func (f *File) RemoveAt(i int) bool {
	if i < 0 || i >= len(f.Mappings) {
		return false
	}
	f.Mappings = slices.Delete(f.Mappings, i, i+1)
	return true
}

// Clone returns a deep copy of the file.
func (f *File) Clone() *File {
	out := &File{TrailingNewline: f.TrailingNewline}
	if f.Mappings != nil {
		out.Mappings = make([]Mapping, len(f.Mappings))
		for i, m := range f.Mappings {
			out.Mappings[i] = m.Clone()
		}
	}
	return out
}
