// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package mapping

import (
	"io"
	"strings"
)

// Encode formats f as mapping file text: one line per Mapping joined by
// "\n", with a final newline when f.TrailingNewline is set and f has at
// least one Mapping. A file without mappings encodes to "", since "\n"
// decodes to one blank line. Encode never fails; values are written as-is
// without escaping.
func Encode(f *File) string {
	var b strings.Builder
	for i, m := range f.Mappings {
		if i > 0 {
			b.WriteString("\n")
		}
		m.appendTo(&b)
	}
	if f.TrailingNewline && len(f.Mappings) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// WriteTo writes the encoded file to w.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, Encode(f))
	return int64(n), err
}

// String formats the mapping as a single line without a terminator.
func (m Mapping) String() string {
	var b strings.Builder
	m.appendTo(&b)
	return b.String()
}

// String formats the key as one key entry, without the leading ':'.
func (k Key) String() string {
	var b strings.Builder
	k.appendTo(&b)
	return b.String()
}

func (m Mapping) appendTo(b *strings.Builder) {
	b.WriteString(m.User)
	for _, k := range m.Keys {
		b.WriteString(keySep)
		k.appendTo(b)
	}
}

func (k Key) appendTo(b *strings.Builder) {
	b.WriteString(k.Handle)
	b.WriteString(fieldSep)
	b.WriteString(k.PublicKey)
	b.WriteString(fieldSep)
	b.WriteString(k.Kind)
	b.WriteString(fieldSep)
	for _, flag := range k.Flags {
		b.WriteString(flagSep)
		b.WriteString(flag)
	}
}
