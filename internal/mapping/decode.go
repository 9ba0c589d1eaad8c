// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package mapping

import "strings"

// Separators of the mapping file grammar.
const (
	keySep   = ":"
	fieldSep = ","
	flagSep  = "+"
)

// Decode parses the full contents of a mapping file.
//
// Lines are separated by "\n"; a "\r" before the newline is dropped. A
// final newline does not start another record, but a blank line anywhere
// else decodes to a Mapping with an empty user and no keys. Decoding stops
// at the first bad line and returns its *DecodeError with no partial result.
func Decode(text string) (*File, error) {
	f := &File{}
	if text == "" {
		return f, nil
	}
	body := text
	if strings.HasSuffix(body, "\n") {
		f.TrailingNewline = true
		body = body[:len(body)-1]
	}

	lines := strings.Split(body, "\n")
	f.Mappings = make([]Mapping, 0, len(lines))
	for i, line := range lines {
		m, err := decodeLine(strings.TrimSuffix(line, "\r"))
		if err != nil {
			err.Line = i + 1
			return nil, err
		}
		f.Mappings = append(f.Mappings, m)
	}
	return f, nil
}

// DecodeLine parses a single mapping line without its line terminator.
func DecodeLine(line string) (Mapping, error) {
	m, err := decodeLine(line)
	if err != nil {
		return Mapping{}, err
	}
	return m, nil
}

// DecodeKey parses one key entry, the text between two ':' separators.
func DecodeKey(entry string) (Key, error) {
	k, kind := decodeKey(entry)
	if kind != 0 {
		return Key{}, &DecodeError{Kind: kind, Text: entry}
	}
	return k, nil
}

func decodeLine(line string) (Mapping, *DecodeError) {
	segments := strings.Split(line, keySep)
	if len(segments) == 0 {
		return Mapping{}, &DecodeError{Kind: ErrUserMissing, Text: line}
	}

	m := Mapping{User: strings.Clone(segments[0])}
	if len(segments) > 1 {
		m.Keys = make([]Key, 0, len(segments)-1)
	}
	for i, entry := range segments[1:] {
		k, kind := decodeKey(entry)
		if kind != 0 {
			return Mapping{}, &DecodeError{Kind: kind, Key: i + 1, Text: entry}
		}
		m.Keys = append(m.Keys, k)
	}
	return m, nil
}

// decodeKey extracts the four positional fields of a key entry. The
// fourth field is everything after the third comma, so further commas end
// up inside the flags.
func decodeKey(entry string) (Key, ErrorKind) {
	fields := strings.SplitN(entry, fieldSep, 4)
	switch len(fields) {
	case 1:
		return Key{}, ErrHandleMissing
	case 2:
		return Key{}, ErrKindMissing
	case 3:
		return Key{}, ErrFlagsMissing
	}

	flags, ok := decodeFlags(fields[3])
	if !ok {
		return Key{}, ErrBadFlags
	}
	return Key{
		Handle:    strings.Clone(fields[0]),
		PublicKey: strings.Clone(fields[1]),
		Kind:      strings.Clone(fields[2]),
		Flags:     flags,
	}, 0
}

// decodeFlags splits "+a+b" into [a b]. The text before the first '+'
// must be empty; an empty group yields no flags.
func decodeFlags(group string) ([]string, bool) {
	parts := strings.Split(group, flagSep)
	if parts[0] != "" {
		return nil, false
	}
	if len(parts) == 1 {
		return nil, true
	}
	flags := make([]string, len(parts)-1)
	for i, p := range parts[1:] {
		flags[i] = strings.Clone(p)
	}
	return flags, true
}
