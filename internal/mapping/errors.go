// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package mapping

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a line failed to decode. The set is closed;
// every decode failure carries exactly one of the constants below.
//
// ErrorKind implements error so callers can test with errors.Is:
//
//	if errors.Is(err, mapping.ErrBadFlags) { ... }
type ErrorKind int

const (
	// ErrUserMissing is returned when a line has no user field.
	ErrUserMissing ErrorKind = iota + 1
	// ErrHandleMissing is returned when a key entry lacks its second field.
	ErrHandleMissing
	// ErrKindMissing is returned when a key entry lacks its key type.
	ErrKindMissing
	// ErrFlagsMissing is returned when a key entry lacks its flags field.
	ErrFlagsMissing
	// ErrBadFlags is returned when the flags field does not start with "+".
	ErrBadFlags
)

// Error returns the human readable description of the kind.
func (k ErrorKind) Error() string {
	switch k {
	case ErrUserMissing:
		return "entry has no username"
	case ErrHandleMissing:
		return "missing second half of key data"
	case ErrKindMissing:
		return "entry has no key type"
	case ErrFlagsMissing:
		return "entry has no flags"
	case ErrBadFlags:
		return "entry has ill-formed flags"
	}
	return fmt.Sprintf("unknown mapping error %d", int(k))
}

// String returns a stable identifier for the kind, suitable for lookups
// such as translation ids.
func (k ErrorKind) String() string {
	switch k {
	case ErrUserMissing:
		return "user_missing"
	case ErrHandleMissing:
		return "handle_missing"
	case ErrKindMissing:
		return "kind_missing"
	case ErrFlagsMissing:
		return "flags_missing"
	case ErrBadFlags:
		return "bad_flags"
	}
	return "unknown"
}

// DecodeError reports the position of a decode failure.
type DecodeError struct {
	Kind ErrorKind
	// Line is the 1-based line number. It is 0 when a single line was
	// decoded with DecodeLine.
	Line int
	// Key is the 1-based key entry within the line, 0 for line level errors.
	Key int
	// Text is the offending key entry, or the line for line level errors.
	Text string
}

func (e *DecodeError) Error() string {
	switch {
	case e.Line > 0 && e.Key > 0:
		return fmt.Sprintf("line %d, key %d: %s", e.Line, e.Key, e.Kind.Error())
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Kind.Error())
	case e.Key > 0:
		return fmt.Sprintf("key %d: %s", e.Key, e.Kind.Error())
	}
	return e.Kind.Error()
}

// Unwrap returns the error kind.
func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// KindOf returns the ErrorKind carried by err, or 0 when err is not a
// decode failure.
func KindOf(err error) ErrorKind {
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

// FieldError is returned by the constructors when a value cannot be
// represented in the file format.
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
