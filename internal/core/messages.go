// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toeirei/u2fmap/internal/i18n"
	"github.com/toeirei/u2fmap/internal/mapping"
)

// InputLineError ties err to a 1-based line of some input other than the
// mapping file, such as pamu2fcfg output being imported.
type InputLineError struct {
	Line int
	Err  error
}

func (e *InputLineError) Error() string {
	return fmt.Sprintf("input line %d: %v", e.Line, e.Err)
}

func (e *InputLineError) Unwrap() error {
	return e.Err
}

// ErrorMessage renders err for display in the active language. Decode
// errors keep their position; other errors use their own text.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var le *InputLineError
	if errors.As(err, &le) {
		return i18n.T("core.error.at_input_line", le.Line, ErrorMessage(le.Err))
	}

	var de *mapping.DecodeError
	if errors.As(err, &de) {
		msg := i18n.T("mapping.error." + de.Kind.String())
		switch {
		case de.Line > 0 && de.Key > 0:
			return i18n.T("mapping.error.at_line_key", de.Line, de.Key, msg)
		case de.Line > 0:
			return i18n.T("mapping.error.at_line", de.Line, msg)
		case de.Key > 0:
			return i18n.T("mapping.error.at_key", de.Key, msg)
		}
		return msg
	}

	var fe *mapping.FieldError
	if errors.As(err, &fe) {
		return i18n.T("mapping.error.field", fe.Field, fe.Value, fe.Reason)
	}

	for _, s := range []struct {
		err error
		id  string
	}{
		{ErrUserExists, "core.error.user_exists"},
		{ErrUserNotFound, "core.error.user_not_found"},
		{ErrKeyNotFound, "core.error.key_not_found"},
		{ErrLineNotFound, "core.error.line_not_found"},
	} {
		if errors.Is(err, s.err) {
			return i18n.T(s.id, strings.TrimPrefix(err.Error(), s.err.Error()+": "))
		}
	}
	return err.Error()
}
