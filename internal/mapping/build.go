// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package mapping

import "strings"

// NewMapping returns a mapping for user with no keys. The user must be
// non-empty and must not contain ':'.
func NewMapping(user string) (Mapping, error) {
	if err := ValidateUser(user); err != nil {
		return Mapping{}, err
	}
	return Mapping{User: user}, nil
}

// NewKey builds a key from its parts, rejecting values that would not
// survive a round trip through the file format.
func NewKey(handle, publicKey, kind string, flags ...string) (Key, error) {
	if err := checkField("handle", handle, keySep+fieldSep); err != nil {
		return Key{}, err
	}
	if err := checkField("public key", publicKey, keySep+fieldSep); err != nil {
		return Key{}, err
	}
	if kind == "" {
		return Key{}, &FieldError{Field: "kind", Value: kind, Reason: "must not be empty"}
	}
	if err := checkField("kind", kind, keySep+fieldSep+flagSep); err != nil {
		return Key{}, err
	}
	k := Key{Handle: handle, PublicKey: publicKey, Kind: kind}
	for _, f := range flags {
		if err := ValidateFlag(f); err != nil {
			return Key{}, err
		}
		k.Flags = append(k.Flags, f)
	}
	return k, nil
}

// ValidateUser checks that user can be written as the first field of a line.
func ValidateUser(user string) error {
	if user == "" {
		return &FieldError{Field: "user", Value: user, Reason: "must not be empty"}
	}
	return checkField("user", user, keySep)
}

// ValidateFlag checks that name can be written as a "+" prefixed flag.
func ValidateFlag(name string) error {
	if name == "" {
		return &FieldError{Field: "flag", Value: name, Reason: "must not be empty"}
	}
	return checkField("flag", name, keySep+fieldSep+flagSep)
}

func checkField(field, value, forbidden string) error {
	if strings.ContainsAny(value, "\r\n") {
		return &FieldError{Field: field, Value: value, Reason: "must not contain line breaks"}
	}
	if i := strings.IndexAny(value, forbidden); i >= 0 {
		return &FieldError{Field: field, Value: value, Reason: "must not contain " + string(value[i])}
	}
	return nil
}
