// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the translation files against the source tree. It
// reports keys used in code but missing from the primary locale, keys
// missing from secondary locales, and keys no code refers to.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "active.en.yaml"
	projectRoot   = "."
)

// skipDirs are not scanned for keys.
var skipDirs = map[string]struct{}{"tools": {}, "_examples": {}, ".git": {}, "vendor": {}}

var (
	// i18n.T("exact.key", ...) or i18n.T("prefix." + dynamic)
	callRe = regexp.MustCompile(`i18n\.T\("([a-z_.]+)"(\s*\+)?`)
	// key-shaped literals passed around before reaching i18n.T
	literalRe = regexp.MustCompile(`"((?:tui|cli|core|mapping)\.[a-z_]+\.[a-z_.]*[a-z_])"`)
)

// usage collects what the source tree refers to.
type usage struct {
	calls    map[string]struct{} // keys passed literally to i18n.T
	literals map[string]struct{} // other key-shaped string literals
	prefixes []string            // prefixes completed at runtime
}

// report is the result of comparing usage with the locale files.
type report struct {
	undefined []string            // used in i18n.T, absent from the primary locale
	missing   map[string][]string // per secondary locale file
	orphaned  []string
}

func (r report) failed() bool {
	if len(r.undefined) > 0 {
		return true
	}
	for _, keys := range r.missing {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func main() {
	r, err := lint(projectRoot, localesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "i18n-linter: %v\n", err)
		os.Exit(2)
	}
	r.print(os.Stdout)
	if r.failed() {
		os.Exit(1)
	}
}

func lint(root, locales string) (report, error) {
	u, err := scanSources(root)
	if err != nil {
		return report{}, fmt.Errorf("scan sources: %w", err)
	}
	primary, err := loadKeysFromLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		return report{}, fmt.Errorf("load primary locale: %w", err)
	}

	r := report{missing: make(map[string][]string)}
	for key := range u.calls {
		if _, ok := primary[key]; !ok {
			r.undefined = append(r.undefined, key)
		}
	}
	for key := range primary {
		if !u.refers(key) {
			r.orphaned = append(r.orphaned, key)
		}
	}
	sort.Strings(r.undefined)
	sort.Strings(r.orphaned)

	files, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		return report{}, err
	}
	for _, file := range files {
		if filepath.Base(file) == primaryLocale {
			continue
		}
		keys, err := loadKeysFromLocale(file)
		if err != nil {
			return report{}, fmt.Errorf("load %s: %w", file, err)
		}
		var missing []string
		for key := range primary {
			if _, ok := keys[key]; !ok {
				missing = append(missing, key)
			}
		}
		sort.Strings(missing)
		r.missing[filepath.Base(file)] = missing
	}
	return r, nil
}

func (u usage) refers(key string) bool {
	if _, ok := u.calls[key]; ok {
		return true
	}
	if _, ok := u.literals[key]; ok {
		return true
	}
	for _, p := range u.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// scanSources walks root and collects translation keys from non-test Go files.
func scanSources(root string) (usage, error) {
	u := usage{calls: make(map[string]struct{}), literals: make(map[string]struct{})}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range callRe.FindAllStringSubmatch(string(content), -1) {
			if m[2] != "" || strings.HasSuffix(m[1], ".") {
				u.prefixes = append(u.prefixes, m[1])
				continue
			}
			u.calls[m[1]] = struct{}{}
		}
		for _, m := range literalRe.FindAllStringSubmatch(string(content), -1) {
			u.literals[m[1]] = struct{}{}
		}
		return nil
	})
	return u, err
}

func (r report) print(w io.Writer) {
	section := func(title string, keys []string) {
		fmt.Fprintf(w, "--- %s ---\n", title)
		if len(keys) == 0 {
			fmt.Fprintln(w, "  none")
		}
		for _, k := range keys {
			fmt.Fprintf(w, "  - %s\n", k)
		}
	}
	section("Used in code, missing from "+primaryLocale, r.undefined)

	files := make([]string, 0, len(r.missing))
	for f := range r.missing {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		section("Missing from "+f, r.missing[f])
	}
	section("Orphaned (not referenced by code)", r.orphaned)

	switch {
	case r.failed():
		fmt.Fprintln(w, "FAIL: translation files are inconsistent")
	case len(r.orphaned) > 0:
		fmt.Fprintln(w, "WARN: orphaned keys found")
	default:
		fmt.Fprintln(w, "OK: translation files are consistent")
	}
}

// loadKeysFromLocale reads a YAML file and returns a flat set of its keys.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}

	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML joins nested maps into dot separated keys.
func flattenYAML(prefix string, node interface{}, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
