// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for u2fmap.
//
// Usage:
//
//	go run . [flags]
//	./u2fmap [flags]
//
// Without a subcommand it opens the interactive editor. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/u2fmap/internal/logging"
	"github.com/toeirei/u2fmap/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Debugf("exit: %v", err)
		os.Exit(1)
	}
}
