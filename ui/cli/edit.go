// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toeirei/u2fmap/internal/core"
	"github.com/toeirei/u2fmap/internal/i18n"
	"github.com/toeirei/u2fmap/internal/mapping"
)

// editAndSave opens the mapping file, applies edit and saves the result.
func editAndSave(cmd *cobra.Command, edit func(s *core.Session) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := edit(s); err != nil {
		return displayError{err}
	}
	if err := s.Save(cmd.Context()); err != nil {
		return fmt.Errorf("%s: %w", i18n.T("cli.error.save"), err)
	}
	return nil
}

func newAddUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-user USER",
		Short: "Add a user line without keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			if err := editAndSave(cmd, func(s *core.Session) error { return s.AddUser(user) }); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("tui.status.user_added", user))
			return nil
		},
	}
}

func newRemoveUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove-user USER",
		Aliases: []string{"rm-user"},
		Short:   "Remove a user and all of their keys",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			if err := editAndSave(cmd, func(s *core.Session) error { return s.RemoveUser(user) }); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("tui.status.user_removed", user))
			return nil
		},
	}
}

func newAddKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-key USER HANDLE PUBLIC KIND",
		Short: "Register a key for a user",
		Long: `Append a key to the user's line, creating the line when the user has none.
HANDLE and PUBLIC are the key handle and public key exactly as printed by
pamu2fcfg; KIND is the COSE type such as es256, eddsa or rs256.`,
		Example: `  u2fmap add-key alice "$HANDLE" "$PUBKEY" es256 --flag presence --flag pin`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, _ := cmd.Flags().GetStringSlice("flag")
			user := args[0]
			k, err := mapping.NewKey(args[1], args[2], args[3], flags...)
			if err != nil {
				return displayError{err}
			}
			if err := editAndSave(cmd, func(s *core.Session) error { return s.AddKey(user, k) }); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("tui.status.key_added", user))
			return nil
		},
	}
	cmd.Flags().StringSlice("flag", []string{mapping.FlagPresence}, "option flag to set (repeatable): presence, pin, verification")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [FILE|-]",
		Short: "Merge pamu2fcfg output into the mapping file",
		Long: `Read lines produced by pamu2fcfg from FILE, or standard input when FILE is
omitted or "-", and merge them into the mapping file. Keys are appended to an
existing user; handles the user already has are skipped. Lines printed by
"pamu2fcfg -n" start with ":" and need --user.`,
		Example: `  pamu2fcfg | u2fmap import
  pamu2fcfg -n | u2fmap import --user alice`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			lines, err := readImportLines(in, user)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				return errors.New(i18n.T("cli.import.empty"))
			}

			out := cmd.OutOrStdout()
			return editAndSave(cmd, func(s *core.Session) error {
				for _, line := range lines {
					u, added, err := s.ImportLine(line.text)
					if err != nil {
						return &core.InputLineError{Line: line.no, Err: err}
					}
					fmt.Fprintln(out, i18n.T("cli.import.result", u, added))
				}
				return nil
			})
		},
	}
	cmd.Flags().String("user", "", "user for lines without one (pamu2fcfg -n)")
	return cmd
}

// importLine is a non-blank input line and its 1-based line number.
type importLine struct {
	no   int
	text string
}

func readImportLines(r io.Reader, user string) ([]importLine, error) {
	var lines []importLine
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	no := 0
	for sc.Scan() {
		no++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if user == "" {
				return nil, errors.New(i18n.T("cli.import.need_user"))
			}
			line = user + line
		}
		lines = append(lines, importLine{no: no, text: line})
	}
	return lines, sc.Err()
}

// parseIndex converts a 1-based key index argument to a 0-based index.
func parseIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, errors.New(i18n.T("cli.error.bad_index", arg))
	}
	return n - 1, nil
}

func newRemoveKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove-key USER INDEX",
		Aliases: []string{"rm-key"},
		Short:   "Remove a key by its 1-based index (see show)",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			idx, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			if err := editAndSave(cmd, func(s *core.Session) error { return s.RemoveKey(user, idx) }); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("tui.status.key_removed", idx+1, user))
			return nil
		},
	}
}

func newSetFlagCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set-flag USER INDEX FLAG on|off",
		Short:   "Turn an option flag on or off for a key",
		Example: `  u2fmap set-flag alice 1 pin on`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, flag := args[0], args[2]
			idx, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			var on bool
			switch strings.ToLower(args[3]) {
			case "on", "true", "yes":
				on = true
			case "off", "false", "no":
				on = false
			default:
				return errors.New(i18n.T("cli.error.bad_state", args[3]))
			}
			if err := editAndSave(cmd, func(s *core.Session) error { return s.SetFlag(user, idx, flag, on) }); err != nil {
				return err
			}
			msg := "tui.status.flag_off"
			if on {
				msg = "tui.status.flag_on"
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T(msg, flag))
			return nil
		},
	}
}
