// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toeirei/u2fmap/internal/core"
	"github.com/toeirei/u2fmap/internal/i18n"
	"github.com/toeirei/u2fmap/internal/mapfile"
	"github.com/toeirei/u2fmap/internal/mapping"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users and their key counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd)
		},
	}
}

func runList(cmd *cobra.Command) error {
	f, err := mapfile.ReadOrEmpty(mappingPath())
	if err != nil {
		return displayError{err}
	}
	out := cmd.OutOrStdout()
	if len(f.Mappings) == 0 {
		fmt.Fprintln(out, i18n.T("cli.list.empty", mappingPath()))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\n", i18n.T("cli.list.header.line"), i18n.T("cli.list.header.user"), i18n.T("cli.list.header.keys"))
	for i, m := range f.Mappings {
		user := m.User
		if user == "" {
			user = i18n.T("tui.users.blank")
		}
		fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, user, len(m.Keys))
	}
	return w.Flush()
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show USER",
		Short: "Show the keys registered for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			full, _ := cmd.Flags().GetBool("full")
			f, err := mapfile.ReadOrEmpty(mappingPath())
			if err != nil {
				return displayError{err}
			}
			m, _ := f.Find(args[0])
			if m == nil {
				return displayError{fmt.Errorf("%w: %s", core.ErrUserNotFound, args[0])}
			}

			out := cmd.OutOrStdout()
			if len(m.Keys) == 0 {
				fmt.Fprintln(out, i18n.T("tui.keys.empty"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "#\t%s\t%s\t%s\n", i18n.T("tui.keys.header.type"), i18n.T("tui.keys.header.handle"), i18n.T("cli.show.header.flags"))
			for i, k := range m.Keys {
				handle := k.Handle
				if !full {
					handle = core.ShortHandle(handle)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, k.Kind, handle, core.FlagSummary(k))
			}
			if full {
				if err := w.Flush(); err != nil {
					return err
				}
				for i, k := range m.Keys {
					fmt.Fprintf(out, "\n%s\n%s\n", i18n.T("cli.show.public_key", i+1), k.PublicKey)
				}
				return nil
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool("full", false, "print full key handles and public keys")
	return cmd
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the mapping file decodes",
		Long: `Decode the mapping file and report the first error with its line and key
position. With --lint, also report entries pam_u2f would likely reject:
empty users, duplicate users or handles, unknown kinds and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lint, _ := cmd.Flags().GetBool("lint")
			strict, _ := cmd.Flags().GetBool("strict")

			path := mappingPath()
			f, err := mapfile.Read(path)
			if err != nil {
				return displayError{err}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, i18n.T("cli.check.ok", path, len(f.Mappings), core.CountKeys(f)))

			if !lint && !strict {
				return nil
			}
			findings := mapping.Lint(f)
			for _, fd := range findings {
				fmt.Fprintln(out, fd.String())
			}
			if len(findings) > 0 && strict {
				return errors.New(i18n.T("cli.check.findings", len(findings)))
			}
			return nil
		},
	}
	cmd.Flags().Bool("lint", false, "report suspicious entries")
	cmd.Flags().Bool("strict", false, "implies --lint; fail when there are findings")
	return cmd
}

func newFmtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmt",
		Short: "Print the mapping file in canonical form",
		Long: `Decode the mapping file and print its canonical encoding. Line endings are
normalized to LF. With --write the file is replaced in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")
			s, err := openSession()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !write {
				fmt.Fprint(out, s.Content())
				return nil
			}
			if !s.Dirty() {
				fmt.Fprintln(out, i18n.T("cli.fmt.unchanged", s.Path()))
				return nil
			}
			if err := s.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, i18n.T("tui.status.saved", s.Path()))
			return nil
		},
	}
	cmd.Flags().Bool("write", false, "write the result back to the file")
	return cmd
}
