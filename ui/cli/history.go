// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/toeirei/u2fmap/internal/core"
	"github.com/toeirei/u2fmap/internal/db"
	"github.com/toeirei/u2fmap/internal/i18n"
)

func requireStore() (*db.Store, error) {
	if store == nil {
		return nil, errors.New(i18n.T("cli.error.history_disabled"))
	}
	return store, nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit log of edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			s, err := requireStore()
			if err != nil {
				return err
			}
			entries, err := s.AuditLog(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, i18n.T("cli.history.empty"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				i18n.T("cli.history.header.time"), i18n.T("cli.history.header.user"),
				i18n.T("cli.history.header.action"), i18n.T("cli.history.header.details"))
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Username, e.Action, e.Details)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntP("limit", "n", 50, "number of entries to show (0 for all)")
	return cmd
}

func newSnapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List stored snapshots of the mapping file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			s, err := requireStore()
			if err != nil {
				return err
			}
			path := ""
			if !all {
				if path, err = filepath.Abs(mappingPath()); err != nil {
					return err
				}
			}
			snaps, err := s.Snapshots(cmd.Context(), path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(snaps) == 0 {
				fmt.Fprintln(out, i18n.T("cli.snapshots.empty"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\t%s\t%s\t%s", i18n.T("cli.snapshots.header.created"),
				i18n.T("cli.snapshots.header.size"), i18n.T("cli.snapshots.header.digest"))
			if all {
				fmt.Fprintf(w, "\t%s", i18n.T("cli.snapshots.header.path"))
			}
			fmt.Fprintln(w)
			for _, sn := range snaps {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s", sn.ID, sn.CreatedAt.Local().Format(time.DateTime), sn.Size, sn.Digest[:min(12, len(sn.Digest))])
				if all {
					fmt.Fprintf(w, "\t%s", sn.Path)
				}
				fmt.Fprintln(w)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool("all", false, "list snapshots of every mapping file")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore ID",
		Short: "Print or restore a snapshot",
		Long: `Print the content of a snapshot. With --write the snapshot replaces the file
it was taken from; the current content is snapshotted first, so a restore
can itself be undone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.New(i18n.T("cli.error.bad_snapshot_id", args[0]))
			}
			s, err := requireStore()
			if err != nil {
				return err
			}
			info, content, err := s.Snapshot(cmd.Context(), id)
			if errors.Is(err, db.ErrNotFound) {
				return errors.New(i18n.T("cli.error.snapshot_not_found", id))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !write {
				_, err := out.Write(content)
				return err
			}

			// The snapshot belongs to its own file, not necessarily --file.
			appConfig.Mapping.Path = info.Path
			if err := editAndSave(cmd, func(sess *core.Session) error {
				return sess.Replace(string(content), fmt.Sprintf("snapshot=%d", id))
			}); err != nil {
				return err
			}
			fmt.Fprintln(out, i18n.T("cli.restore.done", id, info.Path))
			return nil
		},
	}
	cmd.Flags().Bool("write", false, "replace the file with the snapshot")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := appConfig
			if c.Mapping.Path == "" {
				c.Mapping.Path = mappingPath()
			}
			data, err := yaml.Marshal(c)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
