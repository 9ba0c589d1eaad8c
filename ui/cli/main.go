// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for u2fmap using the Cobra
// library. It defines the root command, global flags, service setup and
// the entry point for execution.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/toeirei/u2fmap/buildvars"
	"github.com/toeirei/u2fmap/internal/config"
	"github.com/toeirei/u2fmap/internal/core"
	"github.com/toeirei/u2fmap/internal/db"
	"github.com/toeirei/u2fmap/internal/i18n"
	"github.com/toeirei/u2fmap/internal/logging"
	"github.com/toeirei/u2fmap/internal/mapfile"
	"github.com/toeirei/u2fmap/internal/tui"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

var appConfig config.Config

// store is the history store; nil when history is disabled.
var store *db.Store

// runTUI is replaced in tests.
var runTUI = tui.Run

// isTerminal reports whether both stdin and stdout are terminals.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	defaults := config.Defaults()
	appConfig, err = config.LoadConfig[config.Config](cmd, defaults, optionalConfigPath)
	// A "file not found" error is expected on first run.
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		// Flag and environment overrides are not persisted.
		def := config.DefaultConfig()
		if writeErr := config.WriteConfigFile(&def, false); writeErr != nil {
			logging.Warnf("could not write default config file: %v", writeErr)
		} else {
			logging.Debugf("wrote default config to user config path")
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// Fall back to defaults for values a config file left empty.
	if appConfig.Database.Type == "" {
		appConfig.Database.Type = defaults["database.type"].(string)
	}
	if appConfig.Database.Dsn == "" {
		appConfig.Database.Dsn = defaults["database.dsn"].(string)
	}
	if appConfig.Language == "" {
		appConfig.Language = defaults["language"].(string)
	}

	i18n.Init(appConfig.Language)

	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		logging.SetDebug(true)
		db.SetDebug(true)
	} else if appConfig.LogLevel != "" {
		if err := logging.SetLevel(appConfig.LogLevel); err != nil {
			logging.Warnf("%v", err)
		}
	}

	if appConfig.History.Enabled && store == nil {
		s, err := db.New(appConfig.Database.Type, appConfig.Database.Dsn)
		if err != nil {
			return errors.New(i18n.T("cli.error.init_db", err))
		}
		store = s
	}
	return nil
}

func closeServices(cmd *cobra.Command, args []string) error {
	if store == nil {
		return nil
	}
	err := store.Close()
	store = nil
	return err
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}
		if path == "" {
			return nil, nil
		}

		// Make sure the user-provided file exists to avoid unwanted behavior.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil
	}
	return nil, nil
}

// mappingPath returns the file to edit: --file, config, or the pam_u2f default.
func mappingPath() string {
	if appConfig.Mapping.Path != "" {
		return appConfig.Mapping.Path
	}
	return mapfile.DefaultPath()
}

func history() core.History {
	return core.NewStoreHistory(store)
}

func openSession() (*core.Session, error) {
	s, err := core.Open(mappingPath(), history())
	if err != nil {
		return nil, displayError{err}
	}
	return s, nil
}

// displayError renders the wrapped error in the active language.
type displayError struct{ err error }

func (e displayError) Error() string { return core.ErrorMessage(e.err) }
func (e displayError) Unwrap() error { return e.err }

// Execute runs the CLI entrypoint. The main package should call this
// function and handle process exit.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "u2fmap",
		Short: "u2fmap edits pam_u2f mapping files.",
		Long: `u2fmap reads, checks and edits the authfile used by pam_u2f, where each
line maps a user to one or more FIDO2/U2F credentials:

  user:KeyHandle,UserKey,CoseType,Options:KeyHandle,UserKey,CoseType,Options

Edits are written atomically. When history is enabled, the previous file is
snapshotted and every change is recorded in an audit log.

Running without a subcommand launches the interactive editor.`,
		SilenceUsage:       true,
		PersistentPreRunE:  setupDefaultServices,
		PersistentPostRunE: closeServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isTerminal() {
				return runTUI(mappingPath(), history())
			}
			return runList(cmd)
		},
	}

	v, c, d := resolveBuildVersion(nil)
	compositeVersion := v
	if c != "" && c != "dev" {
		compositeVersion = compositeVersion + " (" + c + ")"
	}
	if d != "" {
		compositeVersion = compositeVersion + " built: " + d
	}
	cmd.Version = compositeVersion

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging (includes DB logs)")
	cmd.PersistentFlags().String("config", "", "config file")
	cmd.PersistentFlags().StringP("file", "f", "", "mapping file to edit (default: ~/.config/Yubico/u2f_keys)")
	cmd.PersistentFlags().String("language", "", `output language ("en", "de")`)
	cmd.PersistentFlags().String("db-type", "", "history database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("db-dsn", "", "history database connection string (DSN)")
	cmd.Flags().BoolP("version", "V", false, "Print version and exit")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		// Version output needs no config, translations or database.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}

	cmd.AddCommand(
		newListCmd(),
		newShowCmd(),
		newCheckCmd(),
		newFmtCmd(),
		newAddUserCmd(),
		newRemoveUserCmd(),
		newAddKeyCmd(),
		newImportCmd(),
		newRemoveKeyCmd(),
		newSetFlagCmd(),
		newHistoryCmd(),
		newSnapshotsCmd(),
		newRestoreCmd(),
		newConfigCmd(),
		versionCmd,
	)

	return cmd
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If `info` is nil, it reads build info from
// the runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	var ok bool
	if info == nil {
		if infoLocal, found := debug.ReadBuildInfo(); found {
			info = infoLocal
			ok = true
		}
	} else {
		ok = true
	}

	if ok && info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// If Main doesn't contain the version (some build paths), try to
		// find our module in the dependencies and use that version.
		if (resolvedVersion == "dev" || resolvedVersion == "(devel)") && info.Deps != nil {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/toeirei/u2fmap" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// As a last resort, if no version was discovered, but a gitCommit was
	// provided via ldflags, show that to aid support.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}

	return resolvedVersion, resolvedCommit, resolvedDate
}
