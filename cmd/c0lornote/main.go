package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c0lornote/c0lornote/clock"
	"github.com/c0lornote/c0lornote/config"
	"github.com/c0lornote/c0lornote/logger"
	"github.com/c0lornote/c0lornote/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the wired-up dependencies shared by all subcommands.
type app struct {
	cfg    *config.AppConfig
	logger logger.Logger
	store  *store.SQLiteStore

	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "c0lornote",
		Short:         "C0lorNote note store",
		Long:          "Manage C0lorNote notes, categories, tags, backups, and exports from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.shutdown()
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "settings file (default: the per-user settings.yaml)")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newDeleteCmd(a),
		newPinCmd(a),
		newTagCmd(a),
		newCategoriesCmd(a),
		newExportCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	files := make([]string, 0, 1)
	if a.configFile != "" {
		files = append(files, a.configFile)
	} else if path, err := config.SettingsPath(); err == nil {
		files = append(files, path)
	}

	cfg, err := config.LoadWithDefaults(files...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	a.logger = logger.Setup(cfg.Logger)

	a.store = store.NewSQLiteStore(store.Params{
		Path:   cfg.Store.Path,
		Clock:  clock.System(),
		Logger: logger.Module("store"),
	})
	if err := a.store.Open(cmd.Context()); err != nil {
		return fmt.Errorf("open note store: %w", err)
	}
	return nil
}

func (a *app) shutdown() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}
