package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amengaji/Keel/internal/archive"
	"github.com/amengaji/Keel/internal/config"
	"github.com/amengaji/Keel/internal/core"
	"github.com/amengaji/Keel/internal/database"
	"github.com/amengaji/Keel/internal/logging"
)

type rootOptions struct {
	envFile string
	driver  string
	logLvl  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "keelctl",
		Short:         "Preview and commit cadet, vessel, task and assignment spreadsheets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file to load if present")
	cmd.PersistentFlags().StringVar(&opts.driver, "store", "", "Override STORE_DRIVER (postgres, sqlite, memory)")
	cmd.PersistentFlags().StringVar(&opts.logLvl, "log-level", "warn", "Log level written to stderr")

	cmd.AddCommand(
		newTypesCmd(),
		newTemplateCmd(opts),
		newPreviewCmd(opts),
		newCommitCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

// openService loads configuration and wires the store, archive and service.
// The returned function releases the store.
func openService(ctx context.Context, opts *rootOptions) (*core.Service, func(), error) {
	_ = godotenv.Load(opts.envFile)
	logging.SetupWriter(os.Stderr, opts.logLvl, "text")

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if opts.driver != "" {
		cfg.Database.Driver = opts.driver
	}

	store, closeStore, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := archive.Open(ctx, cfg.Archive)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	var sourceArchive core.Archive
	if blobs != nil {
		sourceArchive = blobs
	}
	svc, err := core.NewService(store, sourceArchive, cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return svc, closeStore, nil
}
