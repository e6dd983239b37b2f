package kpictl

import (
	"context"

	"github.com/avvvet/kpi-services/internal/kpisvc/bootstrap"
	"github.com/avvvet/kpi-services/internal/kpisvc/config"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands. Empty flags fall back
// to the service environment variables.
type RootOptions struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string

	// open is replaced in tests
	open func(ctx context.Context, cfg config.Config) (*bootstrap.Stores, error)
}

// NewRootCommand creates the root command for the kpictl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{open: bootstrap.OpenStores}

	cmd := &cobra.Command{
		Use:   "kpictl",
		Short: "kpictl - KPI dashboard administration",
		Long:  "Administration tasks for the KPI dashboard database: schema migration, seeding and cleanup.",
	}

	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (postgres|sqlite), default $DB_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", "", "postgres DSN, default $DATABASE_URL")
	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite-path", "", "sqlite file, default $SQLITE_PATH")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))

	return cmd
}

func (o *RootOptions) config() config.Config {
	cfg := config.Load()
	if o.Driver != "" {
		cfg.DBDriver = o.Driver
	}
	if o.DatabaseURL != "" {
		cfg.DBUrl = o.DatabaseURL
	}
	if o.SQLitePath != "" {
		cfg.SQLitePath = o.SQLitePath
	}
	// preferences are not touched by admin commands
	cfg.MongoURI = ""
	return cfg
}

func (o *RootOptions) openStores(ctx context.Context) (*bootstrap.Stores, error) {
	return o.open(ctx, o.config())
}
