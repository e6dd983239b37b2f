package kpictl

import (
	"fmt"
	"time"

	"github.com/avvvet/kpi-services/internal/kpisvc/bootstrap"
	"github.com/avvvet/kpi-services/internal/kpisvc/seed"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create the kpi_cards and user_preferences tables",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := opts.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			if err := stores.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	File string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert or refresh the predefined KPI cards",
		Long: `Insert or refresh the predefined KPI cards.

Cards are matched by name: existing cards are overwritten with the seed
values, missing ones are created. Without --file the built-in card set is used.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := opts.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			return runSeed(cmd, stores, opts.File)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML file with a cards list")

	return cmd
}

func runSeed(cmd *cobra.Command, stores *bootstrap.Stores, file string) error {
	var (
		seeds []seed.CardSeed
		err   error
	)
	if file != "" {
		seeds, err = seed.LoadFile(file)
	} else {
		seeds, err = seed.Default()
	}
	if err != nil {
		return err
	}

	res, err := seed.Apply(cmd.Context(), stores.Cards, seeds, time.Now())
	if err != nil {
		return err
	}

	if res.Created == 0 && res.Updated == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes needed - all cards are up to date.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded KPI cards: %d created, %d updated.\n", res.Created, res.Updated)
	return nil
}

// NewClearCommand creates the clear command.
func NewClearCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:          "clear",
		Short:        "Permanently delete every KPI card",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all cards without --yes")
			}
			stores, err := opts.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			n, err := stores.Cards.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted %d KPI cards.\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	return cmd
}

// NewResetCommand creates the reset command.
func NewResetCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:          "reset",
		Short:        "Drop and recreate the schema, then seed the predefined cards",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset the database without --yes")
			}
			stores, err := opts.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			if err := stores.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema recreated.")
			return runSeed(cmd, stores, "")
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm reset")

	return cmd
}
