package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/scry-fsrs/internal/platform/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withMigrator(cmd, func(ctx context.Context, m *migrations.Migrator) error {
				results, err := m.Up(ctx)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), results, func(w io.Writer) error {
					if len(results) == 0 {
						_, err := fmt.Fprintln(w, "Schema is up to date.")
						return err
					}
					for _, r := range results {
						if _, err := fmt.Fprintf(w, "Applied %05d %s (%s)\n", r.Version, r.Name, r.Duration); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withMigrator(cmd, func(ctx context.Context, m *migrations.Migrator) error {
				result, err := m.Down(ctx)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) error {
					if result == nil {
						_, err := fmt.Fprintln(w, "No migrations to roll back.")
						return err
					}
					_, err := fmt.Fprintf(w, "Rolled back %05d %s\n", result.Version, result.Name)
					return err
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withMigrator(cmd, func(ctx context.Context, m *migrations.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), statuses, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
					for _, s := range statuses {
						applied := "pending"
						if s.Applied {
							applied = s.AppliedAt.Format(time.DateTime)
						}
						fmt.Fprintf(tw, "%05d\t%s\t%s\n", s.Version, s.Name, applied)
					}
					return tw.Flush()
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withMigrator(cmd, func(ctx context.Context, m *migrations.Migrator) error {
				version, err := m.Version(ctx)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), map[string]int64{"version": version}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, version)
					return err
				})
			})
		},
	})

	return cmd
}

// withMigrator opens the database without applying migrations and runs fn.
func (o *globalOptions) withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m *migrations.Migrator) error) error {
	ctx := cmd.Context()
	db, dialect, err := openDatabase(ctx, o.config.Database, o.logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			o.logger.Error("error closing database connection", "error", err)
		}
	}()

	m, err := migrations.New(db, dialect.Name, o.logger)
	if err != nil {
		return err
	}
	return fn(ctx, m)
}
