// Command migrate applies the PostgreSQL ledger schema. SQLite ledgers create
// their schema on first use and do not need it.
package main

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/concord/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "CONCORD_DB_DSN"

type migrator struct {
	dsn        string
	configPath string
	logger     *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	m := &migrator{
		logger: slog.New(slog.NewTextHandler(os.Stderr, nil)).With("system", "migrate"),
	}

	root := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the ledger schema",
		Long: `migrate resolves its connection string from --dsn, then
CONCORD_DB_DSN, then the database section of the concord config.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&m.dsn, "dsn", "", "postgres connection URL")
	root.PersistentFlags().StringVar(&m.configPath, "config", "", "concord config file")

	root.AddCommand(
		m.run("up", "Apply all pending migrations", func(mg *migrate.Migrate, _ []string) error {
			return mg.Up()
		}),
		m.run("down", "Revert all migrations", func(mg *migrate.Migrate, _ []string) error {
			return mg.Down()
		}),
		m.withArg("steps", "Apply N migrations (negative reverts)", func(mg *migrate.Migrate, n int) error {
			return mg.Steps(n)
		}),
		m.withArg("force", "Force the recorded version without migrating", func(mg *migrate.Migrate, n int) error {
			return mg.Force(n)
		}),
		m.versionCmd(),
	)
	return root
}

func (m *migrator) resolveDSN() (string, error) {
	if m.dsn != "" {
		return m.dsn, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}

	cfg, err := config.LoadFile(m.configPath)
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Database.MigrationURL()
}

func (m *migrator) open() (*migrate.Migrate, error) {
	dsn, err := m.resolveDSN()
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	mg, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return mg, nil
}

func (m *migrator) exec(name string, fn func(*migrate.Migrate) error) error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := fn(mg); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("no change", "command", name)
			return nil
		}
		return fmt.Errorf("%s: %w", name, err)
	}

	v, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read version: %w", err)
	}
	m.logger.Info("migration complete", "command", name, "version", v, "dirty", dirty)
	return nil
}

func (m *migrator) run(name, short string, fn func(*migrate.Migrate, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.exec(name, func(mg *migrate.Migrate) error {
				return fn(mg, args)
			})
		},
	}
}

func (m *migrator) withArg(name, short string, fn func(*migrate.Migrate, int) error) *cobra.Command {
	return &cobra.Command{
		Use:   name + " N",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%s: invalid N %q: %w", name, args[0], err)
			}
			return m.exec(name, func(mg *migrate.Migrate) error {
				return fn(mg, n)
			})
		},
	}
}

func (m *migrator) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mg, err := m.open()
			if err != nil {
				return err
			}
			defer mg.Close()

			v, dirty, err := mg.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "version: none")
				return nil
			}
			if err != nil {
				return fmt.Errorf("read version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d, dirty: %v\n", v, dirty)
			return nil
		},
	}
}
