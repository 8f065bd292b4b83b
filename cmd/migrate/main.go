package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rentroll.org/internal/migrate"
)

func main() {
	_ = godotenv.Load()

	var (
		migrationsDir string
		seedsDir      string
	)

	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration tool for the leasing database",
	}
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "ops/migrations/sql", "directory with .up.sql/.down.sql files")
	rootCmd.PersistentFlags().StringVar(&seedsDir, "seeds", "ops/migrations/seeds", "directory with seed .sql files")

	withManager := func(run func(ctx context.Context, m *migrate.Manager) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			dsn := os.Getenv("RENTROLL_PG_DSN")
			if dsn == "" {
				return fmt.Errorf("RENTROLL_PG_DSN is not set")
			}
			db, err := sql.Open("pgx", dsn)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			return run(ctx, migrate.NewManager(db, migrationsDir, seedsDir))
		}
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: withManager(func(ctx context.Context, m *migrate.Manager) error {
				return m.Up(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: withManager(func(ctx context.Context, m *migrate.Manager) error {
				return m.Down(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied migrations",
			RunE: withManager(func(ctx context.Context, m *migrate.Manager) error {
				applied, err := m.Status(ctx)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Println("no migrations applied")
					return nil
				}
				for _, name := range applied {
					fmt.Println(name)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load demo data (idempotent)",
			RunE: withManager(func(ctx context.Context, m *migrate.Manager) error {
				return m.Seed(ctx)
			}),
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
