// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/kelseyhightower/envconfig"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/edusuite/platform/internal/config"
	"github.com/edusuite/platform/migrations"
)

// migrateCmd applies migrations to the shared platform database. Tenant
// schemas are built by the provisioner, not by this command.
var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|status|check]",
	Short: "Run platform database migrations",
	Long:  `Apply, roll back or inspect the shared platform database migrations.`,
	Args:  migrateArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().String("dsn", "", "PostgreSQL DSN (defaults to the DSN environment variable)")

	rootCmd.AddCommand(migrateCmd)
}

func migrateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(0, 2)(cmd, args); err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "up", "down", "status", "check":
	default:
		return fmt.Errorf("unknown migrate action %q", args[0])
	}

	// Only down takes a second argument, the non-negative target version.
	if len(args) == 2 {
		if args[0] != "down" {
			return fmt.Errorf("%s does not take a target version", args[0])
		}
		if v, err := strconv.Atoi(args[1]); err != nil || v < 0 {
			return fmt.Errorf("invalid target version %q", args[1])
		}
	}

	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}

	target := -1
	if len(args) > 1 {
		target, _ = strconv.Atoi(args[1])
	}

	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		specs := new(config.EnvSpec)
		if err := envconfig.Process("", specs); err != nil {
			return fmt.Errorf("issues with environment sourcing: %w", err)
		}
		dsn = specs.DSN
	}

	pgxCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("DSN validation failed: %w", err)
	}

	conn := stdlib.OpenDB(*pgxCfg)
	defer conn.Close()
	if err := conn.PingContext(cmd.Context()); err != nil {
		return fmt.Errorf("failed to connect to the database: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, conn, migrations.EmbedMigrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	ctx := cmd.Context()
	switch action {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return err
		}
		for _, r := range results {
			cmd.Printf("applied %s\n", r.Source.Path)
		}
	case "down":
		if target < 0 {
			result, err := provider.Down(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("rolled back %s\n", result.Source.Path)
			return nil
		}
		results, err := provider.DownTo(ctx, int64(target))
		if err != nil {
			return err
		}
		for _, r := range results {
			cmd.Printf("rolled back %s\n", r.Source.Path)
		}
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			cmd.Printf("%-24s %s\n", applied, s.Source.Path)
		}
	case "check":
		pending, err := provider.HasPending(ctx)
		if err != nil {
			return fmt.Errorf("failed to check pending migrations: %w", err)
		}
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		if pending {
			return fmt.Errorf("migrations are pending: current version %d", version)
		}
		cmd.Printf("database is up to date (version %d)\n", version)
	}

	return nil
}
