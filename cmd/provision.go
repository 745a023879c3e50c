// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/edusuite/platform/internal/config"
	"github.com/edusuite/platform/internal/db"
	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/storage"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/pkg/provisioner"
)

// provisionCmd creates a school tenant directly against the database,
// for operators working without a running server.
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a new school tenant",
	Long:  `Create the tenant record, its database, the full school schema and the initial admin user.`,
	RunE:  runProvision,
}

func init() {
	provisionCmd.Flags().String("name", "", "School name")
	provisionCmd.Flags().String("slug", "", "Tenant slug (subdomain label)")
	provisionCmd.Flags().Int64("owner", 0, "Owner account ID")
	provisionCmd.Flags().Int64("plan", 0, "Plan ID")
	provisionCmd.Flags().String("admin-email", "", "Admin email address")
	provisionCmd.Flags().String("admin-name", "", "Admin display name")
	provisionCmd.Flags().String("admin-phone", "", "Admin phone number")
	provisionCmd.Flags().String("admin-password", "", "Initial admin password")
	for _, f := range []string{"name", "slug", "owner", "plan", "admin-email", "admin-name", "admin-phone", "admin-password"} {
		_ = provisionCmd.MarkFlagRequired(f)
	}

	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, _ []string) error {
	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		return fmt.Errorf("issues with environment sourcing: %w", err)
	}

	logger := logging.NewLogger(specs.LogLevel)
	defer logger.Sync()
	monitor := monitoring.NewNoopMonitor("platform")
	tracer := tracing.NewNoopTracer()

	manager := db.NewManager(db.ManagerConfig{
		DSN:             specs.DSN,
		TenantDBPrefix:  specs.TenantDBPrefix,
		Encoding:        specs.TenantDBEncoding,
		Collation:       specs.TenantDBCollation,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
	}, tracer, monitor, logger)
	defer manager.Close()

	platformClient, err := manager.Platform(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reach platform database: %w", err)
	}
	s := storage.NewStorage(platformClient, tracer, monitor, logger)

	notifier := provisioner.NewLogNotifier(specs.ProvisionNotifyFrom, logger)
	service := provisioner.NewService(manager, s, notifier, specs.BcryptCost, specs.MinPasswordLength, tracer, monitor, logger)

	name, _ := cmd.Flags().GetString("name")
	slug, _ := cmd.Flags().GetString("slug")
	owner, _ := cmd.Flags().GetInt64("owner")
	plan, _ := cmd.Flags().GetInt64("plan")
	adminEmail, _ := cmd.Flags().GetString("admin-email")
	adminName, _ := cmd.Flags().GetString("admin-name")
	adminPhone, _ := cmd.Flags().GetString("admin-phone")
	adminPassword, _ := cmd.Flags().GetString("admin-password")

	report, err := service.Provision(cmd.Context(), &provisioner.Request{
		Name:          name,
		Slug:          slug,
		OwnerID:       owner,
		PlanID:        plan,
		AdminEmail:    adminEmail,
		AdminName:     adminName,
		AdminPhone:    adminPhone,
		AdminPassword: adminPassword,
	})
	if err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}

	fmt.Printf("Provisioned %s: database %s, %d/%d tables created, admin user %d\n",
		slug, report.Database, report.TablesCreated, report.TablesAttempted, report.AdminUserID)
	for _, failed := range report.Failed {
		fmt.Printf("  step failed: %s\n", failed)
	}
	return nil
}
