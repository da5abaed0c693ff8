package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dimitrije/agency-api/internal/config"
	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newPromoteAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote-admin <email>",
		Short: "Grant a user the platform super admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			email := args[0]
			if err := services.NewUserService(db).SetGlobalRole(cmd.Context(), email, models.GlobalRoleSuperAdmin); err != nil {
				return fmt.Errorf("promote %s: %w", email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "promoted %s to super admin\n", services.NormalizeEmail(email))
			return nil
		},
	}
}

func newTenantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tenants",
		Short: "List all tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			tenants, err := services.NewTenantService(db).ListAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tenants: %w", err)
			}
			renderTenants(cmd.OutOrStdout(), tenants)
			return nil
		},
	}
}

func newInvitationsCmd() *cobra.Command {
	var (
		slug   string
		status string
	)
	cmd := &cobra.Command{
		Use:   "invitations",
		Short: "List a tenant's invitations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			tenant, err := services.NewTenantService(db).GetBySlug(cmd.Context(), strings.ToLower(slug))
			if err != nil {
				return fmt.Errorf("tenant %q: %w", slug, err)
			}

			svc := services.NewInvitationService(db, nil, nil, services.InvitationConfig{
				TTL:         cfg.InvitationTTL,
				FrontendURL: cfg.FrontendURL,
			})
			list, _, err := svc.List(cmd.Context(), tenant.ID, status, models.Page{Page: 1, PerPage: 100})
			if err != nil {
				return fmt.Errorf("list invitations: %w", err)
			}
			renderInvitations(cmd.OutOrStdout(), list, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "tenant", "", "tenant slug")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, accepted, rejected, cancelled, expired)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func renderTenants(w io.Writer, tenants []models.Tenant) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Slug", "Name", "Owner", "Created"})
	for _, t := range tenants {
		tw.AppendRow(table.Row{t.ID, t.Slug, t.Name, t.OwnerID, t.CreatedAt.Format(time.DateOnly)})
	}
	tw.AppendFooter(table.Row{"", "", "", "Total", len(tenants)})
	tw.Render()
}

func renderInvitations(w io.Writer, list []models.Invitation, now time.Time) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Email", "Role", "Project", "Status", "Expires"})
	for _, inv := range list {
		project := ""
		if inv.ProjectName != nil {
			project = *inv.ProjectName
		}
		tw.AppendRow(table.Row{inv.ID, inv.Email, inv.Role, project, inv.EffectiveStatus(now), inv.ExpiresAt.Format(time.DateTime)})
	}
	tw.Render()
}
