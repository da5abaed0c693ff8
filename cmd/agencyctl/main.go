// Command agencyctl runs operator tasks against the agency database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dimitrije/agency-api/internal/config"
	"github.com/dimitrije/agency-api/internal/database"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agencyctl",
		Short:         "Administrative commands for the agency API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newPromoteAdminCmd(),
		newTenantsCmd(),
		newInvitationsCmd(),
	)
	return root
}

// connect loads the environment config and opens the pool.
func connect(ctx context.Context) (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, db, nil
}
