package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xavierca1/crm-sync/internal/infra/database"
	"github.com/xavierca1/crm-sync/internal/infra/http/handlers"
	"github.com/xavierca1/crm-sync/internal/usecase"
)

func newSyncCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and print the counts",
		Long: `Run one sync pass against the configured CRM and print the result as JSON.
The CRM must be reachable; a token failure ends the pass without touching any user.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := database.NewDBConnection(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			uc := usecase.NewSyncUsersUseCase(database.NewUserRepository(pool), newCRMClient(cfg))
			out, err := uc.Execute(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(handlers.SyncResponse{
				Message: "Sync completed",
				Synced:  out.Succeeded,
				Failed:  out.Failed,
			})
		},
	}
}
