package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xavierca1/crm-sync/internal/config"
	"github.com/xavierca1/crm-sync/internal/infra/crmmock"
	"github.com/xavierca1/crm-sync/internal/infra/database"
	"github.com/xavierca1/crm-sync/internal/infra/http/handlers"
	"github.com/xavierca1/crm-sync/internal/infra/http/middleware"
	"github.com/xavierca1/crm-sync/internal/infra/http/router"
	"github.com/xavierca1/crm-sync/internal/infra/mail"
	"github.com/xavierca1/crm-sync/internal/infra/queue"
	"github.com/xavierca1/crm-sync/internal/infra/worker"
	"github.com/xavierca1/crm-sync/internal/usecase"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the mock CRM and the background sync triggers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServe(cfg, migrate)
		},
	}

	cmd.Flags().String("address", "", "Address to listen on (default :3000)")
	cmd.Flags().Bool("migrate", true, "Apply the schema before serving")
	bindFlag(v, "address", cmd.Flags().Lookup("address"))

	return cmd
}

func runServe(cfg *config.Config, migrate bool) error {
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

	if migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	repo := database.NewUserRepository(pool)
	syncOpts := []usecase.SyncOption{usecase.WithSyncMetrics(middleware.SyncMetrics{})}

	var (
		rmq       *queue.RabbitMQ
		requester handlers.SyncRequester
		rmqState  handlers.ConnectionState
	)
	if cfg.RabbitMQURL != "" {
		rmq, err = queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer rmq.Close()

		producer := queue.NewProducer(rmq.Ch)
		syncOpts = append(syncOpts, usecase.WithEventPublisher(producer))
		requester = producer
		rmqState = rmq.Conn
	}

	if cfg.MailEnabled() {
		sender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPassword, cfg.MailFrom, cfg.MailTo)
		syncOpts = append(syncOpts, usecase.WithReportSender(sender))
	}

	syncUC := usecase.NewSyncUsersUseCase(repo, newCRMClient(cfg), syncOpts...)

	if rmq != nil {
		w := queue.NewWorker(rmq.Ch, syncUC)
		go func() {
			if err := w.Start(ctx, queue.QueueName); err != nil {
				slog.Error("Queue worker stopped", "error", err)
			}
		}()
	}

	if cfg.SyncInterval > 0 {
		scheduler, err := worker.NewSyncScheduler(syncUC, cfg.SyncInterval)
		if err != nil {
			return err
		}
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	if cfg.SyncOnInsert {
		listener := database.NewPendingListener(cfg.DatabaseURL, cfg.SyncDebounce, syncUC)
		go func() {
			if err := listener.Start(ctx); err != nil {
				slog.Error("Pending user listener stopped", "error", err)
			}
		}()
	}

	webhook, err := handlers.NewWebhookHandler(usecase.NewApplyWebhookUseCase(repo))
	if err != nil {
		return err
	}

	h := router.Handlers{
		User:           handlers.NewUserHandler(usecase.NewCreateUserUseCase(repo), repo),
		Sync:           handlers.NewSyncHandler(syncUC, requester),
		Webhook:        webhook,
		Health:         handlers.NewHealthHandler(pool, rmqState, cfg.CRMBaseURL),
		Debug:          handlers.NewDebugHandler(repo, repo),
		AllowedOrigins: cfg.AllowedOrigins,
		SyncRateLimit:  cfg.SyncRateLimit,
	}
	if cfg.MockCRM {
		h.CRM = handlers.NewCRMHandler(crmmock.NewStore())
	}

	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           router.New(h),
		ReadHeaderTimeout: serverReadTimeout,
		IdleTimeout:       serverIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("🔥 CRM sync server listening", "address", cfg.Address, "mock_crm", cfg.MockCRM)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
