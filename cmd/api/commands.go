package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xavierca1/crm-sync/internal/config"
	"github.com/xavierca1/crm-sync/internal/infra/integration/crm"
	"github.com/xavierca1/crm-sync/internal/infra/retry"
)

func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "crm-sync",
		Short:         "Registers users locally and keeps them in sync with the CRM",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			config.LoadDotEnv()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (text, json)")
	bindFlag(v, "log_level", root.PersistentFlags().Lookup("log-level"))
	bindFlag(v, "log_format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(newServeCmd(v))
	root.AddCommand(newSyncCmd(v))
	root.AddCommand(newMigrateCmd(v))

	return root
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		slog.Error("Error binding flag", "flag", flag.Name, "error", err)
	}
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	slog.SetDefault(newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat))
	return cfg, nil
}

func newCRMClient(cfg *config.Config) *crm.Client {
	return crm.NewClient(cfg.CRMBaseURL, cfg.CRMClientID, cfg.CRMClientSecret, retry.Policy{
		MaxRetries:     cfg.RetryMax,
		InitialDelay:   cfg.RetryInitialDelay,
		AttemptTimeout: cfg.AttemptTimeout,
	})
}
