package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Address        string
	AllowedOrigins []string

	DatabaseURL string

	CRMBaseURL      string
	CRMClientID     string
	CRMClientSecret string
	MockCRM         bool

	RetryMax          uint
	RetryInitialDelay time.Duration
	AttemptTimeout    time.Duration

	SyncInterval  time.Duration
	SyncOnInsert  bool
	SyncDebounce  time.Duration
	SyncRateLimit int

	RabbitMQURL string

	MailHost     string
	MailPort     int
	MailUser     string
	MailPassword string
	MailFrom     string
	MailTo       []string

	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("address", ":3000")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("database_url", "")
	v.SetDefault("crm_base_url", "http://localhost:3000/crm")
	v.SetDefault("crm_client_id", "dummy")
	v.SetDefault("crm_client_secret", "dummy")
	v.SetDefault("mock_crm", true)
	v.SetDefault("retry_max", 3)
	v.SetDefault("retry_initial_delay", "1s")
	v.SetDefault("attempt_timeout", "10s")
	v.SetDefault("sync_interval", "0s")
	v.SetDefault("sync_on_insert", false)
	v.SetDefault("sync_debounce", "2s")
	v.SetDefault("sync_rate_limit", 10)
	v.SetDefault("rabbitmq_url", "")
	v.SetDefault("mail_host", "")
	v.SetDefault("mail_port", 587)
	v.SetDefault("mail_user", "")
	v.SetDefault("mail_password", "")
	v.SetDefault("mail_from", "crm-sync@localhost")
	v.SetDefault("mail_to", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// LoadDotEnv reads .env into the process environment if the file exists.
// Variables already set win over the file.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load reads the configuration from the environment (upper-cased keys, e.g.
// DATABASE_URL) and from any flags already bound to v.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	retryMax := v.GetInt("retry_max")
	if retryMax < 0 {
		return nil, fmt.Errorf("RETRY_MAX must not be negative, got %d", retryMax)
	}

	cfg := &Config{
		Address:           v.GetString("address"),
		AllowedOrigins:    splitList(v.GetString("allowed_origins")),
		DatabaseURL:       v.GetString("database_url"),
		CRMBaseURL:        strings.TrimRight(v.GetString("crm_base_url"), "/"),
		CRMClientID:       v.GetString("crm_client_id"),
		CRMClientSecret:   v.GetString("crm_client_secret"),
		MockCRM:           v.GetBool("mock_crm"),
		RetryMax:          uint(retryMax),
		RetryInitialDelay: v.GetDuration("retry_initial_delay"),
		AttemptTimeout:    v.GetDuration("attempt_timeout"),
		SyncInterval:      v.GetDuration("sync_interval"),
		SyncOnInsert:      v.GetBool("sync_on_insert"),
		SyncDebounce:      v.GetDuration("sync_debounce"),
		SyncRateLimit:     v.GetInt("sync_rate_limit"),
		RabbitMQURL:       v.GetString("rabbitmq_url"),
		MailHost:          v.GetString("mail_host"),
		MailPort:          v.GetInt("mail_port"),
		MailUser:          v.GetString("mail_user"),
		MailPassword:      v.GetString("mail_password"),
		MailFrom:          v.GetString("mail_from"),
		MailTo:            splitList(v.GetString("mail_to")),
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		LogFormat:         strings.ToLower(v.GetString("log_format")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.CRMBaseURL == "" {
		errs = append(errs, errors.New("CRM_BASE_URL is required"))
	}
	if c.RetryInitialDelay < 0 {
		errs = append(errs, errors.New("RETRY_INITIAL_DELAY must not be negative"))
	}
	if c.AttemptTimeout < 0 {
		errs = append(errs, errors.New("ATTEMPT_TIMEOUT must not be negative"))
	}
	if c.SyncInterval < 0 {
		errs = append(errs, errors.New("SYNC_INTERVAL must not be negative"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// RequireDatabase is checked by the commands that touch Postgres.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

func (c *Config) MailEnabled() bool {
	return c.MailHost != "" && len(c.MailTo) > 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
