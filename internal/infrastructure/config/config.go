package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	sharedConfig "github.com/orris-inc/gatekeeper/internal/shared/config"
)

const envPrefix = "GATEKEEPER"

// Config is built once at startup and passed to every component that needs it.
type Config struct {
	Server    sharedConfig.ServerConfig    `mapstructure:"server" yaml:"server"`
	Database  sharedConfig.DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Logger    sharedConfig.LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Redis     sharedConfig.RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Telegram  sharedConfig.TelegramConfig  `mapstructure:"telegram" yaml:"telegram"`
	Admins    sharedConfig.AdminsConfig    `mapstructure:"admins" yaml:"admins"`
	OTP       sharedConfig.OTPConfig       `mapstructure:"otp" yaml:"otp"`
	Consent   sharedConfig.ConsentConfig   `mapstructure:"consent" yaml:"consent"`
	Billing   sharedConfig.BillingConfig   `mapstructure:"billing" yaml:"billing"`
	Scheduler sharedConfig.SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Auth      sharedConfig.AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Email     sharedConfig.EmailConfig     `mapstructure:"email" yaml:"email"`
	Links     sharedConfig.LinksConfig     `mapstructure:"links" yaml:"links"`
}

// Load reads .env (optional), the YAML config and GATEKEEPER_* variables.
// path overrides the default search locations when non-empty.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings whose absence would only surface at runtime.
func (c *Config) Validate() error {
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("otp.max_attempts must be positive")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("otp.ttl must be positive")
	}
	if c.Billing.PeriodDays <= 0 {
		return errors.New("billing.period_days must be positive")
	}
	if c.Scheduler.ReminderDays < 0 {
		return errors.New("scheduler.reminder_days must not be negative")
	}
	switch c.Telegram.Mode {
	case "polling", "webhook":
	default:
		return fmt.Errorf("telegram.mode must be polling or webhook, got %q", c.Telegram.Mode)
	}
	return nil
}

// YAML renders the effective configuration. Secrets are tagged yaml:"-".
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.rate_limit_per_minute", 120)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "gatekeeper")
	v.SetDefault("database.database", "gatekeeper.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.mode", "polling")
	v.SetDefault("telegram.workers", 4)

	v.SetDefault("otp.ttl", "10m")
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.regenerate_cooldown", "60s")

	v.SetDefault("consent.document_path", "configs/consent.md")
	v.SetDefault("consent.document_version", "1.0")
	v.SetDefault("consent.draft_ttl", "30m")

	v.SetDefault("billing.period_days", 30)
	v.SetDefault("billing.currency", "eur")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "Europe/Rome")
	v.SetDefault("scheduler.expiring_cron", "0 9 * * *")
	v.SetDefault("scheduler.expired_cron", "5 0 * * *")
	v.SetDefault("scheduler.reminder_days", 3)

	v.SetDefault("auth.jwt.access_exp_minutes", 60)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.from_name", "Gatekeeper")
}
