package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
	Mode    string `mapstructure:"mode" yaml:"mode"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// RateLimitPerMinute caps requests per client IP on the admin API and
	// webhooks. Zero disables the limiter.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDebug reports whether the server runs in gin debug mode.
func (s *ServerConfig) IsDebug() bool {
	return s.Mode == "debug"
}

type DatabaseConfig struct {
	// Driver is one of mysql, postgres or sqlite.
	Driver          string `mapstructure:"driver" yaml:"driver"`
	Host            string `mapstructure:"host" yaml:"host"`
	Port            int    `mapstructure:"port" yaml:"port"`
	Username        string `mapstructure:"username" yaml:"username"`
	Password        string `mapstructure:"password" yaml:"-"`
	Database        string `mapstructure:"database" yaml:"database"`
	SSLMode         string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "postgres":
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.Username, d.Password, d.Database, sslMode)
	case "sqlite":
		return d.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true&loc=UTC",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	}
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Password string `mapstructure:"password" yaml:"-"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type TelegramConfig struct {
	BotToken      string `mapstructure:"bot_token" yaml:"-"`
	APIBaseURL    string `mapstructure:"api_base_url" yaml:"api_base_url"`
	Mode          string `mapstructure:"mode" yaml:"mode"` // polling or webhook
	WebhookURL    string `mapstructure:"webhook_url" yaml:"webhook_url"`
	WebhookSecret string `mapstructure:"webhook_secret" yaml:"-"`
	StaffChatID   int64  `mapstructure:"staff_chat_id" yaml:"staff_chat_id"`
	Workers       int    `mapstructure:"workers" yaml:"workers"`
	// ProtectedChatIDs limits join-request arbitration to these chats. Empty
	// means every chat the bot administers.
	ProtectedChatIDs []int64 `mapstructure:"protected_chat_ids" yaml:"protected_chat_ids"`
}

// IsProtected reports whether join requests for chatID go through the gate.
func (t *TelegramConfig) IsProtected(chatID int64) bool {
	if len(t.ProtectedChatIDs) == 0 {
		return true
	}
	for _, id := range t.ProtectedChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// UsePolling reports whether updates are fetched with getUpdates.
func (t *TelegramConfig) UsePolling() bool {
	return t.Mode != "webhook"
}

type AdminsConfig struct {
	SuperAdminIDs []int64 `mapstructure:"super_admin_ids" yaml:"super_admin_ids"`
}

type OTPConfig struct {
	TTL                time.Duration `mapstructure:"ttl" yaml:"ttl"`
	MaxAttempts        int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	RegenerateCooldown time.Duration `mapstructure:"regenerate_cooldown" yaml:"regenerate_cooldown"`
}

type ConsentConfig struct {
	DocumentPath    string        `mapstructure:"document_path" yaml:"document_path"`
	DocumentVersion string        `mapstructure:"document_version" yaml:"document_version"`
	DraftTTL        time.Duration `mapstructure:"draft_ttl" yaml:"draft_ttl"`
}

type BillingConfig struct {
	StripeSecretKey string `mapstructure:"stripe_secret_key" yaml:"-"`
	WebhookSecret   string `mapstructure:"webhook_secret" yaml:"-"`
	PriceID         string `mapstructure:"price_id" yaml:"price_id"`
	SuccessURL      string `mapstructure:"success_url" yaml:"success_url"`
	CancelURL       string `mapstructure:"cancel_url" yaml:"cancel_url"`
	PortalReturnURL string `mapstructure:"portal_return_url" yaml:"portal_return_url"`
	PeriodDays      int    `mapstructure:"period_days" yaml:"period_days"`
	Currency        string `mapstructure:"currency" yaml:"currency"`
}

type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	Timezone     string `mapstructure:"timezone" yaml:"timezone"`
	ExpiringCron string `mapstructure:"expiring_cron" yaml:"expiring_cron"`
	ExpiredCron  string `mapstructure:"expired_cron" yaml:"expired_cron"`
	ReminderDays int    `mapstructure:"reminder_days" yaml:"reminder_days"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret" yaml:"-"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes" yaml:"access_exp_minutes"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt" yaml:"jwt"`
}

type EmailConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	SMTPHost     string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port" yaml:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user" yaml:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password" yaml:"-"`
	FromAddress  string `mapstructure:"from_address" yaml:"from_address"`
	FromName     string `mapstructure:"from_name" yaml:"from_name"`
	StaffAddress string `mapstructure:"staff_address" yaml:"staff_address"`
}

// LinksConfig holds the fixed invite links handed to subscribed members.
type LinksConfig struct {
	Channel   string `mapstructure:"channel" yaml:"channel"`
	Group     string `mapstructure:"group" yaml:"group"`
	Community string `mapstructure:"community" yaml:"community"`
}
