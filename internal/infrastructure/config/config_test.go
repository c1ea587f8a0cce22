package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
admins:
  super_admin_ids: [1, 2]
telegram:
  staff_chat_id: -100123
  protected_chat_ids: [-1001, -1002]
links:
  channel: https://t.me/+channel
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, cfg.Admins.SuperAdminIDs)
	assert.Equal(t, int64(-100123), cfg.Telegram.StaffChatID)
	assert.Equal(t, []int64{-1001, -1002}, cfg.Telegram.ProtectedChatIDs)
	assert.Equal(t, "https://t.me/+channel", cfg.Links.Channel)

	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 5, cfg.OTP.MaxAttempts)
	assert.Equal(t, 30, cfg.Billing.PeriodDays)
	assert.Equal(t, "Europe/Rome", cfg.Scheduler.Timezone)
	assert.Equal(t, "0 9 * * *", cfg.Scheduler.ExpiringCron)
	assert.Equal(t, "5 0 * * *", cfg.Scheduler.ExpiredCron)
	assert.Equal(t, 3, cfg.Scheduler.ReminderDays)
	assert.True(t, cfg.Telegram.UsePolling())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")
	t.Setenv("GATEKEEPER_SERVER_PORT", "9090")
	t.Setenv("GATEKEEPER_OTP_MAX_ATTEMPTS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.OTP.MaxAttempts)
}

func TestLoad_InvalidMode(t *testing.T) {
	path := writeConfig(t, "telegram:\n  mode: carrier-pigeon\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestYAML_OmitsSecrets(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123:secret-token"
billing:
  stripe_secret_key: sk_test_hidden
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "123:secret-token", cfg.Telegram.BotToken)

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret-token")
	assert.NotContains(t, string(out), "sk_test_hidden")
	assert.Contains(t, string(out), "period_days: 30")
}
