package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestNewManager_PicksStrategyByDriver(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"sqlite", "gorm_auto_migrate"},
		{"mysql", "goose"},
		{"", "goose"},
		{"postgres", "goose"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			m, err := NewManager(tt.driver)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.GetStrategy().GetName())
		})
	}
}

func TestNewManager_UnknownDriver(t *testing.T) {
	_, err := NewManager("oracle")
	assert.Error(t, err)
}

func TestEmbeddedScripts_PresentForEachDialect(t *testing.T) {
	for _, dir := range []string{"scripts/mysql", "scripts/postgres"} {
		entries, err := scripts.ReadDir(dir)
		require.NoError(t, err)
		assert.NotEmpty(t, entries, dir)
	}
}

func TestAutoMigrate_SQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	m, err := NewManager("sqlite")
	require.NoError(t, err)
	require.NoError(t, m.Migrate(db))

	for _, table := range []string{"members", "consent_records", "admins", "processed_payment_events", "payments", "audit_log", "support_tickets"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	assert.ErrorIs(t, m.Status(db), ErrNotVersioned)
}
