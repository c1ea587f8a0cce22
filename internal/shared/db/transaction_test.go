package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type counter struct {
	ID    uint `gorm:"primaryKey"`
	Value int
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&counter{}))
	return gdb
}

func TestRunInTransaction_CommitAndRollback(t *testing.T) {
	gdb := setupDB(t)
	tm := NewTransactionManager(gdb)
	ctx := context.Background()

	err := tm.RunInTransaction(ctx, func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		return GetTxFromContext(ctx, gdb).Create(&counter{Value: 1}).Error
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := tm.GetTx(ctx).Create(&counter{Value: 2}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, gdb.Model(&counter{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunInTransaction_NestedReusesOuter(t *testing.T) {
	gdb := setupDB(t)
	tm := NewTransactionManager(gdb)

	err := tm.RunInTransaction(context.Background(), func(outer context.Context) error {
		return tm.RunInTransaction(outer, func(inner context.Context) error {
			assert.Same(t, tm.GetTx(outer), tm.GetTx(inner))
			return nil
		})
	})
	require.NoError(t, err)
	assert.False(t, InTransaction(context.Background()))
}
