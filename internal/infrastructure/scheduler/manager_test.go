package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/shared/config"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) RemindExpiring(ctx context.Context, withinDays int) ([]*member.Member, error) {
	args := m.Called(ctx, withinDays)
	list, _ := args.Get(0).([]*member.Member)
	return list, args.Error(1)
}

func (m *mockSweeper) SweepExpired(ctx context.Context) ([]*member.Member, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*member.Member)
	return list, args.Error(1)
}

func testMember(t *testing.T, id int64) *member.Member {
	t.Helper()
	m, err := member.NewMember(id, "", "Member", "", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return m
}

func TestRegisterSweepJobs(t *testing.T) {
	mgr, err := NewSchedulerManager(logger.NewNop())
	require.NoError(t, err)

	require.NoError(t, mgr.RegisterSweepJobs(new(mockSweeper), config.SchedulerConfig{}))

	names := make([]string, 0, 2)
	for _, j := range mgr.Jobs() {
		names = append(names, j.Name())
	}
	assert.ElementsMatch(t, []string{"expiring-reminder", "expiry-sweep"}, names)
}

func TestRegisterSweepJobs_InvalidCron(t *testing.T) {
	mgr, err := NewSchedulerManager(logger.NewNop())
	require.NoError(t, err)

	err = mgr.RegisterSweepJobs(new(mockSweeper), config.SchedulerConfig{ExpiringCron: "not a cron"})
	assert.Error(t, err)
}

func TestRunExpiring(t *testing.T) {
	s := new(mockSweeper)
	s.On("RemindExpiring", mock.Anything, 3).Return([]*member.Member{testMember(t, 1), testMember(t, 2)}, nil).Once()

	n, err := RunExpiring(context.Background(), s, 3, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	s.AssertExpectations(t)
}

func TestRunExpired_Error(t *testing.T) {
	s := new(mockSweeper)
	s.On("SweepExpired", mock.Anything).Return(nil, errors.New("db down")).Once()

	n, err := RunExpired(context.Background(), s, logger.NewNop())
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestStartStop(t *testing.T) {
	mgr, err := NewSchedulerManager(logger.NewNop())
	require.NoError(t, err)

	assert.False(t, mgr.IsStarted())
	mgr.Start()
	mgr.Start()
	assert.True(t, mgr.IsStarted())
	require.NoError(t, mgr.Stop())
	assert.False(t, mgr.IsStarted())
	require.NoError(t, mgr.Stop())
}
