// Package scheduler runs the daily subscription sweeps using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
	"github.com/orris-inc/gatekeeper/internal/shared/config"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

const (
	DefaultExpiringCron = "0 9 * * *"
	DefaultExpiredCron  = "5 0 * * *"
	DefaultReminderDays = 3

	jobTimeout = 10 * time.Minute
)

// Sweeper is the part of the subscription ledger the jobs drive.
type Sweeper interface {
	RemindExpiring(ctx context.Context, withinDays int) ([]*member.Member, error)
	SweepExpired(ctx context.Context) ([]*member.Member, error)
}

// SchedulerManager owns the single gocron scheduler of the process.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a scheduler whose cron expressions are read in
// the business timezone.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterSweepJobs registers the renewal reminder and the expiry sweep.
// Empty cron expressions fall back to the defaults.
func (m *SchedulerManager) RegisterSweepJobs(sweeper Sweeper, cfg config.SchedulerConfig) error {
	expiringCron := cfg.ExpiringCron
	if expiringCron == "" {
		expiringCron = DefaultExpiringCron
	}
	expiredCron := cfg.ExpiredCron
	if expiredCron == "" {
		expiredCron = DefaultExpiredCron
	}
	reminderDays := cfg.ReminderDays
	if reminderDays <= 0 {
		reminderDays = DefaultReminderDays
	}

	_, err := m.scheduler.NewJob(
		gocron.CronJob(expiringCron, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			RunExpiring(ctx, sweeper, reminderDays, m.logger)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("subscription", "reminder"),
		gocron.WithName("expiring-reminder"),
	)
	if err != nil {
		return err
	}

	_, err = m.scheduler.NewJob(
		gocron.CronJob(expiredCron, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			RunExpired(ctx, sweeper, m.logger)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("subscription", "expire"),
		gocron.WithName("expiry-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered sweep jobs",
		"expiring_cron", expiringCron,
		"expired_cron", expiredCron,
		"reminder_days", reminderDays,
		"timezone", biztime.Location().String(),
	)
	return nil
}

// RunExpiring sends renewal reminders once. The CLI calls it directly.
func RunExpiring(ctx context.Context, sweeper Sweeper, withinDays int, log logger.Interface) (int, error) {
	startTime := biztime.NowUTC()

	list, err := sweeper.RemindExpiring(ctx, withinDays)
	if err != nil {
		log.Errorw("failed to send renewal reminders",
			"error", err,
			"duration", time.Since(startTime),
		)
		return 0, err
	}

	if len(list) > 0 {
		log.Infow("renewal reminders sent",
			"count", len(list),
			"within_days", withinDays,
			"duration", time.Since(startTime),
		)
	} else {
		log.Debugw("no subscriptions expiring soon", "within_days", withinDays)
	}
	return len(list), nil
}

// RunExpired closes lapsed subscriptions once.
func RunExpired(ctx context.Context, sweeper Sweeper, log logger.Interface) (int, error) {
	startTime := biztime.NowUTC()

	list, err := sweeper.SweepExpired(ctx)
	if err != nil {
		log.Errorw("failed to process expired subscriptions",
			"error", err,
			"duration", time.Since(startTime),
		)
		return 0, err
	}

	if len(list) > 0 {
		log.Infow("expired subscriptions processed",
			"count", len(list),
			"duration", time.Since(startTime),
		)
	} else {
		log.Debugw("no expired subscriptions to process",
			"duration", time.Since(startTime),
		)
	}
	return len(list), nil
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs and shuts the scheduler down.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
