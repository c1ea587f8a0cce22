package server

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/orris-inc/gatekeeper/internal/infrastructure/cache"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/migration"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/scheduler"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/telegram"
	"github.com/orris-inc/gatekeeper/internal/interfaces/bot"
	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/cmdutil"
	httpRouter "github.com/orris-inc/gatekeeper/internal/interfaces/http"
	"github.com/orris-inc/gatekeeper/internal/shared/goroutine"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

var autoMigrate bool

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the bot, the HTTP server and the scheduler",
		Long: `Start the gatekeeper process: the Telegram bot (polling or webhook),
the admin HTTP API with the provider webhooks, and the subscription sweeps.`,
		RunE: run,
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	env, err := cmdutil.Open(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	cfg := env.Config
	log := logger.WithComponent("server")

	if autoMigrate {
		m, err := migration.NewManager(cfg.Database.Driver)
		if err != nil {
			return err
		}
		if err := m.Migrate(env.DB); err != nil {
			return err
		}
	}

	c, err := env.Container(false)
	if err != nil {
		return err
	}

	log.Infow("starting gatekeeper",
		"version", httpRouter.Version,
		"telegram_mode", cfg.Telegram.Mode,
		"super_admins", len(cfg.Admins.SuperAdminIDs),
		"consent_version", c.Document.Version,
		"billing_enabled", cfg.Billing.StripeSecretKey != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.Bot.Enabled() {
		if err := c.Bot.SetMyCommands(ctx, bot.Commands, 0); err != nil {
			log.Warnw("failed to publish bot commands", "error", err)
		}

		if cfg.Telegram.UsePolling() {
			polling := telegram.NewPollingService(c.Bot, c.BotRouter, logger.WithComponent("telegram.polling"),
				cache.NewPollingOffsetStore(c.Redis), cfg.Telegram.Workers)
			if err := polling.Start(ctx); err != nil {
				return fmt.Errorf("failed to start polling: %w", err)
			}
			defer polling.Stop()
		} else {
			if err := c.Bot.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
				return fmt.Errorf("failed to register webhook: %w", err)
			}
			log.Infow("telegram webhook registered", "url", cfg.Telegram.WebhookURL)
		}
	} else {
		log.Warnw("telegram bot token not configured, bot disabled")
	}

	if cfg.Scheduler.Enabled {
		sm, err := scheduler.NewSchedulerManager(logger.WithComponent("scheduler"))
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		if err := sm.RegisterSweepJobs(c.Ledger, cfg.Scheduler); err != nil {
			return fmt.Errorf("failed to register sweep jobs: %w", err)
		}
		sm.Start()
		defer func() {
			if err := sm.Stop(); err != nil {
				log.Errorw("failed to stop scheduler", "error", err)
			}
		}()
	}

	gin.DefaultWriter = io.Discard
	router := httpRouter.NewRouter(c)

	errCh := make(chan error, 1)
	goroutine.SafeGo(log, "http-server", func() {
		errCh <- router.Run(cfg.Server.GetAddr())
	})

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}
