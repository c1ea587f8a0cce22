// Package cmdutil loads configuration and opens the shared connections for
// the CLI commands.
package cmdutil

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/orris-inc/gatekeeper/internal/infrastructure/cache"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/config"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/database"
	httpRouter "github.com/orris-inc/gatekeeper/internal/interfaces/http"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// ConfigFlag is the persistent flag registered on the root command.
const ConfigFlag = "config"

// LoadConfig reads the configuration and initializes logging and the
// business timezone.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(ConfigFlag)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, cfg.Server.IsDebug()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := biztime.Init(cfg.Scheduler.Timezone); err != nil {
		return nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}
	return cfg, nil
}

// Env is an opened runtime: config, database and redis.
type Env struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Logger logger.Interface
}

func Open(cmd *cobra.Command) (*Env, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	gdb, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	rdb, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		_ = database.Close(gdb)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Env{Config: cfg, DB: gdb, Redis: rdb, Logger: logger.NewLogger()}, nil
}

// Container wires every service on top of the opened connections.
func (e *Env) Container(inlineNotify bool) (*httpRouter.Container, error) {
	return httpRouter.NewContainer(e.Config, e.DB, e.Redis, e.Logger,
		httpRouter.ContainerOptions{InlineNotify: inlineNotify})
}

func (e *Env) Close() {
	if e.Redis != nil {
		if err := e.Redis.Close(); err != nil {
			e.Logger.Warnw("failed to close redis", "error", err)
		}
	}
	if err := database.Close(e.DB); err != nil {
		e.Logger.Warnw("failed to close database", "error", err)
	}
}
