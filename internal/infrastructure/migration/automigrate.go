package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// GormAutoMigrateStrategy creates the schema from the gorm models. Used for
// sqlite, which has no versioned scripts.
type GormAutoMigrateStrategy struct {
	logger logger.Interface
}

func NewGormAutoMigrateStrategy() *GormAutoMigrateStrategy {
	return &GormAutoMigrateStrategy{
		logger: logger.NewLogger().With("component", "migration.automigrate"),
	}
}

func (s *GormAutoMigrateStrategy) Migrate(db *gorm.DB) error {
	all := models.All()
	s.logger.Infow("running gorm automigrate", "models_count", len(all))
	if err := db.AutoMigrate(all...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (s *GormAutoMigrateStrategy) GetName() string {
	return "gorm_auto_migrate"
}
