package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type AdminRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewAdminRepository(db *gorm.DB, logger logger.Interface) admin.Repository {
	return &AdminRepositoryImpl{db: db, logger: logger}
}

func (r *AdminRepositoryImpl) Add(ctx context.Context, a *admin.Record) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(mappers.AdminToModel(a))
	if result.Error != nil {
		r.logger.Errorw("failed to add admin", "user_id", a.UserID(), "error", result.Error)
		return false, fmt.Errorf("failed to add admin: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *AdminRepositoryImpl) Remove(ctx context.Context, userID int64) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).Where("user_id = ?", userID).Delete(&models.AdminModel{})
	if result.Error != nil {
		r.logger.Errorw("failed to remove admin", "user_id", userID, "error", result.Error)
		return false, fmt.Errorf("failed to remove admin: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *AdminRepositoryImpl) Exists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	if err := db.GetTxFromContext(ctx, r.db).Model(&models.AdminModel{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return count > 0, nil
}

func (r *AdminRepositoryImpl) List(ctx context.Context) ([]*admin.Record, error) {
	var list []models.AdminModel
	if err := db.GetTxFromContext(ctx, r.db).Order("added_at ASC").Order("user_id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	out := make([]*admin.Record, 0, len(list))
	for i := range list {
		a, err := mappers.AdminToDomain(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
