package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/gatekeeper/internal/domain/audit"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
)

// AuditRepositoryImpl only ever inserts.
type AuditRepositoryImpl struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepositoryImpl{db: db}
}

func (r *AuditRepositoryImpl) Append(ctx context.Context, e *audit.Entry) error {
	model, err := mappers.AuditToModel(e)
	if err != nil {
		return err
	}
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append audit entry %s: %w", e.Action, err)
	}
	e.ID = model.ID
	return nil
}

func (r *AuditRepositoryImpl) ListByUser(ctx context.Context, userID int64, limit int) ([]*audit.Entry, error) {
	var list []models.AuditLogModel
	tx := db.GetTxFromContext(ctx, r.db).Where("user_id = ?", userID).Order("created_at ASC").Order("id ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	out := make([]*audit.Entry, 0, len(list))
	for i := range list {
		out = append(out, mappers.AuditToDomain(&list[i]))
	}
	return out, nil
}
