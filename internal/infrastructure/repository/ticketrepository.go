package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/gatekeeper/internal/domain/ticket"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type TicketRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewTicketRepository(db *gorm.DB, logger logger.Interface) ticket.Repository {
	return &TicketRepositoryImpl{db: db, logger: logger}
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, t *ticket.Ticket) error {
	model := mappers.TicketToModel(t)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create ticket", "user_id", t.UserID(), "error", err)
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return t.SetID(model.ID)
}

func (r *TicketRepositoryImpl) Update(ctx context.Context, t *ticket.Ticket) error {
	model := mappers.TicketToModel(t)
	result := db.GetTxFromContext(ctx, r.db).Model(&models.SupportTicketModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"status":     model.Status,
			"closed_by":  model.ClosedBy,
			"closed_at":  model.ClosedAt,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update ticket", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ticket.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepositoryImpl) GetByID(ctx context.Context, id uint) (*ticket.Ticket, error) {
	var model models.SupportTicketModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ticket.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return mappers.TicketToDomain(&model)
}

func (r *TicketRepositoryImpl) ListOpen(ctx context.Context) ([]*ticket.Ticket, error) {
	var list []models.SupportTicketModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("status = ?", ticket.StatusOpen.String()).
		Order("priority_rank ASC").Order("created_at ASC").Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open tickets: %w", err)
	}
	out := make([]*ticket.Ticket, 0, len(list))
	for i := range list {
		t, err := mappers.TicketToDomain(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *TicketRepositoryImpl) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := db.GetTxFromContext(ctx, r.db).Model(&models.SupportTicketModel{}).
		Where("status = ?", ticket.StatusOpen.String()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count open tickets: %w", err)
	}
	return count, nil
}
