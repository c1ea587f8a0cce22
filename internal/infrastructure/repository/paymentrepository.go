package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orris-inc/gatekeeper/internal/domain/payment"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type PaymentRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPaymentRepository(db *gorm.DB, logger logger.Interface) payment.Repository {
	return &PaymentRepositoryImpl{db: db, logger: logger}
}

func (r *PaymentRepositoryImpl) Record(ctx context.Context, p *payment.Payment) error {
	result := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "provider_payment_id"}}, DoNothing: true}).
		Create(mappers.PaymentToModel(p))
	if result.Error != nil {
		r.logger.Errorw("failed to record payment", "user_id", p.UserID(), "provider_payment_id", p.ProviderPaymentID(), "error", result.Error)
		return fmt.Errorf("failed to record payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Debugw("payment already recorded", "provider_payment_id", p.ProviderPaymentID())
	}
	return nil
}

func (r *PaymentRepositoryImpl) ListByUser(ctx context.Context, userID int64) ([]*payment.Payment, error) {
	var list []models.PaymentModel
	if err := db.GetTxFromContext(ctx, r.db).Where("user_id = ?", userID).Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	out := make([]*payment.Payment, 0, len(list))
	for i := range list {
		out = append(out, mappers.PaymentToDomain(&list[i]))
	}
	return out, nil
}

func (r *PaymentRepositoryImpl) SumSucceeded(ctx context.Context) (int64, error) {
	return r.sumSucceeded(db.GetTxFromContext(ctx, r.db))
}

func (r *PaymentRepositoryImpl) SumSucceededSince(ctx context.Context, since time.Time) (int64, error) {
	return r.sumSucceeded(db.GetTxFromContext(ctx, r.db).Where("created_at >= ?", since))
}

func (r *PaymentRepositoryImpl) sumSucceeded(tx *gorm.DB) (int64, error) {
	var total int64
	err := tx.Model(&models.PaymentModel{}).
		Where("status = ?", string(payment.StatusSucceeded)).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return total, nil
}

type PaymentEventLogImpl struct {
	db *gorm.DB
}

func NewPaymentEventLog(db *gorm.DB) payment.EventLog {
	return &PaymentEventLogImpl{db: db}
}

func (l *PaymentEventLogImpl) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	result := db.GetTxFromContext(ctx, l.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProcessedPaymentEventModel{
			EventID:     eventID,
			EventType:   eventType,
			ProcessedAt: time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to record payment event %s: %w", eventID, result.Error)
	}
	return result.RowsAffected > 0, nil
}
