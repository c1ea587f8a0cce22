package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	apperrors "github.com/orris-inc/gatekeeper/internal/shared/errors"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type ConsentRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewConsentRepository(db *gorm.DB, logger logger.Interface) consent.Repository {
	return &ConsentRepositoryImpl{db: db, logger: logger}
}

func (r *ConsentRepositoryImpl) Create(ctx context.Context, rec *consent.Record) error {
	model := mappers.ConsentToModel(rec)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create consent record", "user_id", rec.UserID(), "error", err)
		return fmt.Errorf("failed to create consent record: %w", err)
	}
	return rec.SetID(model.ID)
}

func (r *ConsentRepositoryImpl) Update(ctx context.Context, rec *consent.Record) error {
	model := mappers.ConsentToModel(rec)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.ConsentRecordModel{}).
		Where("id = ? AND version = ? AND is_confirmed = ?", model.ID, model.Version-1, false).
		Updates(map[string]interface{}{
			"otp_code":         model.OTPCode,
			"otp_generated_at": model.OTPGeneratedAt,
			"otp_attempts":     model.OTPAttempts,
			"is_confirmed":     model.IsConfirmed,
			"confirmed_key":    model.ConfirmedKey,
			"confirmed_at":     model.ConfirmedAt,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})

	if result.Error != nil {
		if apperrors.IsDuplicateError(result.Error) {
			return consent.ErrAlreadyConfirmed
		}
		r.logger.Errorw("failed to update consent record", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update consent record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Warnw("consent record version conflict", "id", model.ID, "user_id", model.UserID)
		return consent.ErrConcurrentUpdate
	}
	return nil
}

func (r *ConsentRepositoryImpl) GetPending(ctx context.Context, userID int64) (*consent.Record, error) {
	var model models.ConsentRecordModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND is_confirmed = ?", userID, false).
		Order("created_at DESC").Order("id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, consent.ErrNoPendingConsent
		}
		return nil, fmt.Errorf("failed to get pending consent: %w", err)
	}
	return mappers.ConsentToDomain(&model)
}

func (r *ConsentRepositoryImpl) HasPending(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := db.GetTxFromContext(ctx, r.db).Model(&models.ConsentRecordModel{}).
		Where("user_id = ? AND is_confirmed = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check pending consent: %w", err)
	}
	return count > 0, nil
}

func (r *ConsentRepositoryImpl) DeletePending(ctx context.Context, userID int64) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND is_confirmed = ?", userID, false).
		Delete(&models.ConsentRecordModel{})
	if result.Error != nil {
		r.logger.Errorw("failed to purge pending consent", "user_id", userID, "error", result.Error)
		return 0, fmt.Errorf("failed to purge pending consent: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *ConsentRepositoryImpl) GetConfirmed(ctx context.Context, userID int64) (*consent.Record, error) {
	var model models.ConsentRecordModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND is_confirmed = ?", userID, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, consent.ErrNotConfirmed
		}
		return nil, fmt.Errorf("failed to get confirmed consent: %w", err)
	}
	return mappers.ConsentToDomain(&model)
}
