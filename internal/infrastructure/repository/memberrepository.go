package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type MemberRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewMemberRepository(db *gorm.DB, logger logger.Interface) member.Repository {
	return &MemberRepositoryImpl{db: db, logger: logger}
}

func (r *MemberRepositoryImpl) Upsert(ctx context.Context, m *member.Member) error {
	model := mappers.MemberToModel(m)
	err := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "username_lower", "first_name", "last_name", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert member", "user_id", m.UserID(), "error", err)
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

// Update writes every admission column guarded by the previous version.
func (r *MemberRepositoryImpl) Update(ctx context.Context, m *member.Member) error {
	model := mappers.MemberToModel(m)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.MemberModel{}).
		Where("user_id = ? AND version = ?", model.UserID, model.Version-1).
		Updates(map[string]interface{}{
			"username":                  model.Username,
			"username_lower":            model.UsernameLower,
			"first_name":                model.FirstName,
			"last_name":                 model.LastName,
			"request_status":            model.RequestStatus,
			"requested_at":              model.RequestedAt,
			"approved":                  model.Approved,
			"approved_at":               model.ApprovedAt,
			"approved_by":               model.ApprovedBy,
			"rejected_at":               model.RejectedAt,
			"rejected_by":               model.RejectedBy,
			"consent_completed":         model.ConsentCompleted,
			"consent_completed_at":      model.ConsentCompletedAt,
			"subscription_active_until": model.SubscriptionActiveUntil,
			"subscription_status":       model.SubscriptionStatus,
			"customer_ref":              model.CustomerRef,
			"subscription_ref":          model.SubscriptionRef,
			"total_payments":            model.TotalPayments,
			"version":                   model.Version,
			"updated_at":                model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update member", "user_id", model.UserID, "error", result.Error)
		return fmt.Errorf("failed to update member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Warnw("member version conflict", "user_id", model.UserID, "expected_version", model.Version-1)
		return fmt.Errorf("%w: member %d was modified concurrently", member.ErrInvalidTransition, model.UserID)
	}
	return nil
}

func (r *MemberRepositoryImpl) first(ctx context.Context, query string, args ...interface{}) (*member.Member, error) {
	var model models.MemberModel
	if err := db.GetTxFromContext(ctx, r.db).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, member.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return mappers.MemberToDomain(&model)
}

func (r *MemberRepositoryImpl) GetByID(ctx context.Context, userID int64) (*member.Member, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *MemberRepositoryImpl) GetByUsername(ctx context.Context, username string) (*member.Member, error) {
	username = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if username == "" {
		return nil, member.ErrMemberNotFound
	}
	return r.first(ctx, "username_lower = ?", username)
}

func (r *MemberRepositoryImpl) GetByCustomerRef(ctx context.Context, customerRef string) (*member.Member, error) {
	if customerRef == "" {
		return nil, member.ErrMemberNotFound
	}
	return r.first(ctx, "customer_ref = ?", customerRef)
}

func (r *MemberRepositoryImpl) find(tx *gorm.DB) ([]*member.Member, error) {
	var list []models.MemberModel
	if err := tx.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return mappers.MembersToDomain(list)
}

func (r *MemberRepositoryImpl) ListByRequestStatus(ctx context.Context, status member.RequestStatus) ([]*member.Member, error) {
	tx := db.GetTxFromContext(ctx, r.db).
		Where("request_status = ?", status.String()).
		Order("requested_at ASC").Order("user_id ASC")
	return r.find(tx)
}

// ListExpiring includes cancelled subscriptions still inside their paid period.
func (r *MemberRepositoryImpl) ListExpiring(ctx context.Context, from, to time.Time) ([]*member.Member, error) {
	tx := db.GetTxFromContext(ctx, r.db).
		Where("subscription_status IN ?", []string{member.SubscriptionActive.String(), member.SubscriptionCancelled.String()}).
		Where("subscription_active_until >= ? AND subscription_active_until <= ?", from, to).
		Order("subscription_active_until ASC").Order("user_id ASC")
	return r.find(tx)
}

func (r *MemberRepositoryImpl) ListLapsed(ctx context.Context, today time.Time) ([]*member.Member, error) {
	tx := db.GetTxFromContext(ctx, r.db).
		Where("subscription_status IN ?", []string{member.SubscriptionActive.String(), member.SubscriptionCancelled.String()}).
		Where("subscription_active_until < ?", today).
		Order("user_id ASC")
	return r.find(tx)
}

func (r *MemberRepositoryImpl) List(ctx context.Context, filter member.ListFilter) ([]*member.Member, error) {
	tx := db.GetTxFromContext(ctx, r.db).Model(&models.MemberModel{})
	if filter.RequestStatus != nil {
		tx = tx.Where("request_status = ?", filter.RequestStatus.String())
	}
	if filter.Approved != nil {
		tx = tx.Where("approved = ?", *filter.Approved)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	return r.find(tx.Order("created_at ASC").Order("user_id ASC"))
}

func (r *MemberRepositoryImpl) Count(ctx context.Context, filter member.CountFilter) (int64, error) {
	tx := db.GetTxFromContext(ctx, r.db).Model(&models.MemberModel{})
	if filter.RequestStatus != nil {
		tx = tx.Where("request_status = ?", filter.RequestStatus.String())
	}
	if filter.Approved != nil {
		tx = tx.Where("approved = ?", *filter.Approved)
	}
	if filter.ConsentCompleted != nil {
		tx = tx.Where("consent_completed = ?", *filter.ConsentCompleted)
	}
	if filter.ActiveOn != nil {
		tx = tx.Where("subscription_active_until >= ?", *filter.ActiveOn)
	}
	if filter.CreatedSince != nil {
		tx = tx.Where("created_at >= ?", *filter.CreatedSince)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}
