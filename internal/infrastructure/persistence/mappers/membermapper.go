package mappers

import (
	"strings"

	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/models"
)

func MemberToModel(m *member.Member) *models.MemberModel {
	return &models.MemberModel{
		UserID:                  m.UserID(),
		Username:                m.Username(),
		UsernameLower:           strings.ToLower(m.Username()),
		FirstName:               m.FirstName(),
		LastName:                m.LastName(),
		RequestStatus:           m.RequestStatus().String(),
		RequestedAt:             m.RequestedAt(),
		Approved:                m.Approved(),
		ApprovedAt:              m.ApprovedAt(),
		ApprovedBy:              m.ApprovedBy(),
		RejectedAt:              m.RejectedAt(),
		RejectedBy:              m.RejectedBy(),
		ConsentCompleted:        m.ConsentCompleted(),
		ConsentCompletedAt:      m.ConsentCompletedAt(),
		SubscriptionActiveUntil: asDatePtr(m.SubscriptionActiveUntil()),
		SubscriptionStatus:      m.SubscriptionStatus().String(),
		CustomerRef:             m.CustomerRef(),
		SubscriptionRef:         m.SubscriptionRef(),
		TotalPayments:           m.TotalPayments(),
		Version:                 m.Version(),
		CreatedAt:               m.CreatedAt(),
		UpdatedAt:               m.UpdatedAt(),
	}
}

func MemberToDomain(model *models.MemberModel) (*member.Member, error) {
	requestStatus, err := member.NewRequestStatus(model.RequestStatus)
	if err != nil {
		return nil, err
	}
	subStatus, err := member.NewSubscriptionStatus(model.SubscriptionStatus)
	if err != nil {
		return nil, err
	}
	return member.ReconstructMember(member.ReconstructParams{
		UserID:                  model.UserID,
		Username:                model.Username,
		FirstName:               model.FirstName,
		LastName:                model.LastName,
		RequestStatus:           requestStatus,
		RequestedAt:             utcPtr(model.RequestedAt),
		Approved:                model.Approved,
		ApprovedAt:              utcPtr(model.ApprovedAt),
		ApprovedBy:              model.ApprovedBy,
		RejectedAt:              utcPtr(model.RejectedAt),
		RejectedBy:              model.RejectedBy,
		ConsentCompleted:        model.ConsentCompleted,
		ConsentCompletedAt:      utcPtr(model.ConsentCompletedAt),
		SubscriptionActiveUntil: asDatePtr(model.SubscriptionActiveUntil),
		SubscriptionStatus:      subStatus,
		CustomerRef:             model.CustomerRef,
		SubscriptionRef:         model.SubscriptionRef,
		TotalPayments:           model.TotalPayments,
		Version:                 model.Version,
		CreatedAt:               model.CreatedAt.UTC(),
		UpdatedAt:               model.UpdatedAt.UTC(),
	})
}

func MembersToDomain(list []models.MemberModel) ([]*member.Member, error) {
	out := make([]*member.Member, 0, len(list))
	for i := range list {
		m, err := MemberToDomain(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
