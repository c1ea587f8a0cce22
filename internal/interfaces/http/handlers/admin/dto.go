package admin

import (
	"time"

	adminDomain "github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/domain/ticket"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
)

type MemberResponse struct {
	UserID                  int64      `json:"user_id"`
	Username                string     `json:"username,omitempty"`
	DisplayName             string     `json:"display_name"`
	Stage                   string     `json:"stage"`
	RequestStatus           string     `json:"request_status"`
	RequestedAt             *time.Time `json:"requested_at,omitempty"`
	ApprovedAt              *time.Time `json:"approved_at,omitempty"`
	ApprovedBy              *int64     `json:"approved_by,omitempty"`
	RejectedAt              *time.Time `json:"rejected_at,omitempty"`
	RejectedBy              *int64     `json:"rejected_by,omitempty"`
	ConsentCompletedAt      *time.Time `json:"consent_completed_at,omitempty"`
	SubscriptionActiveUntil string     `json:"subscription_active_until,omitempty"`
	SubscriptionStatus      string     `json:"subscription_status"`
	TotalPayments           int        `json:"total_payments"`
	CreatedAt               time.Time  `json:"created_at"`
}

func toMemberResponse(m *member.Member, stage member.Stage) MemberResponse {
	resp := MemberResponse{
		UserID:             m.UserID(),
		Username:           m.Username(),
		DisplayName:        m.DisplayName(),
		Stage:              string(stage),
		RequestStatus:      m.RequestStatus().String(),
		RequestedAt:        m.RequestedAt(),
		ApprovedAt:         m.ApprovedAt(),
		ApprovedBy:         m.ApprovedBy(),
		RejectedAt:         m.RejectedAt(),
		RejectedBy:         m.RejectedBy(),
		ConsentCompletedAt: m.ConsentCompletedAt(),
		SubscriptionStatus: m.SubscriptionStatus().String(),
		TotalPayments:      m.TotalPayments(),
		CreatedAt:          m.CreatedAt(),
	}
	if until := m.SubscriptionActiveUntil(); until != nil {
		resp.SubscriptionActiveUntil = until.Format(biztime.ISODateLayout)
	}
	return resp
}

type AdminResponse struct {
	UserID  int64     `json:"user_id"`
	Role    string    `json:"role"`
	AddedBy *int64    `json:"added_by,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

func toAdminResponse(r *adminDomain.Record) AdminResponse {
	return AdminResponse{
		UserID:  r.UserID(),
		Role:    r.Role().String(),
		AddedBy: r.AddedBy(),
		AddedAt: r.AddedAt(),
	}
}

type TicketResponse struct {
	ID          uint       `json:"id"`
	UserID      int64      `json:"user_id"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	ClosedBy    *int64     `json:"closed_by,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toTicketResponse(t *ticket.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID(),
		UserID:      t.UserID(),
		Category:    t.Category().String(),
		Description: t.Description(),
		Priority:    t.Priority().String(),
		Status:      t.Status().String(),
		ClosedBy:    t.ClosedBy(),
		ClosedAt:    t.ClosedAt(),
		CreatedAt:   t.CreatedAt(),
	}
}
