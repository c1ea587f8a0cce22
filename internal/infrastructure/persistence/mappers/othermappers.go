package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/domain/audit"
	"github.com/orris-inc/gatekeeper/internal/domain/payment"
	"github.com/orris-inc/gatekeeper/internal/domain/ticket"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/models"
)

func AdminToModel(a *admin.Record) *models.AdminModel {
	return &models.AdminModel{
		UserID:  a.UserID(),
		Role:    a.Role().String(),
		AddedBy: a.AddedBy(),
		AddedAt: a.AddedAt(),
	}
}

func AdminToDomain(model *models.AdminModel) (*admin.Record, error) {
	return admin.ReconstructAdmin(model.UserID, admin.Role(model.Role), model.AddedBy, model.AddedAt.UTC())
}

func PaymentToModel(p *payment.Payment) *models.PaymentModel {
	return &models.PaymentModel{
		ID:                p.ID(),
		UserID:            p.UserID(),
		ProviderPaymentID: p.ProviderPaymentID(),
		AmountCents:       p.AmountCents(),
		Currency:          p.Currency(),
		Status:            string(p.Status()),
		Kind:              string(p.Kind()),
		CreatedAt:         p.CreatedAt(),
	}
}

func PaymentToDomain(model *models.PaymentModel) *payment.Payment {
	return payment.ReconstructPayment(
		model.ID,
		model.UserID,
		model.ProviderPaymentID,
		model.AmountCents,
		model.Currency,
		payment.Status(model.Status),
		payment.Kind(model.Kind),
		model.CreatedAt.UTC(),
	)
}

func AuditToModel(e *audit.Entry) (*models.AuditLogModel, error) {
	var details datatypes.JSON
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal audit details: %w", err)
		}
		details = datatypes.JSON(raw)
	}
	return &models.AuditLogModel{
		UserID:        e.UserID,
		ActorID:       e.ActorID,
		Action:        string(e.Action),
		Success:       e.Success,
		AttemptedCode: e.AttemptedCode,
		Details:       details,
		CreatedAt:     e.CreatedAt,
	}, nil
}

func AuditToDomain(model *models.AuditLogModel) *audit.Entry {
	e := &audit.Entry{
		ID:            model.ID,
		UserID:        model.UserID,
		ActorID:       model.ActorID,
		Action:        audit.Action(model.Action),
		Success:       model.Success,
		AttemptedCode: model.AttemptedCode,
		CreatedAt:     model.CreatedAt.UTC(),
	}
	if len(model.Details) > 0 {
		_ = json.Unmarshal(model.Details, &e.Details)
	}
	return e
}

func TicketToModel(t *ticket.Ticket) *models.SupportTicketModel {
	return &models.SupportTicketModel{
		ID:           t.ID(),
		UserID:       t.UserID(),
		Category:     t.Category().String(),
		Description:  t.Description(),
		Priority:     t.Priority().String(),
		PriorityRank: t.Priority().Rank(),
		Status:       t.Status().String(),
		ClosedBy:     t.ClosedBy(),
		ClosedAt:     t.ClosedAt(),
		CreatedAt:    t.CreatedAt(),
		UpdatedAt:    t.UpdatedAt(),
	}
}

func TicketToDomain(model *models.SupportTicketModel) (*ticket.Ticket, error) {
	return ticket.ReconstructTicket(
		model.ID,
		model.UserID,
		ticket.Category(model.Category),
		model.Description,
		ticket.Priority(model.Priority),
		ticket.Status(model.Status),
		model.ClosedBy,
		utcPtr(model.ClosedAt),
		model.CreatedAt.UTC(),
		model.UpdatedAt.UTC(),
	)
}
