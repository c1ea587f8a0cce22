package models

import "time"

type SupportTicketModel struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      int64  `gorm:"not null;index"`
	Category    string `gorm:"size:16;not null"`
	Description string `gorm:"type:text;not null"`
	Priority    string `gorm:"size:16;not null"`
	// PriorityRank mirrors Priority so triage can ORDER BY it.
	PriorityRank int    `gorm:"not null;index"`
	Status       string `gorm:"size:16;not null;index"`
	ClosedBy     *int64
	ClosedAt     *time.Time
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (SupportTicketModel) TableName() string {
	return "support_tickets"
}
