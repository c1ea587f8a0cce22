package models

import "time"

// MemberModel stores admission flags. The stage is derived, never stored.
type MemberModel struct {
	UserID                  int64      `gorm:"primaryKey;autoIncrement:false"`
	Username                string     `gorm:"size:64"`
	UsernameLower           string     `gorm:"size:64;index"`
	FirstName               string     `gorm:"size:128"`
	LastName                string     `gorm:"size:128"`
	RequestStatus           string     `gorm:"size:16;not null;default:none;index"`
	RequestedAt             *time.Time
	Approved                bool       `gorm:"not null;default:false;index"`
	ApprovedAt              *time.Time
	ApprovedBy              *int64
	RejectedAt              *time.Time
	RejectedBy              *int64
	ConsentCompleted        bool       `gorm:"not null;default:false"`
	ConsentCompletedAt      *time.Time
	SubscriptionActiveUntil *time.Time `gorm:"type:date;index"`
	SubscriptionStatus      string     `gorm:"size:16;not null;default:inactive;index"`
	CustomerRef             string     `gorm:"size:128;index"`
	SubscriptionRef         string     `gorm:"size:128"`
	TotalPayments           int        `gorm:"not null;default:0"`
	Version                 int        `gorm:"not null;default:1"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (MemberModel) TableName() string {
	return "members"
}
