package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLogModel struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        int64  `gorm:"not null;index"`
	ActorID       *int64
	Action        string `gorm:"size:48;not null;index"`
	Success       bool   `gorm:"not null"`
	AttemptedCode string `gorm:"size:16"`
	Details       datatypes.JSON
	CreatedAt     time.Time `gorm:"not null;index"`
}

func (AuditLogModel) TableName() string {
	return "audit_log"
}
