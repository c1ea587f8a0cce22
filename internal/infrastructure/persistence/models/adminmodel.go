package models

import "time"

type AdminModel struct {
	UserID  int64     `gorm:"primaryKey;autoIncrement:false"`
	Role    string    `gorm:"size:16;not null;default:admin"`
	AddedBy *int64
	AddedAt time.Time `gorm:"not null;index"`
}

func (AdminModel) TableName() string {
	return "admins"
}
