package models

import "time"

// ConfirmedKeyValue marks the single confirmed row of a member. Unconfirmed
// rows carry their consent id instead, so (user_id, confirmed_key) is unique
// only where it has to be.
const ConfirmedKeyValue = "confirmed"

type ConsentRecordModel struct {
	ID               uint      `gorm:"primaryKey"`
	ConsentID        string    `gorm:"size:36;not null;uniqueIndex"`
	UserID           int64     `gorm:"not null;uniqueIndex:idx_consent_user_confirmed,priority:1"`
	ConfirmedKey     string    `gorm:"size:36;not null;uniqueIndex:idx_consent_user_confirmed,priority:2"`
	FullName         string    `gorm:"size:128;not null"`
	BirthDate        time.Time `gorm:"type:date;not null"`
	BirthPlace       string    `gorm:"size:128;not null"`
	ResidenceAddress string    `gorm:"size:255;not null"`
	OTPCode          string    `gorm:"column:otp_code;size:6;not null"`
	OTPGeneratedAt   time.Time `gorm:"column:otp_generated_at;not null"`
	OTPAttempts      int       `gorm:"column:otp_attempts;not null;default:0"`
	IsConfirmed      bool      `gorm:"not null;default:false;index"`
	ConfirmedAt      *time.Time
	DocumentVersion  string `gorm:"size:32;not null"`
	DocumentHash     string `gorm:"size:64;not null"`
	Version          int    `gorm:"not null;default:1"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ConsentRecordModel) TableName() string {
	return "consent_records"
}
