package consent

import (
	"fmt"
	"time"
)

// Record is a member's signed (or still signing) consent. Once confirmed it
// is immutable.
type Record struct {
	id              uint
	consentID       string
	userID          int64
	anagraphic      Anagraphic
	otpCode         string
	otpGeneratedAt  time.Time
	otpAttempts     int
	isConfirmed     bool
	confirmedAt     *time.Time
	documentVersion string
	documentHash    string
	version         int
	createdAt       time.Time
	updatedAt       time.Time
}

// NewRecord starts an unconfirmed record with a freshly issued code.
func NewRecord(consentID string, userID int64, a Anagraphic, code, documentVersion string, now time.Time) (*Record, error) {
	if consentID == "" {
		return nil, fmt.Errorf("consent id is required")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("user id must be positive")
	}
	if !IsCodeShaped(code) {
		return nil, fmt.Errorf("otp code must be %d digits", CodeLength)
	}
	if documentVersion == "" {
		return nil, fmt.Errorf("document version is required")
	}
	return &Record{
		consentID:       consentID,
		userID:          userID,
		anagraphic:      a,
		otpCode:         code,
		otpGeneratedAt:  now,
		documentVersion: documentVersion,
		documentHash:    Fingerprint(userID, documentVersion, now),
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

type ReconstructParams struct {
	ID              uint
	ConsentID       string
	UserID          int64
	Anagraphic      Anagraphic
	OTPCode         string
	OTPGeneratedAt  time.Time
	OTPAttempts     int
	IsConfirmed     bool
	ConfirmedAt     *time.Time
	DocumentVersion string
	DocumentHash    string
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func ReconstructRecord(p ReconstructParams) (*Record, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("consent record id cannot be zero")
	}
	if p.IsConfirmed && p.ConfirmedAt == nil {
		return nil, fmt.Errorf("confirmed consent record %d has no confirmation time", p.ID)
	}
	return &Record{
		id:              p.ID,
		consentID:       p.ConsentID,
		userID:          p.UserID,
		anagraphic:      p.Anagraphic,
		otpCode:         p.OTPCode,
		otpGeneratedAt:  p.OTPGeneratedAt,
		otpAttempts:     p.OTPAttempts,
		isConfirmed:     p.IsConfirmed,
		confirmedAt:     p.ConfirmedAt,
		documentVersion: p.DocumentVersion,
		documentHash:    p.DocumentHash,
		version:         p.Version,
		createdAt:       p.CreatedAt,
		updatedAt:       p.UpdatedAt,
	}, nil
}

func (r *Record) ID() uint {
	return r.id
}

func (r *Record) ConsentID() string {
	return r.consentID
}

func (r *Record) UserID() int64 {
	return r.userID
}

func (r *Record) Anagraphic() Anagraphic {
	return r.anagraphic
}

func (r *Record) OTPCode() string {
	return r.otpCode
}

func (r *Record) OTPGeneratedAt() time.Time {
	return r.otpGeneratedAt
}

func (r *Record) OTPAttempts() int {
	return r.otpAttempts
}

func (r *Record) IsConfirmed() bool {
	return r.isConfirmed
}

func (r *Record) ConfirmedAt() *time.Time {
	return r.confirmedAt
}

func (r *Record) DocumentVersion() string {
	return r.documentVersion
}

func (r *Record) DocumentHash() string {
	return r.documentHash
}

func (r *Record) Version() int {
	return r.version
}

func (r *Record) CreatedAt() time.Time {
	return r.createdAt
}

func (r *Record) UpdatedAt() time.Time {
	return r.updatedAt
}

func (r *Record) SetID(id uint) error {
	if r.id != 0 {
		return fmt.Errorf("consent record id is already set")
	}
	if id == 0 {
		return fmt.Errorf("consent record id cannot be zero")
	}
	r.id = id
	return nil
}

// IsExpired reports whether the current code is older than ttl at now.
func (r *Record) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.otpGeneratedAt) > ttl
}

// RemainingAttempts never goes below zero.
func (r *Record) RemainingAttempts(p Policy) int {
	if left := p.MaxAttempts - r.otpAttempts; left > 0 {
		return left
	}
	return 0
}

// Verify checks input against the current code. Expiry is checked first, then
// exhaustion, neither of which consumes an attempt. On the compare path the
// attempt counter is incremented whether or not the code matches. A match
// confirms the record.
func (r *Record) Verify(input string, now time.Time, p Policy) error {
	if r.isConfirmed {
		return ErrAlreadyConfirmed
	}
	if r.IsExpired(now, p.TTL) {
		return ErrExpired
	}
	if r.otpAttempts >= p.MaxAttempts {
		return ErrTooManyAttempts
	}

	r.otpAttempts++
	r.updatedAt = now
	r.version++

	if input != r.otpCode {
		return &WrongCodeError{Remaining: r.RemainingAttempts(p)}
	}

	r.isConfirmed = true
	r.confirmedAt = &now
	return nil
}

// Regenerate replaces the code on the same record and restarts its window.
func (r *Record) Regenerate(code string, now time.Time) error {
	if r.isConfirmed {
		return ErrAlreadyConfirmed
	}
	if !IsCodeShaped(code) {
		return fmt.Errorf("otp code must be %d digits", CodeLength)
	}
	r.otpCode = code
	r.otpGeneratedAt = now
	r.otpAttempts = 0
	r.updatedAt = now
	r.version++
	return nil
}
