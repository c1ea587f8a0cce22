// Package consentform drives the multi-step anagraphic form a member fills in
// before the consent record exists. Drafts are ephemeral and never persisted
// to the database.
package consentform

import (
	"context"
	"time"
)

type Step string

const (
	StepFullName         Step = "full_name"
	StepBirthDate        Step = "birth_date"
	StepBirthPlace       Step = "birth_place"
	StepResidenceAddress Step = "residence_address"
	StepAcceptance       Step = "acceptance"
)

var stepOrder = []Step{StepFullName, StepBirthDate, StepBirthPlace, StepResidenceAddress, StepAcceptance}

func (s Step) next() Step {
	for i, st := range stepOrder {
		if st == s && i+1 < len(stepOrder) {
			return stepOrder[i+1]
		}
	}
	return s
}

// Draft holds the answers collected so far. BirthDate is ISO formatted.
type Draft struct {
	UserID           int64     `json:"user_id"`
	Step             Step      `json:"step"`
	FullName         string    `json:"full_name,omitempty" validate:"required,max=120,personname"`
	BirthDate        string    `json:"birth_date,omitempty" validate:"required,datetime=2006-01-02"`
	BirthPlace       string    `json:"birth_place,omitempty" validate:"required,min=2,max=120"`
	ResidenceAddress string    `json:"residence_address,omitempty" validate:"required,min=10,max=250"`
	StartedAt        time.Time `json:"started_at"`
}

// DraftStore keeps drafts with a TTL. Get returns nil, nil when none exists.
type DraftStore interface {
	Get(ctx context.Context, userID int64) (*Draft, error)
	Save(ctx context.Context, d *Draft, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error
}
