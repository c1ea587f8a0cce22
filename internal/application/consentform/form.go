package consentform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/utils"
)

var (
	ErrNoDraft        = errors.New("no consent form in progress")
	ErrNotAtStep      = errors.New("consent form is not at this step")
	ErrFormIncomplete = errors.New("consent form is incomplete")
)

type Form struct {
	store  DraftStore
	ttl    time.Duration
	clock  biztime.Clock
	logger logger.Interface
}

func NewForm(store DraftStore, ttl time.Duration, clock biztime.Clock, logger logger.Interface) *Form {
	if clock == nil {
		clock = biztime.NowUTC
	}
	return &Form{store: store, ttl: ttl, clock: clock, logger: logger}
}

// Start discards any previous draft and opens a new one at the first step.
func (f *Form) Start(ctx context.Context, userID int64) (*Draft, error) {
	d := &Draft{UserID: userID, Step: StepFullName, StartedAt: f.clock()}
	if err := f.store.Save(ctx, d, f.ttl); err != nil {
		return nil, fmt.Errorf("failed to start consent form: %w", err)
	}
	f.logger.Debugw("consent form started", "user_id", userID)
	return d, nil
}

// Current returns the draft in progress or ErrNoDraft.
func (f *Form) Current(ctx context.Context, userID int64) (*Draft, error) {
	d, err := f.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load consent form: %w", err)
	}
	if d == nil {
		return nil, ErrNoDraft
	}
	return d, nil
}

// Answer validates input for the current step and advances the draft. An
// invalid answer returns a *consent.FieldError and leaves the draft unchanged.
func (f *Form) Answer(ctx context.Context, userID int64, input string) (*Draft, error) {
	d, err := f.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	input = strings.TrimSpace(input)

	switch d.Step {
	case StepFullName:
		if err := consent.ValidateFullName(input); err != nil {
			return d, err
		}
		d.FullName = consent.NormalizeFullName(input)
	case StepBirthDate:
		birth, err := biztime.ParseDisplayDate(input)
		if err != nil {
			return d, &consent.FieldError{Field: consent.FieldBirthDate, Reason: "use the DD/MM/YYYY format"}
		}
		if err := consent.ValidateBirthDate(birth, biztime.DateOf(f.clock())); err != nil {
			return d, err
		}
		d.BirthDate = birth.Format(biztime.ISODateLayout)
	case StepBirthPlace:
		if err := consent.ValidateBirthPlace(input); err != nil {
			return d, err
		}
		d.BirthPlace = input
	case StepResidenceAddress:
		if err := consent.ValidateResidenceAddress(input); err != nil {
			return d, err
		}
		d.ResidenceAddress = input
	default:
		return d, ErrNotAtStep
	}

	d.Step = d.Step.next()
	if err := f.store.Save(ctx, d, f.ttl); err != nil {
		return nil, fmt.Errorf("failed to save consent form: %w", err)
	}
	return d, nil
}

// Anagraphic turns a completed draft into validated domain data.
func (f *Form) Anagraphic(d *Draft) (consent.Anagraphic, error) {
	if d == nil || d.Step != StepAcceptance {
		return consent.Anagraphic{}, ErrFormIncomplete
	}
	// drafts round-trip through redis, so the stored answers are checked again
	if err := utils.ValidateStruct(d); err != nil {
		f.logger.Warnw("consent draft failed validation", "user_id", d.UserID, "error", err)
		return consent.Anagraphic{}, &consent.FieldError{Field: "form", Reason: "the saved answers are not valid, please start again"}
	}
	birth, err := biztime.ParseISODate(d.BirthDate)
	if err != nil {
		return consent.Anagraphic{}, &consent.FieldError{Field: consent.FieldBirthDate, Reason: "invalid date"}
	}
	return consent.NewAnagraphic(d.FullName, birth, d.BirthPlace, d.ResidenceAddress, biztime.DateOf(f.clock()))
}

func (f *Form) Cancel(ctx context.Context, userID int64) error {
	if err := f.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to discard consent form: %w", err)
	}
	return nil
}
