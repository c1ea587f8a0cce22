package consentform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type memoryDraftStore struct {
	drafts map[int64]Draft
}

func newMemoryDraftStore() *memoryDraftStore {
	return &memoryDraftStore{drafts: map[int64]Draft{}}
}

func (s *memoryDraftStore) Get(_ context.Context, userID int64) (*Draft, error) {
	d, ok := s.drafts[userID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *memoryDraftStore) Save(_ context.Context, d *Draft, _ time.Duration) error {
	s.drafts[d.UserID] = *d
	return nil
}

func (s *memoryDraftStore) Delete(_ context.Context, userID int64) error {
	delete(s.drafts, userID)
	return nil
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
}

func TestForm_HappyPath(t *testing.T) {
	ctx := context.Background()
	form := NewForm(newMemoryDraftStore(), 30*time.Minute, fixedClock, logger.NewNop())

	d, err := form.Start(ctx, 501)
	require.NoError(t, err)
	assert.Equal(t, StepFullName, d.Step)

	steps := []struct {
		input string
		next  Step
	}{
		{"  alice   rossi ", StepBirthDate},
		{"15/06/1995", StepBirthPlace},
		{"Milano", StepResidenceAddress},
		{"Via Roma 10, 20100 Milano", StepAcceptance},
	}
	for _, s := range steps {
		d, err = form.Answer(ctx, 501, s.input)
		require.NoError(t, err, s.input)
		assert.Equal(t, s.next, d.Step)
	}

	a, err := form.Anagraphic(d)
	require.NoError(t, err)
	assert.Equal(t, "Alice Rossi", a.FullName)
	assert.Equal(t, time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC), a.BirthDate)
	assert.Equal(t, "Milano", a.BirthPlace)
}

func TestForm_InvalidAnswerKeepsStep(t *testing.T) {
	ctx := context.Background()
	store := newMemoryDraftStore()
	form := NewForm(store, time.Minute, fixedClock, logger.NewNop())

	_, err := form.Start(ctx, 7)
	require.NoError(t, err)
	_, err = form.Answer(ctx, 7, "Mario Bianchi")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{"bad format", "1995-06-15"},
		{"underage", "16/06/2008"},
		{"future", "01/01/2030"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := form.Answer(ctx, 7, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, consent.ErrInvalidAnagraphic)
			assert.Equal(t, StepBirthDate, d.Step)
		})
	}

	stored, err := form.Current(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StepBirthDate, stored.Step)
	assert.Empty(t, stored.BirthDate)
}

func TestForm_NoDraft(t *testing.T) {
	form := NewForm(newMemoryDraftStore(), time.Minute, fixedClock, logger.NewNop())

	_, err := form.Answer(context.Background(), 1, "anything")
	assert.ErrorIs(t, err, ErrNoDraft)

	_, err = form.Anagraphic(&Draft{Step: StepBirthPlace})
	assert.ErrorIs(t, err, ErrFormIncomplete)
}

func TestForm_Cancel(t *testing.T) {
	ctx := context.Background()
	form := NewForm(newMemoryDraftStore(), time.Minute, fixedClock, logger.NewNop())

	_, err := form.Start(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, form.Cancel(ctx, 3))

	_, err = form.Current(ctx, 3)
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestForm_AnagraphicRejectsTamperedDraft(t *testing.T) {
	form := NewForm(newMemoryDraftStore(), time.Minute, fixedClock, logger.NewNop())

	valid := Draft{
		UserID:           9,
		Step:             StepAcceptance,
		FullName:         "Alice Rossi",
		BirthDate:        "1995-06-15",
		BirthPlace:       "Milano",
		ResidenceAddress: "Via Roma 10, 20100 Milano",
	}

	tests := []struct {
		name   string
		mutate func(d *Draft)
	}{
		{"name with digits", func(d *Draft) { d.FullName = "R2 D2" }},
		{"display formatted date", func(d *Draft) { d.BirthDate = "15/06/1995" }},
		{"missing place", func(d *Draft) { d.BirthPlace = "" }},
		{"short address", func(d *Draft) { d.ResidenceAddress = "Roma" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			_, err := form.Anagraphic(&d)
			assert.ErrorIs(t, err, consent.ErrInvalidAnagraphic)
		})
	}

	_, err := form.Anagraphic(&valid)
	assert.NoError(t, err)
}
