package otp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/gatekeeper/internal/domain/audit"
	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/database/sqlitetest"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/repository"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

const userID = int64(501)

type fixture struct {
	engine   *Engine
	consents consent.Repository
	audit    audit.Repository
	now      time.Time
	codes    []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := sqlitetest.Open(t)
	f := &fixture{
		consents: repository.NewConsentRepository(gdb, logger.NewNop()),
		audit:    repository.NewAuditRepository(gdb),
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		codes:    []string{"123456", "654321", "000042"},
	}
	f.engine = NewEngine(
		db.NewTransactionManager(gdb),
		f.consents,
		f.audit,
		Config{Policy: consent.DefaultPolicy(), DocumentVersion: "v1"},
		logger.NewNop(),
	).WithClock(func() time.Time { return f.now }).WithCodeGenerator(func() (string, error) {
		code := f.codes[0]
		f.codes = f.codes[1:]
		return code, nil
	})
	return f
}

func anagraphic() consent.Anagraphic {
	return consent.Anagraphic{
		FullName:         "Alice Rossi",
		BirthDate:        time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC),
		BirthPlace:       "Bologna",
		ResidenceAddress: "Via Roma 12, Bologna",
	}
}

func (f *fixture) actions(t *testing.T) []audit.Action {
	t.Helper()
	entries, err := f.audit.ListByUser(context.Background(), userID, 100)
	require.NoError(t, err)
	out := make([]audit.Action, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func TestEngine_IssueAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, code, err := f.engine.Issue(ctx, userID, anagraphic())
	require.NoError(t, err)
	assert.Equal(t, "123456", code)
	assert.Equal(t, "v1", rec.DocumentVersion())
	assert.Equal(t, f.now.Add(10*time.Minute), f.engine.ExpiresAt(rec))

	var hooked string
	confirmed, err := f.engine.Verify(ctx, userID, "123456", func(_ context.Context, r *consent.Record) error {
		hooked = r.ConsentID()
		return nil
	})
	require.NoError(t, err)
	assert.True(t, confirmed.IsConfirmed())
	assert.Equal(t, rec.ConsentID(), hooked)

	stored, err := f.consents.GetConfirmed(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, rec.ConsentID(), stored.ConsentID())
	assert.Equal(t, 1, stored.OTPAttempts())

	assert.ElementsMatch(t, []audit.Action{audit.ActionOTPIssue, audit.ActionOTPVerify}, f.actions(t))
}

func TestEngine_WrongCodesExhaustAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.Issue(ctx, userID, anagraphic())
	require.NoError(t, err)

	for i := 4; i >= 0; i-- {
		_, err := f.engine.Verify(ctx, userID, "999999", nil)
		var wrong *consent.WrongCodeError
		require.True(t, errors.As(err, &wrong), "attempt %d: %v", 5-i, err)
		assert.Equal(t, i, wrong.Remaining)
	}

	// The right code no longer helps once the attempts are spent.
	_, err = f.engine.Verify(ctx, userID, "123456", nil)
	assert.ErrorIs(t, err, consent.ErrTooManyAttempts)

	pending, err := f.consents.GetPending(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, pending.OTPAttempts())
	assert.False(t, pending.IsConfirmed())

	// issue + 6 verifications, all committed despite the failures
	assert.Len(t, f.actions(t), 7)
}

func TestEngine_LongInputIsAuditedWholeRunes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.Issue(ctx, userID, anagraphic())
	require.NoError(t, err)

	input := strings.Repeat("é", 17)
	_, err = f.engine.Verify(ctx, userID, input, nil)
	var wrong *consent.WrongCodeError
	require.True(t, errors.As(err, &wrong), "%v", err)
	assert.Equal(t, 4, wrong.Remaining)

	pending, err := f.consents.GetPending(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, pending.OTPAttempts())

	entries, err := f.audit.ListByUser(ctx, userID, 100)
	require.NoError(t, err)
	var attempted []string
	for _, e := range entries {
		if e.Action == audit.ActionOTPVerify {
			attempted = append(attempted, e.AttemptedCode)
		}
	}
	require.Len(t, attempted, 1)
	assert.Equal(t, strings.Repeat("é", 16), attempted[0])
	assert.True(t, utf8.ValidString(attempted[0]))
}

func TestEngine_ExpiredCodeDoesNotConsumeAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.Issue(ctx, userID, anagraphic())
	require.NoError(t, err)

	f.now = f.now.Add(10*time.Minute + time.Second)
	_, err = f.engine.Verify(ctx, userID, "123456", nil)
	assert.ErrorIs(t, err, consent.ErrExpired)

	pending, err := f.consents.GetPending(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, pending.OTPAttempts())
}

func TestEngine_CodeValidAtExactTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.Issue(ctx, userID, anagraphic())
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Minute)
	_, err = f.engine.Verify(ctx, userID, "123456", nil)
	assert.NoError(t, err)
}

func TestEngine_RegenerateKeepsConsentID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, _, err := f.engine.Issue(ctx, userID, anagraphic())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, _ = f.engine.Verify(ctx, userID, "111111", nil)
	}

	f.now = f.now.Add(20 * time.Minute)
	regen, code, err := f.engine.Regenerate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "654321", code)
	assert.Equal(t, rec.ConsentID(), regen.ConsentID())
	assert.Equal(t, rec.DocumentHash(), regen.DocumentHash())
	assert.Equal(t, 0, regen.OTPAttempts())

	// The superseded code is dead.
	_, err = f.engine.Verify(ctx, userID, "123456", nil)
	assert.ErrorIs(t, err, consent.ErrWrongCode)

	_, err = f.engine.Verify(ctx, userID, "654321", nil)
	assert.NoError(t, err)
}

func TestEngine_IssueSupersedesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _, err := f.engine.Issue(ctx, userID, anagraphic())
	require.NoError(t, err)
	second, _, err := f.engine.Issue(ctx, userID, anagraphic())
	require.NoError(t, err)
	assert.NotEqual(t, first.ConsentID(), second.ConsentID())

	pending, err := f.consents.GetPending(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, second.ConsentID(), pending.ConsentID())

	_, err = f.engine.Verify(ctx, userID, "123456", nil)
	assert.ErrorIs(t, err, consent.ErrWrongCode)
}

func TestEngine_NoPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Verify(ctx, userID, "123456", nil)
	assert.ErrorIs(t, err, consent.ErrNoPendingConsent)

	_, _, err = f.engine.Regenerate(ctx, userID)
	assert.ErrorIs(t, err, consent.ErrNoPendingConsent)
}

func TestEngine_HookFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.Issue(ctx, userID, anagraphic())
	require.NoError(t, err)

	boom := errors.New("member update failed")
	_, err = f.engine.Verify(ctx, userID, "123456", func(context.Context, *consent.Record) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	pending, err := f.consents.GetPending(ctx, userID)
	require.NoError(t, err)
	assert.False(t, pending.IsConfirmed())
	assert.Equal(t, 0, pending.OTPAttempts())
}
