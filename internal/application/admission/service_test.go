package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/gatekeeper/internal/application/accessgate"
	"github.com/orris-inc/gatekeeper/internal/application/ledger"
	"github.com/orris-inc/gatekeeper/internal/application/notification"
	"github.com/orris-inc/gatekeeper/internal/application/otp"
	"github.com/orris-inc/gatekeeper/internal/application/roster"
	"github.com/orris-inc/gatekeeper/internal/domain/audit"
	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/database/sqlitetest"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/permission"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/repository"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

const (
	alice   = int64(501)
	bob     = int64(1)
	mallory = int64(777)
)

type harness struct {
	svc      *Service
	gate     *accessgate.Gate
	ledger   *ledger.Ledger
	members  member.Repository
	consents consent.Repository
	audit    audit.Repository
	recorder *notification.Recorder
	now      time.Time
}

type fakeCooldown struct {
	allow bool
	err   error
	calls int
}

func (f *fakeCooldown) Acquire(context.Context, int64, time.Duration) (bool, error) {
	f.calls++
	return f.allow, f.err
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gdb := sqlitetest.Open(t)
	log := logger.NewNop()
	h := &harness{
		members:  repository.NewMemberRepository(gdb, log),
		consents: repository.NewConsentRepository(gdb, log),
		audit:    repository.NewAuditRepository(gdb),
		recorder: &notification.Recorder{},
		now:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	tm := db.NewTransactionManager(gdb)
	notify := notification.NewInlineDispatcher(h.recorder, log)

	enforcer, err := permission.NewEnforcer(log)
	require.NoError(t, err)
	rosterSvc := roster.NewService(repository.NewAdminRepository(gdb, log), []int64{bob}, enforcer, h.audit, clock, log)

	engine := otp.NewEngine(tm, h.consents, h.audit,
		otp.Config{Policy: consent.DefaultPolicy(), DocumentVersion: "2026-01"}, log).WithClock(clock)

	h.svc = NewService(tm, h.members, h.consents, h.audit, rosterSvc, engine, notify, log).WithClock(clock)
	h.gate = accessgate.NewGate(h.svc, log)
	h.ledger = ledger.NewLedger(tm, h.members,
		repository.NewPaymentRepository(gdb, log), repository.NewPaymentEventLog(gdb),
		h.audit, notify, 30, "eur", log).WithClock(clock)
	return h
}

func (h *harness) stage(t *testing.T, userID int64) member.Stage {
	t.Helper()
	stage, err := h.svc.Stage(context.Background(), userID)
	require.NoError(t, err)
	return stage
}

func adult() consent.Anagraphic {
	return consent.Anagraphic{
		FullName:         "Alice Rossi",
		BirthDate:        time.Date(1996, 1, 15, 0, 0, 0, 0, time.UTC),
		BirthPlace:       "Bologna",
		ResidenceAddress: "Via Roma 12, 40121 Bologna",
	}
}

// toAwaitingConsent registers Alice and has Bob approve her.
func (h *harness) toAwaitingConsent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.EnsureMember(ctx, Profile{UserID: alice, Username: "alice", FirstName: "Alice"})
	require.NoError(t, err)
	_, err = h.svc.RequestAccess(ctx, alice)
	require.NoError(t, err)
	_, err = h.svc.Approve(ctx, alice, bob)
	require.NoError(t, err)
}

// toApprovedNotSubscribed also runs the consent signature.
func (h *harness) toApprovedNotSubscribed(t *testing.T) {
	t.Helper()
	h.toAwaitingConsent(t)
	ctx := context.Background()
	_, code, err := h.svc.SubmitConsent(ctx, alice, adult())
	require.NoError(t, err)
	_, err = h.svc.ConfirmConsent(ctx, alice, code)
	require.NoError(t, err)
}

func TestScenarioA_RequestApproveConsent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.Equal(t, member.StageNew, h.stage(t, alice))

	_, err := h.svc.EnsureMember(ctx, Profile{UserID: alice, Username: "alice", FirstName: "Alice"})
	require.NoError(t, err)
	_, err = h.svc.RequestAccess(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, member.StagePending, h.stage(t, alice))

	_, err = h.svc.Approve(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, member.StageAwaitingConsent, h.stage(t, alice))

	rec, code, err := h.svc.SubmitConsent(ctx, alice, adult())
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, code)
	assert.False(t, rec.IsConfirmed())
	assert.Equal(t, member.StageConsentPendingOTP, h.stage(t, alice))

	st, err := h.svc.Status(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, st.Pending)
	assert.Equal(t, rec.ConsentID(), st.Pending.ConsentID())

	confirmed, err := h.svc.ConfirmConsent(ctx, alice, code)
	require.NoError(t, err)
	assert.True(t, confirmed.IsConfirmed())
	assert.Equal(t, member.StageApprovedNotSubscribed, h.stage(t, alice))

	m, err := h.svc.Member(ctx, alice)
	require.NoError(t, err)
	assert.True(t, m.ConsentCompleted())
	assert.True(t, m.CanSubscribe())

	var kinds []string
	for _, cmd := range h.recorder.Snapshot() {
		switch c := cmd.(type) {
		case notification.AccessRequestedCommand:
			kinds = append(kinds, "access_requested")
		case notification.DecisionCommand:
			kinds = append(kinds, "decision_"+string(c.Decision))
		case notification.ConsentConfirmedCommand:
			kinds = append(kinds, "consent_confirmed")
			assert.Equal(t, "2026-01", c.DocumentVersion)
		}
	}
	assert.Equal(t, []string{"access_requested", "decision_approved", "consent_confirmed"}, kinds)
}

func TestScenarioB_PaymentGrantsAccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toApprovedNotSubscribed(t)

	res, err := h.ledger.RecordActivation(ctx, ledger.Activation{
		Event:       ledger.Event{ID: "evt_checkout_1", Type: "checkout.session.completed"},
		UserID:      alice,
		CustomerRef: "cus_alice",
		PaymentRef:  "cs_1",
		AmountCents: 1500,
	})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, member.StageSubscribed, h.stage(t, alice))

	decision, err := h.gate.Decide(ctx, alice)
	require.NoError(t, err)
	assert.True(t, decision.Approve)
	assert.Empty(t, decision.Reason)

	again, err := h.ledger.RecordActivation(ctx, ledger.Activation{
		Event:  ledger.Event{ID: "evt_checkout_1", Type: "checkout.session.completed"},
		UserID: alice,
	})
	require.NoError(t, err)
	assert.True(t, again.Duplicate)

	m, err := h.svc.Member(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalPayments())
}

func TestScenarioC_ExpirySweepKeepsApprovalAndConsent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toApprovedNotSubscribed(t)

	_, err := h.ledger.RecordActivation(ctx, ledger.Activation{
		Event:  ledger.Event{ID: "evt_checkout_2", Type: "checkout.session.completed"},
		UserID: alice,
	})
	require.NoError(t, err)

	// paid through 2026-04-09; the sweep runs the day after
	h.now = h.now.AddDate(0, 0, 31)

	expired, err := h.ledger.SweepExpired(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, alice, expired[0].UserID())

	assert.Equal(t, member.StageApprovedNotSubscribed, h.stage(t, alice))
	m, err := h.svc.Member(ctx, alice)
	require.NoError(t, err)
	assert.True(t, m.Approved())
	assert.True(t, m.ConsentCompleted())

	decision, err := h.gate.Decide(ctx, alice)
	require.NoError(t, err)
	assert.False(t, decision.Approve)
	assert.Equal(t, accessgate.ReasonPayment, decision.Reason)

	again, err := h.ledger.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestScenarioD_UnderageSubmissionWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toAwaitingConsent(t)

	minor := adult()
	minor.BirthDate = time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := h.svc.SubmitConsent(ctx, alice, minor)
	require.Error(t, err)
	assert.ErrorIs(t, err, consent.ErrInvalidAnagraphic)
	var fe *consent.FieldError
	require.True(t, errors.As(err, &fe))

	assert.Equal(t, member.StageAwaitingConsent, h.stage(t, alice))
	pending, err := h.consents.HasPending(ctx, alice)
	require.NoError(t, err)
	assert.False(t, pending)

	entries, err := h.audit.ListByUser(ctx, alice, 50)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, audit.ActionOTPIssue, e.Action)
	}
}

func TestScenarioE_NonAdminCannotDecide(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.EnsureMember(ctx, Profile{UserID: alice, Username: "alice"})
	require.NoError(t, err)
	_, err = h.svc.RequestAccess(ctx, alice)
	require.NoError(t, err)
	before := len(h.recorder.Snapshot())

	_, err = h.svc.Approve(ctx, alice, mallory)
	assert.ErrorIs(t, err, roster.ErrNotAuthorized)
	_, err = h.svc.Reject(ctx, alice, mallory)
	assert.ErrorIs(t, err, roster.ErrNotAuthorized)

	assert.Equal(t, member.StagePending, h.stage(t, alice))
	assert.Len(t, h.recorder.Snapshot(), before, "denied decisions notify nobody")
}

func TestApproveThenReject_EndsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toAwaitingConsent(t)

	_, err := h.svc.Reject(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, member.StageRejected, h.stage(t, alice))

	m, err := h.svc.Member(ctx, alice)
	require.NoError(t, err)
	assert.False(t, m.Approved())
	assert.Equal(t, member.RequestStatusRejected, m.RequestStatus())

	decision, err := h.gate.Decide(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, accessgate.ReasonDenied, decision.Reason)
}

func TestReject_PurgesPendingConsent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toAwaitingConsent(t)

	_, _, err := h.svc.SubmitConsent(ctx, alice, adult())
	require.NoError(t, err)

	_, err = h.svc.Reject(ctx, alice, bob)
	require.NoError(t, err)

	pending, err := h.consents.HasPending(ctx, alice)
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, member.StageRejected, h.stage(t, alice))
}

func TestInvalidTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Approve(ctx, alice, bob)
	assert.ErrorIs(t, err, member.ErrMemberNotFound)

	_, err = h.svc.EnsureMember(ctx, Profile{UserID: alice, Username: "alice"})
	require.NoError(t, err)

	_, err = h.svc.Approve(ctx, alice, bob)
	assert.ErrorIs(t, err, member.ErrInvalidTransition, "approve needs a pending request")

	_, err = h.svc.RequestAccess(ctx, alice)
	require.NoError(t, err)
	_, err = h.svc.RequestAccess(ctx, alice)
	assert.ErrorIs(t, err, member.ErrInvalidTransition)

	_, _, err = h.svc.SubmitConsent(ctx, alice, adult())
	assert.ErrorIs(t, err, member.ErrInvalidTransition, "consent needs approval first")

	_, err = h.svc.Approve(ctx, alice, bob)
	require.NoError(t, err)
	_, err = h.svc.Approve(ctx, alice, bob)
	assert.ErrorIs(t, err, member.ErrInvalidTransition, "second approval fails cleanly")
	assert.Equal(t, member.StageAwaitingConsent, h.stage(t, alice))
}

func TestRequestAccess_RegistersUnknownUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	m, err := h.svc.RequestAccess(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, alice, m.UserID())
	assert.Equal(t, member.RequestStatusPending, m.RequestStatus())
	assert.Equal(t, member.StagePending, h.stage(t, alice))

	stored, err := h.members.GetByID(ctx, alice)
	require.NoError(t, err)
	assert.True(t, h.now.Equal(stored.CreatedAt()))

	cmds := h.recorder.Snapshot()
	require.Len(t, cmds, 1)
	assert.IsType(t, notification.AccessRequestedCommand{}, cmds[0])

	// a later profile refresh keeps the request
	_, err = h.svc.EnsureMember(ctx, Profile{UserID: alice, Username: "alice", FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, member.StagePending, h.stage(t, alice))
}

func TestReconsider_ReturnsToNew(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.EnsureMember(ctx, Profile{UserID: alice, Username: "alice"})
	require.NoError(t, err)
	_, err = h.svc.RequestAccess(ctx, alice)
	require.NoError(t, err)
	_, err = h.svc.Reject(ctx, alice, bob)
	require.NoError(t, err)

	_, err = h.svc.Reconsider(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, member.StageNew, h.stage(t, alice))

	_, err = h.svc.RequestAccess(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, member.StagePending, h.stage(t, alice))
}

func TestConfirmConsent_SecondVerifyHasNoPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toAwaitingConsent(t)

	_, code, err := h.svc.SubmitConsent(ctx, alice, adult())
	require.NoError(t, err)
	_, err = h.svc.ConfirmConsent(ctx, alice, code)
	require.NoError(t, err)

	_, err = h.svc.ConfirmConsent(ctx, alice, code)
	assert.ErrorIs(t, err, consent.ErrNoPendingConsent)
	assert.Equal(t, member.StageApprovedNotSubscribed, h.stage(t, alice))
}

func TestRegenerateAfterExhaustion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toAwaitingConsent(t)

	rec, code, err := h.svc.SubmitConsent(ctx, alice, adult())
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < 5; i++ {
		_, err = h.svc.ConfirmConsent(ctx, alice, wrong)
		assert.ErrorIs(t, err, consent.ErrWrongCode)
	}
	_, err = h.svc.ConfirmConsent(ctx, alice, code)
	assert.ErrorIs(t, err, consent.ErrTooManyAttempts)
	assert.Equal(t, member.StageConsentPendingOTP, h.stage(t, alice))

	regenerated, fresh, err := h.svc.RegenerateCode(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, rec.ConsentID(), regenerated.ConsentID())
	assert.Zero(t, regenerated.OTPAttempts())

	_, err = h.svc.ConfirmConsent(ctx, alice, fresh)
	require.NoError(t, err)
	assert.Equal(t, member.StageApprovedNotSubscribed, h.stage(t, alice))
}

func TestRegenerateCode_Cooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toAwaitingConsent(t)

	cd := &fakeCooldown{allow: false}
	h.svc.WithCooldown(cd, time.Minute)

	_, _, err := h.svc.RegenerateCode(ctx, alice)
	assert.ErrorIs(t, err, consent.ErrNoPendingConsent)
	assert.Zero(t, cd.calls, "no cooldown is spent without a pending code")

	_, _, err = h.svc.SubmitConsent(ctx, alice, adult())
	require.NoError(t, err)

	_, _, err = h.svc.RegenerateCode(ctx, alice)
	assert.ErrorIs(t, err, ErrCooldown)

	cd.allow, cd.err = false, errors.New("redis down")
	_, _, err = h.svc.RegenerateCode(ctx, alice)
	assert.NoError(t, err, "an unavailable cooldown store does not block the member")
}

func TestRestartConsent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toAwaitingConsent(t)

	assert.ErrorIs(t, h.svc.RestartConsent(ctx, alice), member.ErrInvalidTransition)

	_, _, err := h.svc.SubmitConsent(ctx, alice, adult())
	require.NoError(t, err)
	require.NoError(t, h.svc.RestartConsent(ctx, alice))
	assert.Equal(t, member.StageAwaitingConsent, h.stage(t, alice))
}

func TestEnsureMember_RefreshesProfileOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toAwaitingConsent(t)

	m, err := h.svc.EnsureMember(ctx, Profile{UserID: alice, Username: "alice_r", FirstName: "Alice", LastName: "Rossi"})
	require.NoError(t, err)
	assert.Equal(t, "alice_r", m.Username())
	assert.True(t, m.Approved())

	found, err := h.svc.ResolveUsername(ctx, "ALICE_R")
	require.NoError(t, err)
	assert.Equal(t, alice, found.UserID())
}
