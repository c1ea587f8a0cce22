package member

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
	testToday = time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
)

func newTestMember(t *testing.T) *Member {
	t.Helper()
	m, err := NewMember(501, "@alice", "Alice", "Rossi", testNow)
	require.NoError(t, err)
	return m
}

func datePtr(d time.Time) *time.Time {
	return &d
}

func reconstruct(t *testing.T, p ReconstructParams) *Member {
	t.Helper()
	if p.UserID == 0 {
		p.UserID = 501
	}
	if p.RequestStatus == "" {
		p.RequestStatus = RequestStatusNone
	}
	if p.SubscriptionStatus == "" {
		p.SubscriptionStatus = SubscriptionInactive
	}
	if p.Version == 0 {
		p.Version = 1
	}
	m, err := ReconstructMember(p)
	require.NoError(t, err)
	return m
}

func TestNewMember(t *testing.T) {
	m := newTestMember(t)
	assert.Equal(t, int64(501), m.UserID())
	assert.Equal(t, "alice", m.Username())
	assert.Equal(t, RequestStatusNone, m.RequestStatus())
	assert.Equal(t, SubscriptionInactive, m.SubscriptionStatus())
	assert.Equal(t, 1, m.Version())
	assert.Equal(t, StageNew, DeriveStage(m, false, testToday))

	_, err := NewMember(0, "x", "", "", testNow)
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestDeriveStage_Table(t *testing.T) {
	yesterday := testToday.AddDate(0, 0, -1)

	tests := []struct {
		name    string
		params  ReconstructParams
		pending bool
		want    Stage
	}{
		{"fresh member", ReconstructParams{}, false, StageNew},
		{"pending request", ReconstructParams{RequestStatus: RequestStatusPending}, false, StagePending},
		{"rejected request", ReconstructParams{RequestStatus: RequestStatusRejected}, false, StageRejected},
		{"approved without consent", ReconstructParams{Approved: true}, false, StageAwaitingConsent},
		{"approved with unconfirmed consent", ReconstructParams{Approved: true}, true, StageConsentPendingOTP},
		{"consented never paid", ReconstructParams{Approved: true, ConsentCompleted: true}, false, StageApprovedNotSubscribed},
		{"consented expired yesterday", ReconstructParams{Approved: true, ConsentCompleted: true, SubscriptionActiveUntil: datePtr(yesterday)}, false, StageApprovedNotSubscribed},
		{"consented active through today", ReconstructParams{Approved: true, ConsentCompleted: true, SubscriptionActiveUntil: datePtr(testToday)}, false, StageSubscribed},
		{"pending wins over approval flags", ReconstructParams{RequestStatus: RequestStatusPending, Approved: true}, true, StagePending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := reconstruct(t, tt.params)
			assert.Equal(t, tt.want, DeriveStage(m, tt.pending, testToday))
		})
	}
}

func TestDeriveStage_TotalAndDeterministic(t *testing.T) {
	ends := []*time.Time{nil, datePtr(testToday.AddDate(0, 0, -1)), datePtr(testToday), datePtr(testToday.AddDate(0, 1, 0))}
	statuses := []RequestStatus{RequestStatusNone, RequestStatusPending, RequestStatusRejected}

	seen := map[Stage]bool{}
	for _, rs := range statuses {
		for _, approved := range []bool{false, true} {
			for _, consent := range []bool{false, true} {
				for _, pending := range []bool{false, true} {
					for _, end := range ends {
						m := reconstruct(t, ReconstructParams{
							RequestStatus:           rs,
							Approved:                approved,
							ConsentCompleted:        consent,
							SubscriptionActiveUntil: end,
						})
						first := DeriveStage(m, pending, testToday)
						second := DeriveStage(m, pending, testToday)
						require.True(t, first.IsValid(), "undefined stage %q", first)
						require.Equal(t, first, second)
						seen[first] = true
					}
				}
			}
		}
	}
	assert.Len(t, seen, len(AllStages()))
	assert.Equal(t, StageNew, DeriveStage(nil, true, testToday))
}

func TestCheckTransition(t *testing.T) {
	for _, tr := range []Transition{
		TransitionRequestAccess, TransitionApprove, TransitionReject, TransitionReconsider,
		TransitionSubmitConsent, TransitionRestartConsent, TransitionConfirmConsent,
	} {
		allowed := map[Stage]bool{}
		for _, s := range AllowedFrom(tr) {
			allowed[s] = true
		}
		for _, s := range AllStages() {
			err := CheckTransition(tr, s)
			if allowed[s] {
				assert.NoError(t, err, "%s from %s", tr, s)
				continue
			}
			require.Error(t, err, "%s from %s", tr, s)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, s, te.From)
		}
	}
}

func TestMember_AdmissionFlow(t *testing.T) {
	m := newTestMember(t)

	require.NoError(t, m.RequestAccess(StageNew, testNow))
	assert.Equal(t, StagePending, DeriveStage(m, false, testToday))
	assert.Equal(t, 2, m.Version())

	require.NoError(t, m.Approve(StagePending, 1, testNow))
	assert.Equal(t, StageAwaitingConsent, DeriveStage(m, false, testToday))
	require.NotNil(t, m.ApprovedBy())
	assert.Equal(t, int64(1), *m.ApprovedBy())

	require.NoError(t, m.CompleteConsent(StageConsentPendingOTP, testNow))
	assert.Equal(t, StageApprovedNotSubscribed, DeriveStage(m, false, testToday))
	assert.True(t, m.CanSubscribe())

	m.ActivateSubscription(testToday.AddDate(0, 0, 30), "cus_1", "sub_1", testNow)
	assert.Equal(t, StageSubscribed, DeriveStage(m, false, testToday))
	assert.Equal(t, 1, m.TotalPayments())
	assert.Equal(t, "cus_1", m.CustomerRef())
}

func TestMember_ApproveThenRejectEndsRejected(t *testing.T) {
	m := newTestMember(t)
	require.NoError(t, m.RequestAccess(StageNew, testNow))
	require.NoError(t, m.Approve(StagePending, 1, testNow))

	require.NoError(t, m.Reject(DeriveStage(m, false, testToday), 2, testNow))

	assert.Equal(t, StageRejected, DeriveStage(m, false, testToday))
	assert.False(t, m.Approved())
	assert.Nil(t, m.ApprovedBy())
	assert.Equal(t, RequestStatusRejected, m.RequestStatus())
}

func TestMember_RejectedTransitions(t *testing.T) {
	m := reconstruct(t, ReconstructParams{RequestStatus: RequestStatusRejected})

	err := m.Approve(StageRejected, 1, testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, m.Version(), "refused transition must not mutate")

	err = m.RequestAccess(StageRejected, testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, m.Reconsider(StageRejected, testNow))
	assert.Equal(t, StageNew, DeriveStage(m, false, testToday))
	require.NoError(t, m.RequestAccess(StageNew, testNow))
	assert.Equal(t, StagePending, DeriveStage(m, false, testToday))
}

func TestMember_CompleteConsentRequiresApproval(t *testing.T) {
	m := reconstruct(t, ReconstructParams{})
	err := m.CompleteConsent(StageConsentPendingOTP, testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, m.ConsentCompleted())
}

func TestMember_ExpireKeepsApprovalAndConsent(t *testing.T) {
	m := reconstruct(t, ReconstructParams{
		Approved:                true,
		ConsentCompleted:        true,
		SubscriptionActiveUntil: datePtr(testToday.AddDate(0, 0, -1)),
		SubscriptionStatus:      SubscriptionActive,
		TotalPayments:           1,
	})

	assert.True(t, m.ExpireSubscription(testToday, testNow))
	assert.Equal(t, SubscriptionExpired, m.SubscriptionStatus())
	assert.True(t, m.Approved())
	assert.True(t, m.ConsentCompleted())
	assert.Equal(t, StageApprovedNotSubscribed, DeriveStage(m, false, testToday))

	assert.False(t, m.ExpireSubscription(testToday, testNow), "already expired")
}

func TestMember_ExpireSkipsStillActive(t *testing.T) {
	m := reconstruct(t, ReconstructParams{
		Approved:                true,
		ConsentCompleted:        true,
		SubscriptionActiveUntil: datePtr(testToday),
		SubscriptionStatus:      SubscriptionActive,
	})
	assert.False(t, m.ExpireSubscription(testToday, testNow))
	assert.Equal(t, SubscriptionActive, m.SubscriptionStatus())
}

func TestMember_CancelHonoursPaidPeriod(t *testing.T) {
	end := testToday.AddDate(0, 0, 10)
	m := reconstruct(t, ReconstructParams{
		Approved:                true,
		ConsentCompleted:        true,
		SubscriptionActiveUntil: datePtr(end),
		SubscriptionStatus:      SubscriptionActive,
	})

	assert.True(t, m.CancelSubscription(testNow))
	assert.Equal(t, StageSubscribed, DeriveStage(m, false, testToday))
	assert.True(t, m.ExpireSubscription(end.AddDate(0, 0, 1), testNow))
}

func TestMember_UpdateProfile(t *testing.T) {
	m := newTestMember(t)
	assert.False(t, m.UpdateProfile("alice", "Alice", "Rossi", testNow))
	assert.True(t, m.UpdateProfile("@alice_r", "Alice", "Rossi", testNow))
	assert.Equal(t, "alice_r", m.Username())
	assert.Equal(t, 1, m.Version(), "profile refresh is not a transition")
	assert.Equal(t, "Alice Rossi", m.DisplayName())
}
