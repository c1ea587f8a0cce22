package member

import (
	"fmt"
	"strings"
	"time"
)

// Member is one user identity known to the bot. Its stage is derived from
// the flags below and is never stored.
type Member struct {
	userID                  int64
	username                string
	firstName               string
	lastName                string
	requestStatus           RequestStatus
	requestedAt             *time.Time
	approved                bool
	approvedAt              *time.Time
	approvedBy              *int64
	rejectedAt              *time.Time
	rejectedBy              *int64
	consentCompleted        bool
	consentCompletedAt      *time.Time
	subscriptionActiveUntil *time.Time
	subscriptionStatus      SubscriptionStatus
	customerRef             string
	subscriptionRef         string
	totalPayments           int
	version                 int
	createdAt               time.Time
	updatedAt               time.Time
}

func NewMember(userID int64, username, firstName, lastName string, now time.Time) (*Member, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	return &Member{
		userID:             userID,
		username:           strings.TrimPrefix(strings.TrimSpace(username), "@"),
		firstName:          strings.TrimSpace(firstName),
		lastName:           strings.TrimSpace(lastName),
		requestStatus:      RequestStatusNone,
		subscriptionStatus: SubscriptionInactive,
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// ReconstructParams carries persisted member columns back into the aggregate.
type ReconstructParams struct {
	UserID                  int64
	Username                string
	FirstName               string
	LastName                string
	RequestStatus           RequestStatus
	RequestedAt             *time.Time
	Approved                bool
	ApprovedAt              *time.Time
	ApprovedBy              *int64
	RejectedAt              *time.Time
	RejectedBy              *int64
	ConsentCompleted        bool
	ConsentCompletedAt      *time.Time
	SubscriptionActiveUntil *time.Time
	SubscriptionStatus      SubscriptionStatus
	CustomerRef             string
	SubscriptionRef         string
	TotalPayments           int
	Version                 int
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func ReconstructMember(p ReconstructParams) (*Member, error) {
	if p.UserID <= 0 {
		return nil, ErrInvalidUserID
	}
	if !p.RequestStatus.IsValid() {
		return nil, fmt.Errorf("invalid request status: %s", p.RequestStatus)
	}
	if !p.SubscriptionStatus.IsValid() {
		return nil, fmt.Errorf("invalid subscription status: %s", p.SubscriptionStatus)
	}
	return &Member{
		userID:                  p.UserID,
		username:                p.Username,
		firstName:               p.FirstName,
		lastName:                p.LastName,
		requestStatus:           p.RequestStatus,
		requestedAt:             p.RequestedAt,
		approved:                p.Approved,
		approvedAt:              p.ApprovedAt,
		approvedBy:              p.ApprovedBy,
		rejectedAt:              p.RejectedAt,
		rejectedBy:              p.RejectedBy,
		consentCompleted:        p.ConsentCompleted,
		consentCompletedAt:      p.ConsentCompletedAt,
		subscriptionActiveUntil: p.SubscriptionActiveUntil,
		subscriptionStatus:      p.SubscriptionStatus,
		customerRef:             p.CustomerRef,
		subscriptionRef:         p.SubscriptionRef,
		totalPayments:           p.TotalPayments,
		version:                 p.Version,
		createdAt:               p.CreatedAt,
		updatedAt:               p.UpdatedAt,
	}, nil
}

func (m *Member) UserID() int64 {
	return m.userID
}

func (m *Member) Username() string {
	return m.username
}

func (m *Member) FirstName() string {
	return m.firstName
}

func (m *Member) LastName() string {
	return m.lastName
}

func (m *Member) RequestStatus() RequestStatus {
	return m.requestStatus
}

func (m *Member) RequestedAt() *time.Time {
	return m.requestedAt
}

func (m *Member) Approved() bool {
	return m.approved
}

func (m *Member) ApprovedAt() *time.Time {
	return m.approvedAt
}

func (m *Member) ApprovedBy() *int64 {
	return m.approvedBy
}

func (m *Member) RejectedAt() *time.Time {
	return m.rejectedAt
}

func (m *Member) RejectedBy() *int64 {
	return m.rejectedBy
}

func (m *Member) ConsentCompleted() bool {
	return m.consentCompleted
}

func (m *Member) ConsentCompletedAt() *time.Time {
	return m.consentCompletedAt
}

func (m *Member) SubscriptionActiveUntil() *time.Time {
	return m.subscriptionActiveUntil
}

func (m *Member) SubscriptionStatus() SubscriptionStatus {
	return m.subscriptionStatus
}

func (m *Member) CustomerRef() string {
	return m.customerRef
}

func (m *Member) SubscriptionRef() string {
	return m.subscriptionRef
}

func (m *Member) TotalPayments() int {
	return m.totalPayments
}

func (m *Member) Version() int {
	return m.version
}

func (m *Member) CreatedAt() time.Time {
	return m.createdAt
}

func (m *Member) UpdatedAt() time.Time {
	return m.updatedAt
}

// DisplayName prefers the first name, then @username, then the numeric id.
func (m *Member) DisplayName() string {
	full := strings.TrimSpace(m.firstName + " " + m.lastName)
	switch {
	case full != "":
		return full
	case m.username != "":
		return "@" + m.username
	default:
		return fmt.Sprintf("%d", m.userID)
	}
}

// CanSubscribe gates the start of a payment checkout.
func (m *Member) CanSubscribe() bool {
	return m.approved && m.consentCompleted
}

// IsSubscriptionActive compares dates only: a subscription is active through
// the whole of its last day.
func (m *Member) IsSubscriptionActive(today time.Time) bool {
	return m.subscriptionActiveUntil != nil && !m.subscriptionActiveUntil.Before(today)
}

// UpdateProfile refreshes display fields. It reports whether anything changed.
func (m *Member) UpdateProfile(username, firstName, lastName string, now time.Time) bool {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if username == m.username && firstName == m.firstName && lastName == m.lastName {
		return false
	}
	m.username = username
	m.firstName = firstName
	m.lastName = lastName
	m.updatedAt = now
	return true
}

func (m *Member) touch(now time.Time) {
	m.updatedAt = now
	m.version++
}

func (m *Member) RequestAccess(from Stage, now time.Time) error {
	if err := CheckTransition(TransitionRequestAccess, from); err != nil {
		return err
	}
	m.requestStatus = RequestStatusPending
	m.approved = false
	m.requestedAt = &now
	m.touch(now)
	return nil
}

func (m *Member) Approve(from Stage, adminID int64, now time.Time) error {
	if err := CheckTransition(TransitionApprove, from); err != nil {
		return err
	}
	m.approved = true
	m.requestStatus = RequestStatusNone
	m.approvedAt = &now
	m.approvedBy = &adminID
	m.rejectedAt = nil
	m.rejectedBy = nil
	m.touch(now)
	return nil
}

// Reject also revokes an approval whose consent was not completed yet, so
// approved and a rejected request status never coexist.
func (m *Member) Reject(from Stage, adminID int64, now time.Time) error {
	if err := CheckTransition(TransitionReject, from); err != nil {
		return err
	}
	m.requestStatus = RequestStatusRejected
	m.approved = false
	m.approvedAt = nil
	m.approvedBy = nil
	m.rejectedAt = &now
	m.rejectedBy = &adminID
	m.touch(now)
	return nil
}

// Reconsider returns a rejected member to stage new so they may ask again.
func (m *Member) Reconsider(from Stage, now time.Time) error {
	if err := CheckTransition(TransitionReconsider, from); err != nil {
		return err
	}
	m.requestStatus = RequestStatusNone
	m.approved = false
	m.touch(now)
	return nil
}

// CompleteConsent is applied in the same transaction that confirms the
// consent record.
func (m *Member) CompleteConsent(from Stage, now time.Time) error {
	if err := CheckTransition(TransitionConfirmConsent, from); err != nil {
		return err
	}
	if !m.approved {
		return &TransitionError{Transition: TransitionConfirmConsent, From: from}
	}
	m.consentCompleted = true
	m.consentCompletedAt = &now
	m.touch(now)
	return nil
}

// ActivateSubscription is driven by a verified payment event. Eligibility is
// not re-checked: the payment provider is the source of truth.
func (m *Member) ActivateSubscription(activeUntil time.Time, customerRef, subscriptionRef string, now time.Time) {
	m.subscriptionActiveUntil = &activeUntil
	m.subscriptionStatus = SubscriptionActive
	if customerRef != "" {
		m.customerRef = customerRef
	}
	if subscriptionRef != "" {
		m.subscriptionRef = subscriptionRef
	}
	m.totalPayments++
	m.touch(now)
}

// ExpireSubscription moves a lapsed member out of active bookkeeping. Approval
// and consent stay untouched so the member can renew directly. It reports
// false when the member was not active or is still within the paid period.
func (m *Member) ExpireSubscription(today, now time.Time) bool {
	if m.subscriptionStatus != SubscriptionActive && m.subscriptionStatus != SubscriptionCancelled {
		return false
	}
	if m.IsSubscriptionActive(today) {
		return false
	}
	m.subscriptionStatus = SubscriptionExpired
	m.touch(now)
	return true
}

// CancelSubscription records that the provider will not renew. The paid
// period is honoured until its end date.
func (m *Member) CancelSubscription(now time.Time) bool {
	if m.subscriptionStatus != SubscriptionActive {
		return false
	}
	m.subscriptionStatus = SubscriptionCancelled
	m.touch(now)
	return true
}
