package member

import "fmt"

// RequestStatus is the outcome of the access-request step.
type RequestStatus string

const (
	RequestStatusNone     RequestStatus = "none"
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusRejected RequestStatus = "rejected"
)

var validRequestStatuses = map[RequestStatus]bool{
	RequestStatusNone:     true,
	RequestStatusPending:  true,
	RequestStatusRejected: true,
}

func (s RequestStatus) String() string {
	return string(s)
}

func (s RequestStatus) IsValid() bool {
	return validRequestStatuses[s]
}

func NewRequestStatus(s string) (RequestStatus, error) {
	if s == "" {
		return RequestStatusNone, nil
	}
	rs := RequestStatus(s)
	if !rs.IsValid() {
		return "", fmt.Errorf("invalid request status: %s", s)
	}
	return rs, nil
}

// SubscriptionStatus is ledger bookkeeping. Whether a member counts as
// subscribed is decided only by the active-until date.
type SubscriptionStatus string

const (
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

var validSubscriptionStatuses = map[SubscriptionStatus]bool{
	SubscriptionInactive:  true,
	SubscriptionActive:    true,
	SubscriptionExpired:   true,
	SubscriptionCancelled: true,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsValid() bool {
	return validSubscriptionStatuses[s]
}

func NewSubscriptionStatus(s string) (SubscriptionStatus, error) {
	if s == "" {
		return SubscriptionInactive, nil
	}
	ss := SubscriptionStatus(s)
	if !ss.IsValid() {
		return "", fmt.Errorf("invalid subscription status: %s", s)
	}
	return ss, nil
}
