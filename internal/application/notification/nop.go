package notification

import "context"

// NopNotifier drops every notification.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) NotifyAccessRequested(context.Context, AccessRequestedCommand) error {
	return nil
}

func (NopNotifier) NotifyDecision(context.Context, DecisionCommand) error {
	return nil
}

func (NopNotifier) NotifyConsentConfirmed(context.Context, ConsentConfirmedCommand) error {
	return nil
}

func (NopNotifier) NotifySubscription(context.Context, SubscriptionCommand) error {
	return nil
}

func (NopNotifier) NotifyJoinDeclined(context.Context, JoinDeclinedCommand) error {
	return nil
}

func (NopNotifier) NotifyTicketOpened(context.Context, TicketOpenedCommand) error {
	return nil
}
