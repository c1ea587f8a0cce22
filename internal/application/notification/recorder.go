package notification

import (
	"context"
	"sync"
)

// Recorder keeps every command it receives. Tests use it with an inline
// dispatcher to assert what a use case announced.
type Recorder struct {
	mu       sync.Mutex
	Commands []any
}

var _ Notifier = (*Recorder)(nil)

func (r *Recorder) add(cmd any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Commands = append(r.Commands, cmd)
	return nil
}

func (r *Recorder) NotifyAccessRequested(_ context.Context, cmd AccessRequestedCommand) error {
	return r.add(cmd)
}

func (r *Recorder) NotifyDecision(_ context.Context, cmd DecisionCommand) error {
	return r.add(cmd)
}

func (r *Recorder) NotifyConsentConfirmed(_ context.Context, cmd ConsentConfirmedCommand) error {
	return r.add(cmd)
}

func (r *Recorder) NotifySubscription(_ context.Context, cmd SubscriptionCommand) error {
	return r.add(cmd)
}

func (r *Recorder) NotifyJoinDeclined(_ context.Context, cmd JoinDeclinedCommand) error {
	return r.add(cmd)
}

func (r *Recorder) NotifyTicketOpened(_ context.Context, cmd TicketOpenedCommand) error {
	return r.add(cmd)
}

// Snapshot returns a copy of the recorded commands.
func (r *Recorder) Snapshot() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.Commands))
	copy(out, r.Commands)
	return out
}
