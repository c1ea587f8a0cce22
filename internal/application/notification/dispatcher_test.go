package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

func TestInlineDispatcher_DeliversAndSwallowsErrors(t *testing.T) {
	rec := &Recorder{}
	d := NewInlineDispatcher(rec, logger.NewNop())

	d.Dispatch("decision", func(ctx context.Context, n Notifier) error {
		return n.NotifyDecision(ctx, DecisionCommand{UserID: 1, Decision: DecisionApproved})
	})
	d.Dispatch("failing", func(ctx context.Context, n Notifier) error {
		return errors.New("telegram down")
	})

	got := rec.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, DecisionCommand{UserID: 1, Decision: DecisionApproved}, got[0])
}

func TestDispatcher_Async(t *testing.T) {
	rec := &Recorder{}
	d := NewDispatcher(rec, logger.NewNop())

	d.Dispatch("ticket", func(ctx context.Context, n Notifier) error {
		return n.NotifyTicketOpened(ctx, TicketOpenedCommand{TicketID: 3})
	})

	assert.Eventually(t, func() bool { return len(rec.Snapshot()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestDispatcher_PanicIsContained(t *testing.T) {
	d := NewDispatcher(&Recorder{}, logger.NewNop())
	done := make(chan struct{})

	d.Dispatch("panics", func(ctx context.Context, n Notifier) error {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch did not run")
	}
}

func TestDispatcher_NilSafe(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() {
		d.Dispatch("noop", func(ctx context.Context, n Notifier) error { return nil })
	})
}
