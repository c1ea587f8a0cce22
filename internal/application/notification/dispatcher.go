// Package notification decouples outbound messages from state changes: a
// transition commits first, then its notification is dispatched and a failed
// delivery never reaches back into the transition.
package notification

import (
	"context"
	"time"

	"github.com/orris-inc/gatekeeper/internal/shared/goroutine"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

const defaultDispatchTimeout = 30 * time.Second

type Dispatcher struct {
	notifier Notifier
	logger   logger.Interface
	timeout  time.Duration
	inline   bool
}

// NewDispatcher delivers on a background goroutine.
func NewDispatcher(notifier Notifier, logger logger.Interface) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger, timeout: defaultDispatchTimeout}
}

// NewInlineDispatcher delivers on the caller's goroutine. Used by the CLI,
// where the process exits right after the command, and by tests.
func NewInlineDispatcher(notifier Notifier, logger logger.Interface) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger, timeout: defaultDispatchTimeout, inline: true}
}

// Dispatch runs fn against the notifier. Errors are logged and dropped.
func (d *Dispatcher) Dispatch(name string, fn func(ctx context.Context, n Notifier) error) {
	if d == nil || d.notifier == nil {
		return
	}
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := fn(ctx, d.notifier); err != nil {
			d.logger.Warnw("notification failed", "notification", name, "error", err)
		}
	}
	if d.inline {
		run()
		return
	}
	goroutine.SafeGo(d.logger, "notify:"+name, run)
}
