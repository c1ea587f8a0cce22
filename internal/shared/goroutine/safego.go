// Package goroutine launches background work that must not take the process down.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// SafeGo runs fn on a new goroutine and logs, rather than propagates, a panic.
// Notification dispatch after a committed transition goes through here.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer recoverAndLog(log, name)
		fn()
	}()
}

func recoverAndLog(log logger.Interface, name string) {
	if r := recover(); r != nil {
		log.Errorw("goroutine panicked",
			"goroutine", name,
			"panic", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)
	}
}
