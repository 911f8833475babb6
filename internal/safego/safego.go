// Package safego provides a panic-recovering goroutine launcher for background work.
package safego

import "log/slog"

// Go launches fn in a new goroutine. A panic in fn is recovered and logged
// rather than crashing the process. Every fire-and-forget goroutine in the
// service goes through here (audit writes, pool stats collection, limiter
// cleanup): a request must never be taken down by background work, and a
// panicking background loop should leave evidence instead of dying silently.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "panic", r)
			}
		}()
		fn()
	}()
}
