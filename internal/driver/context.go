// internal/driver/context.go
package driver

import (
	"context"
	"errors"
	"time"
)

// CombineContext returns a context that carries the values of session (the
// context that owns the browser connection) and is canceled when either
// session or op is done. Backends use it so a per-call deadline can bound a
// command without losing the connection state stored on the session context.
func CombineContext(session, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(session)
	if deadline, ok := op.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combined, cancelDeadline = context.WithDeadline(combined, deadline)
		prev := cancel
		cancel = func() {
			cancelDeadline()
			prev()
		}
	}
	// An expired op deadline is left to the combined timer, which carries the
	// same deadline, so callers see DeadlineExceeded rather than Canceled.
	stop := context.AfterFunc(op, func() {
		if errors.Is(op.Err(), context.DeadlineExceeded) {
			return
		}
		cancel()
	})
	return combined, func() {
		stop()
		cancel()
	}
}

type detached struct {
	context.Context
}

func (detached) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detached) Done() <-chan struct{}       { return nil }
func (detached) Err() error                  { return nil }

// Detach keeps the values of ctx but drops its deadline and cancellation.
// Teardown paths use it so cleanup still reaches the browser after the
// caller's context has expired.
func Detach(ctx context.Context) context.Context {
	return detached{ctx}
}
