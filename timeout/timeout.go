// Package timeout holds the per-request time budget shared by every downstream settings lookup.
package timeout

import (
	"context"
	"fmt"
	"time"

	"github.com/prebid/prebid-server-core/errortypes"
	"github.com/prebid/prebid-server-core/util/timeutil"
)

// Timeout is an immutable deadline derived once per incoming request.
//
// Sub-budgets for downstream calls are created with Derive or Minus. Neither of them ever
// moves the deadline later, so nested calls still respect the request SLA.
type Timeout struct {
	deadline time.Time
	clock    timeutil.Time
}

// Deadline returns the absolute instant at which the budget expires.
func (t Timeout) Deadline() time.Time {
	return t.deadline
}

// Remaining returns the time left until the deadline, clamped at zero.
func (t Timeout) Remaining() time.Duration {
	remaining := t.deadline.Sub(t.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired returns true once no time is left.
func (t Timeout) Expired() bool {
	return t.Remaining() <= 0
}

// Derive returns a budget for a sub-call with the same deadline.
func (t Timeout) Derive() Timeout {
	return Timeout{deadline: t.deadline, clock: t.clock}
}

// Minus returns a budget whose deadline is the given amount earlier.
// Negative amounts are ignored.
func (t Timeout) Minus(amount time.Duration) Timeout {
	if amount < 0 {
		amount = 0
	}
	return Timeout{deadline: t.deadline.Add(-amount), clock: t.clock}
}

// Check returns a Timeout error if the budget has expired.
func (t Timeout) Check() error {
	if t.Expired() {
		return &errortypes.Timeout{
			Message: fmt.Sprintf("Timeout has been exceeded (deadline %s)", t.deadline.Format(time.RFC3339Nano)),
		}
	}
	return nil
}

// Context returns a context which is cancelled when the budget's deadline passes.
func (t Timeout) Context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithDeadline(parent, t.deadline)
}

func (t Timeout) now() time.Time {
	if t.clock == nil {
		return time.Now()
	}
	return t.clock.Now()
}

// Factory creates Timeouts against a clock.
type Factory struct {
	clock timeutil.Time
}

// NewFactory returns a Factory. A nil clock reads the wall clock.
func NewFactory(clock timeutil.Time) *Factory {
	if clock == nil {
		clock = timeutil.RealTime{}
	}
	return &Factory{clock: clock}
}

// Create returns a Timeout which expires the given duration from now.
func (f *Factory) Create(timeout time.Duration) Timeout {
	return f.CreateFrom(f.clock.Now(), timeout)
}

// CreateFrom returns a Timeout which expires the given duration after start.
// Useful when the request arrived some time before processing began.
func (f *Factory) CreateFrom(start time.Time, timeout time.Duration) Timeout {
	return Timeout{deadline: start.Add(timeout), clock: f.clock}
}
