package capability

import (
	"context"
	"time"
)

// clockFormat renders timestamps like "Monday, June 09, 2025 at 02:30 PM UTC".
const clockFormat = "Monday, January 02, 2006 at 03:04 PM UTC"

// Clock reports the current UTC date and time. Agents use it to anchor
// "latest"/"recent" phrasing in queries to a concrete date.
type Clock struct {
	now func() time.Time
}

// NewClock creates the clock capability.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt creates a clock pinned to the given time source (used by tests).
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Name implements Capability.
func (c *Clock) Name() string { return "current_datetime" }

// Description implements Capability.
func (c *Clock) Description() string {
	return "Get the current date and time."
}

// Invoke implements Capability. The query is ignored.
func (c *Clock) Invoke(_ context.Context, _ string) (string, error) {
	return "Current date and time: " + c.now().UTC().Format(clockFormat), nil
}
