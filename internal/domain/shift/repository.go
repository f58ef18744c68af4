package shift

import (
	"context"
	"time"
)

type ShiftRepository interface {
	// GetNearest returns the employee's shift overlapping [from, to] whose start is
	// closest to at, or nil when there is none.
	GetNearest(ctx context.Context, employeeID string, from, to, at time.Time) (*Shift, error)
}
