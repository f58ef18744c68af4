package attendance

import (
	"context"
	"time"
)

// SessionRepository defines data access methods for attendance sessions.
type SessionRepository interface {
	// Create inserts a new open session. Returns ErrSessionAlreadyOpen when the
	// employee already has one.
	Create(ctx context.Context, session Session) (Session, error)

	// GetOpenSession returns ErrNoOpenSession when the employee has none.
	GetOpenSession(ctx context.Context, employeeID string) (Session, error)

	// GetLatest returns the most recent session, open or closed, clocked in at or after since.
	GetLatest(ctx context.Context, employeeID string, since time.Time) (*Session, error)

	Update(ctx context.Context, session Session) error

	List(ctx context.Context, employeeID string, filter HistoryFilter) ([]Session, int64, error)

	// GetStaleOpenSessions returns open sessions clocked in before cutoff.
	GetStaleOpenSessions(ctx context.Context, cutoff time.Time) ([]Session, error)
}
