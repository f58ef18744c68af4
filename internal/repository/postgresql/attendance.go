package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type sessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) attendance.SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `
	id, employee_id, restaurant_id, date, clock_in, clock_out,
	clock_in_latitude, clock_in_longitude, clock_in_accuracy,
	clock_out_latitude, clock_out_longitude, clock_out_accuracy, clock_out_reason,
	is_break, break_start, break_end, verified_location,
	created_at, updated_at`

func scanSession(row pgx.Row) (attendance.Session, error) {
	var s attendance.Session
	err := row.Scan(
		&s.ID, &s.EmployeeID, &s.RestaurantID, &s.Date, &s.ClockIn, &s.ClockOut,
		&s.ClockInLatitude, &s.ClockInLongitude, &s.ClockInAccuracy,
		&s.ClockOutLatitude, &s.ClockOutLongitude, &s.ClockOutAccuracy, &s.ClockOutReason,
		&s.IsBreak, &s.BreakStart, &s.BreakEnd, &s.VerifiedLocation,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// Create implements attendance.SessionRepository.
func (r *sessionRepository) Create(ctx context.Context, session attendance.Session) (attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	if session.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Session{}, fmt.Errorf("generate session id: %w", err)
		}
		session.ID = id.String()
	}

	query := `
		INSERT INTO attendance_sessions (
			id, employee_id, restaurant_id, date, clock_in,
			clock_in_latitude, clock_in_longitude, clock_in_accuracy, verified_location
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		session.ID,
		session.EmployeeID,
		session.RestaurantID,
		session.Date,
		session.ClockIn,
		session.ClockInLatitude,
		session.ClockInLongitude,
		session.ClockInAccuracy,
		session.VerifiedLocation,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		if database.IsUniqueViolation(err, openSessionIndex) {
			return attendance.Session{}, attendance.ErrSessionAlreadyOpen
		}
		return attendance.Session{}, fmt.Errorf("failed to create attendance session: %w", err)
	}

	return session, nil
}

// GetOpenSession implements attendance.SessionRepository.
func (r *sessionRepository) GetOpenSession(ctx context.Context, employeeID string) (attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE employee_id = $1
		  AND clock_out IS NULL
		LIMIT 1
		FOR UPDATE
	`

	session, err := scanSession(q.QueryRow(ctx, query, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Session{}, attendance.ErrNoOpenSession
		}
		return attendance.Session{}, fmt.Errorf("failed to get open session: %w", err)
	}

	return session, nil
}

// GetLatest implements attendance.SessionRepository.
func (r *sessionRepository) GetLatest(ctx context.Context, employeeID string, since time.Time) (*attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	// An open session always wins, even if it started before since.
	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE employee_id = $1
		  AND (clock_out IS NULL OR clock_in >= $2)
		ORDER BY (clock_out IS NULL) DESC, clock_in DESC
		LIMIT 1
	`

	session, err := scanSession(q.QueryRow(ctx, query, employeeID, since))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest session: %w", err)
	}

	return &session, nil
}

// Update implements attendance.SessionRepository.
func (r *sessionRepository) Update(ctx context.Context, session attendance.Session) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_sessions SET
			clock_out = $2,
			clock_out_latitude = $3,
			clock_out_longitude = $4,
			clock_out_accuracy = $5,
			clock_out_reason = $6,
			is_break = $7,
			break_start = $8,
			break_end = $9,
			updated_at = now()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		session.ID,
		session.ClockOut,
		session.ClockOutLatitude,
		session.ClockOutLongitude,
		session.ClockOutAccuracy,
		session.ClockOutReason,
		session.IsBreak,
		session.BreakStart,
		session.BreakEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrSessionNotFound
	}

	return nil
}

// List implements attendance.SessionRepository.
func (r *sessionRepository) List(ctx context.Context, employeeID string, filter attendance.HistoryFilter) ([]attendance.Session, int64, error) {
	q := GetQuerier(ctx, r.db)

	var total int64
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM attendance_sessions WHERE employee_id = $1`,
		employeeID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance sessions: %w", err)
	}

	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE employee_id = $1
		ORDER BY clock_in DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, employeeID, filter.Limit, (filter.Page-1)*filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]attendance.Session, 0, filter.Limit)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendance sessions: %w", err)
	}

	return sessions, total, nil
}

// GetStaleOpenSessions implements attendance.SessionRepository.
func (r *sessionRepository) GetStaleOpenSessions(ctx context.Context, cutoff time.Time) ([]attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE clock_out IS NULL
		  AND clock_in < $1
		ORDER BY clock_in
	`

	rows, err := q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []attendance.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}
