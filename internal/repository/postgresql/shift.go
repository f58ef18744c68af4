package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/shift"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type shiftRepository struct {
	db *database.DB
}

func NewShiftRepository(db *database.DB) shift.ShiftRepository {
	return &shiftRepository{db: db}
}

// GetNearest implements shift.ShiftRepository.
func (r *shiftRepository) GetNearest(ctx context.Context, employeeID string, from, to, at time.Time) (*shift.Shift, error) {
	q := GetQuerier(ctx, r.db)

	// A shift containing at sorts first, then the closest start.
	query := `
		SELECT id, employee_id, restaurant_id, start_time, end_time, created_at, updated_at
		FROM shifts
		WHERE employee_id = $1
		  AND start_time <= $3
		  AND end_time >= $2
		ORDER BY ($4::timestamptz BETWEEN start_time AND end_time) DESC,
		         abs(extract(epoch FROM start_time - $4::timestamptz))
		LIMIT 1
	`

	var s shift.Shift
	err := q.QueryRow(ctx, query, employeeID, from, to, at).Scan(
		&s.ID, &s.EmployeeID, &s.RestaurantID, &s.StartTime, &s.EndTime, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}

	return &s, nil
}
