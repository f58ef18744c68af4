package postgresql_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-go/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL, applies the schema and empties every table.
// Tests are skipped when the variable is not set.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewPostgreSQLDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, postgresql.EnsureSchema(ctx, db))
	_, err = db.Exec(ctx, "TRUNCATE attendance_sessions, shifts, restaurants")
	require.NoError(t, err)
	return db
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func insertRestaurant(t *testing.T, db *database.DB, name string, lat, lon, radius *float64) string {
	t.Helper()
	id := newID()
	_, err := db.Exec(context.Background(),
		`INSERT INTO restaurants (id, name, latitude, longitude, radius_meters, timezone)
		 VALUES ($1, $2, $3, $4, $5, 'UTC')`,
		id, name, lat, lon, radius,
	)
	require.NoError(t, err)
	return id
}

func insertShift(t *testing.T, db *database.DB, employeeID, restaurantID string, start, end time.Time) string {
	t.Helper()
	id := newID()
	_, err := db.Exec(context.Background(),
		`INSERT INTO shifts (id, employee_id, restaurant_id, start_time, end_time) VALUES ($1, $2, $3, $4, $5)`,
		id, employeeID, restaurantID, start, end,
	)
	require.NoError(t, err)
	return id
}

func ptr[T any](v T) *T { return &v }
