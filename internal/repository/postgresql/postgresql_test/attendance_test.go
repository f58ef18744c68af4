package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/cmlabs-hris/timeclock-go/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func newSession(employeeID, restaurantID string, clockIn time.Time) attendance.Session {
	return attendance.Session{
		EmployeeID:       employeeID,
		RestaurantID:     restaurantID,
		Date:             time.Date(clockIn.Year(), clockIn.Month(), clockIn.Day(), 0, 0, 0, 0, time.UTC),
		ClockIn:          clockIn,
		ClockInLatitude:  -6.2,
		ClockInLongitude: 106.8,
		VerifiedLocation: true,
	}
}

func TestSessionRepository_OneOpenSessionPerEmployee(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewSessionRepository(db)

	restaurantID := insertRestaurant(t, db, "Warung Sate", ptr(-6.2), ptr(106.8), ptr(100.0))
	employeeID := newID()

	created, err := repo.Create(ctx, newSession(employeeID, restaurantID, day.Add(9*time.Hour)))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = repo.Create(ctx, newSession(employeeID, restaurantID, day.Add(10*time.Hour)))
	assert.ErrorIs(t, err, attendance.ErrSessionAlreadyOpen)

	// Another employee is unaffected.
	_, err = repo.Create(ctx, newSession(newID(), restaurantID, day.Add(10*time.Hour)))
	assert.NoError(t, err)

	open, err := repo.GetOpenSession(ctx, employeeID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, open.ID)

	clockOut := day.Add(17 * time.Hour)
	reason := attendance.ClockOutReasonManual
	open.ClockOut = &clockOut
	open.ClockOutReason = &reason
	require.NoError(t, repo.Update(ctx, open))

	_, err = repo.GetOpenSession(ctx, employeeID)
	assert.ErrorIs(t, err, attendance.ErrNoOpenSession)

	_, err = repo.Create(ctx, newSession(employeeID, restaurantID, day.Add(24*time.Hour)))
	assert.NoError(t, err)
}

func TestSessionRepository_UpdateMissing(t *testing.T) {
	db := openTestDB(t)
	repo := postgresql.NewSessionRepository(db)

	err := repo.Update(context.Background(), attendance.Session{ID: newID()})
	assert.ErrorIs(t, err, attendance.ErrSessionNotFound)
}

func TestSessionRepository_LatestAndHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewSessionRepository(db)

	restaurantID := insertRestaurant(t, db, "Warung Sate", ptr(-6.2), ptr(106.8), nil)
	employeeID := newID()

	for i := 0; i < 3; i++ {
		s, err := repo.Create(ctx, newSession(employeeID, restaurantID, day.AddDate(0, 0, i).Add(9*time.Hour)))
		require.NoError(t, err)
		out := s.ClockIn.Add(8 * time.Hour)
		s.ClockOut = &out
		require.NoError(t, repo.Update(ctx, s))
	}

	latest, err := repo.GetLatest(ctx, employeeID, day.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.ClockIn.Equal(day.AddDate(0, 0, 2).Add(9*time.Hour)))

	none, err := repo.GetLatest(ctx, employeeID, day.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Nil(t, none)

	page, total, err := repo.List(ctx, employeeID, attendance.HistoryFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.True(t, page[0].ClockIn.After(page[1].ClockIn))
}

func TestSessionRepository_StaleOpenSessions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewSessionRepository(db)

	restaurantID := insertRestaurant(t, db, "Warung Sate", ptr(-6.2), ptr(106.8), nil)
	old, err := repo.Create(ctx, newSession(newID(), restaurantID, day.Add(9*time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newSession(newID(), restaurantID, day.Add(20*time.Hour)))
	require.NoError(t, err)

	stale, err := repo.GetStaleOpenSessions(ctx, day.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}

func TestWithTransaction_RollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewSessionRepository(db)

	restaurantID := insertRestaurant(t, db, "Warung Sate", ptr(-6.2), ptr(106.8), nil)
	employeeID := newID()
	boom := errors.New("boom")

	err := postgresql.WithTransaction(ctx, db, func(ctx context.Context) error {
		if _, err := repo.Create(ctx, newSession(employeeID, restaurantID, day.Add(9*time.Hour))); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetOpenSession(ctx, employeeID)
	assert.ErrorIs(t, err, attendance.ErrNoOpenSession)
}

func TestRestaurantRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewRestaurantRepository(db)

	id := insertRestaurant(t, db, "Warung Sate", nil, nil, nil)

	rest, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	_, ok := rest.Center()
	assert.False(t, ok)

	require.NoError(t, repo.UpdateGeofence(ctx, restaurant.UpdateGeofenceRequest{
		RestaurantID: id, Latitude: -6.2, Longitude: 106.8, RadiusMeters: 60,
	}))
	rest, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	center, ok := rest.Center()
	require.True(t, ok)
	assert.Equal(t, -6.2, center.Latitude)
	assert.Equal(t, 60.0, *rest.RadiusMeters)

	_, err = repo.GetByID(ctx, newID())
	assert.ErrorIs(t, err, restaurant.ErrRestaurantNotFound)
}

func TestShiftRepository_GetNearest(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewShiftRepository(db)

	restaurantID := insertRestaurant(t, db, "Warung Sate", ptr(-6.2), ptr(106.8), nil)
	employeeID := newID()
	morning := insertShift(t, db, employeeID, restaurantID, day.Add(6*time.Hour), day.Add(10*time.Hour))
	evening := insertShift(t, db, employeeID, restaurantID, day.Add(16*time.Hour), day.Add(22*time.Hour))

	s, err := repo.GetNearest(ctx, employeeID, day, day.AddDate(0, 0, 1), day.Add(8*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, morning, s.ID)

	s, err = repo.GetNearest(ctx, employeeID, day, day.AddDate(0, 0, 1), day.Add(14*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, evening, s.ID)

	s, err = repo.GetNearest(ctx, newID(), day, day.AddDate(0, 0, 1), day.Add(8*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, s)
}
