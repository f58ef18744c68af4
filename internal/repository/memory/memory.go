// Package memory holds map-backed repositories with the same contracts as the
// PostgreSQL ones. Used by tests that exercise services and handlers without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/shift"
	"github.com/google/uuid"
)

type Store struct {
	mu          sync.Mutex
	sessions    map[string]attendance.Session
	restaurants map[string]restaurant.Restaurant
	shifts      []shift.Shift
}

func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]attendance.Session),
		restaurants: make(map[string]restaurant.Restaurant),
	}
}

func (s *Store) PutRestaurant(r restaurant.Restaurant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurants[r.ID] = r
}

func (s *Store) PutShift(sh shift.Shift) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts = append(s.shifts, sh)
}

// Sessions returns every stored session, oldest clock-in first.
func (s *Store) Sessions() []attendance.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked("", false)
}

// WithTx forwards to fn. Each repository call is atomic on its own.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) sortedLocked(employeeID string, newestFirst bool) []attendance.Session {
	out := make([]attendance.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if employeeID == "" || sess.EmployeeID == employeeID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].ClockIn.After(out[j].ClockIn)
		}
		return out[i].ClockIn.Before(out[j].ClockIn)
	})
	return out
}

type sessionRepository struct{ *Store }

func (s *Store) SessionRepository() attendance.SessionRepository { return sessionRepository{s} }

func (r sessionRepository) Create(ctx context.Context, session attendance.Session) (attendance.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sessions {
		if existing.EmployeeID == session.EmployeeID && existing.Open() {
			return attendance.Session{}, attendance.ErrSessionAlreadyOpen
		}
	}
	if session.ID == "" {
		session.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now()
	session.CreatedAt, session.UpdatedAt = now, now
	r.sessions[session.ID] = session
	return session, nil
}

func (r sessionRepository) GetOpenSession(ctx context.Context, employeeID string) (attendance.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sess := range r.sessions {
		if sess.EmployeeID == employeeID && sess.Open() {
			return sess, nil
		}
	}
	return attendance.Session{}, attendance.ErrNoOpenSession
}

func (r sessionRepository) GetLatest(ctx context.Context, employeeID string, since time.Time) (*attendance.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sess := range r.sortedLocked(employeeID, true) {
		if sess.Open() {
			return &sess, nil
		}
	}
	for _, sess := range r.sortedLocked(employeeID, true) {
		if !sess.ClockIn.Before(since) {
			return &sess, nil
		}
	}
	return nil, nil
}

func (r sessionRepository) Update(ctx context.Context, session attendance.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.ID]; !ok {
		return attendance.ErrSessionNotFound
	}
	session.UpdatedAt = time.Now()
	r.sessions[session.ID] = session
	return nil
}

func (r sessionRepository) List(ctx context.Context, employeeID string, filter attendance.HistoryFilter) ([]attendance.Session, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.sortedLocked(employeeID, true)
	start := (filter.Page - 1) * filter.Limit
	if start >= len(all) {
		return []attendance.Session{}, int64(len(all)), nil
	}
	end := min(start+filter.Limit, len(all))
	return all[start:end], int64(len(all)), nil
}

func (r sessionRepository) GetStaleOpenSessions(ctx context.Context, cutoff time.Time) ([]attendance.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []attendance.Session
	for _, sess := range r.sortedLocked("", false) {
		if sess.Open() && sess.ClockIn.Before(cutoff) {
			out = append(out, sess)
		}
	}
	return out, nil
}

type restaurantRepository struct{ *Store }

func (s *Store) RestaurantRepository() restaurant.RestaurantRepository {
	return restaurantRepository{s}
}

func (r restaurantRepository) GetByID(ctx context.Context, id string) (restaurant.Restaurant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rest, ok := r.restaurants[id]
	if !ok {
		return restaurant.Restaurant{}, restaurant.ErrRestaurantNotFound
	}
	return rest, nil
}

func (r restaurantRepository) UpdateGeofence(ctx context.Context, req restaurant.UpdateGeofenceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rest, ok := r.restaurants[req.RestaurantID]
	if !ok {
		return restaurant.ErrRestaurantNotFound
	}
	lat, lon, radius := req.Latitude, req.Longitude, req.RadiusMeters
	rest.Latitude, rest.Longitude, rest.RadiusMeters = &lat, &lon, &radius
	rest.UpdatedAt = time.Now()
	r.restaurants[rest.ID] = rest
	return nil
}

type shiftRepository struct{ *Store }

func (s *Store) ShiftRepository() shift.ShiftRepository { return shiftRepository{s} }

func (r shiftRepository) GetNearest(ctx context.Context, employeeID string, from, to, at time.Time) (*shift.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *shift.Shift
	for i := range r.shifts {
		sh := r.shifts[i]
		if sh.EmployeeID != employeeID || sh.StartTime.After(to) || sh.EndTime.Before(from) {
			continue
		}
		if best == nil || closer(sh, *best, at) {
			best = &sh
		}
	}
	return best, nil
}

// closer orders shifts the same way the SQL query does: containing at first, then
// nearest start.
func closer(a, b shift.Shift, at time.Time) bool {
	if a.Contains(at) != b.Contains(at) {
		return a.Contains(at)
	}
	return absDuration(a.StartTime.Sub(at)) < absDuration(b.StartTime.Sub(at))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
