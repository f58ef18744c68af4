package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/shift"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/geo"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/sse"
)

// TxRunner runs fn in one database transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// SSE event names
const (
	EventClockIn    = "clock_in"
	EventClockOut   = "clock_out"
	EventBreakStart = "break_start"
	EventBreakEnd   = "break_end"
)

type Options struct {
	DefaultRadiusMeters float64
	StaleSessionAfter   time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

type AttendanceServiceImpl struct {
	withTx TxRunner
	attendance.SessionRepository
	restaurant.RestaurantRepository
	shift.ShiftRepository
	hub  *sse.Hub
	opts Options
	now  func() time.Time
}

func NewAttendanceService(
	withTx TxRunner,
	sessionRepo attendance.SessionRepository,
	restaurantRepo restaurant.RestaurantRepository,
	shiftRepo shift.ShiftRepository,
	hub *sse.Hub,
	opts Options,
) *AttendanceServiceImpl {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AttendanceServiceImpl{
		withTx:               withTx,
		SessionRepository:    sessionRepo,
		RestaurantRepository: restaurantRepo,
		ShiftRepository:      shiftRepo,
		hub:                  hub,
		opts:                 opts,
		now:                  now,
	}
}

// fence is the resolved geofence of the caller's restaurant.
type fence struct {
	restaurant restaurant.Restaurant
	center     geo.Point
	radius     float64
}

func (a *AttendanceServiceImpl) identity(ctx context.Context) (jwt.Claims, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return jwt.Claims{}, fmt.Errorf("%w: %v", attendance.ErrMissingIdentity, err)
	}
	return claims, nil
}

func (a *AttendanceServiceImpl) fenceFor(ctx context.Context, restaurantID string) (fence, error) {
	rest, err := a.RestaurantRepository.GetByID(ctx, restaurantID)
	if err != nil {
		return fence{}, err
	}
	center, ok := rest.Center()
	if !ok {
		return fence{}, restaurant.ErrGeofenceNotConfigured
	}
	radius := a.opts.DefaultRadiusMeters
	if rest.RadiusMeters != nil && *rest.RadiusMeters > 0 {
		radius = *rest.RadiusMeters
	}
	return fence{restaurant: rest, center: center, radius: radius}, nil
}

func (f fence) check(lat, lon float64) attendance.VerifyLocationResponse {
	distance := geo.Distance(geo.Point{Latitude: lat, Longitude: lon}, f.center)
	resp := attendance.VerifyLocationResponse{
		WithinRange:    distance <= f.radius,
		DistanceMeters: math.Round(distance*100) / 100,
		RadiusMeters:   f.radius,
	}
	if resp.WithinRange {
		resp.Message = fmt.Sprintf("You are within %s area (%.0f m away)", f.restaurant.Name, distance)
	} else {
		resp.Message = fmt.Sprintf("You are %.0f m away from %s; the allowed radius is %.0f m", distance, f.restaurant.Name, f.radius)
	}
	return resp
}

// dayBounds returns the start and end of the restaurant-local day containing now.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// GetGeofence implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetGeofence(ctx context.Context) (attendance.GeofenceResponse, error) {
	claims, err := a.identity(ctx)
	if err != nil {
		return attendance.GeofenceResponse{}, err
	}

	f, err := a.fenceFor(ctx, claims.RestaurantID)
	if err != nil {
		return attendance.GeofenceResponse{}, err
	}

	resp := attendance.GeofenceResponse{
		RestaurantID:   f.restaurant.ID,
		RestaurantName: f.restaurant.Name,
		Latitude:       f.center.Latitude,
		Longitude:      f.center.Longitude,
	}
	if f.restaurant.RadiusMeters != nil {
		radius := *f.restaurant.RadiusMeters
		resp.Radius = &radius
	}
	return resp, nil
}

// GetShiftWindow implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetShiftWindow(ctx context.Context) (*attendance.ShiftWindowResponse, error) {
	claims, err := a.identity(ctx)
	if err != nil {
		return nil, err
	}

	s, err := a.currentShift(ctx, claims)
	if err != nil || s == nil {
		return nil, err
	}

	return &attendance.ShiftWindowResponse{
		StartTime: s.StartTime.UTC().Format(time.RFC3339),
		EndTime:   s.EndTime.UTC().Format(time.RFC3339),
	}, nil
}

func (a *AttendanceServiceImpl) currentShift(ctx context.Context, claims jwt.Claims) (*shift.Shift, error) {
	rest, err := a.RestaurantRepository.GetByID(ctx, claims.RestaurantID)
	if err != nil {
		return nil, err
	}

	now := a.now()
	from, to := dayBounds(now, rest.Location())
	s, err := a.ShiftRepository.GetNearest(ctx, claims.EmployeeID, from, to, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}
	return s, nil
}

// VerifyLocation implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) VerifyLocation(ctx context.Context, req attendance.VerifyLocationRequest) (attendance.VerifyLocationResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.VerifyLocationResponse{}, err
	}

	claims, err := a.identity(ctx)
	if err != nil {
		return attendance.VerifyLocationResponse{}, err
	}

	f, err := a.fenceFor(ctx, claims.RestaurantID)
	if err != nil {
		return attendance.VerifyLocationResponse{}, err
	}

	return f.check(req.Latitude, req.Longitude), nil
}

// ClockIn implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ClockIn(ctx context.Context, req attendance.ClockInRequest) (attendance.ClockResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.ClockResponse{}, err
	}

	claims, err := a.identity(ctx)
	if err != nil {
		return attendance.ClockResponse{}, err
	}

	f, err := a.fenceFor(ctx, claims.RestaurantID)
	if err != nil {
		return attendance.ClockResponse{}, err
	}

	check := f.check(req.Latitude, req.Longitude)
	if !check.WithinRange {
		return attendance.ClockResponse{}, &attendance.RejectionError{Kind: attendance.ErrOutsideGeofence, Detail: check.Message}
	}

	now := a.now().UTC()

	s, err := a.currentShift(ctx, claims)
	if err != nil {
		return attendance.ClockResponse{}, err
	}
	if s != nil && !s.Contains(now) {
		loc := f.restaurant.Location()
		return attendance.ClockResponse{}, &attendance.RejectionError{
			Kind: attendance.ErrOutsideShift,
			Detail: fmt.Sprintf("Your shift runs from %s to %s",
				s.StartTime.In(loc).Format("15:04"),
				s.EndTime.In(loc).Format("15:04"),
			),
		}
	}

	day, _ := dayBounds(now, f.restaurant.Location())
	session, err := a.SessionRepository.Create(ctx, attendance.Session{
		EmployeeID:       claims.EmployeeID,
		RestaurantID:     claims.RestaurantID,
		Date:             day,
		ClockIn:          now,
		ClockInLatitude:  req.Latitude,
		ClockInLongitude: req.Longitude,
		ClockInAccuracy:  req.Accuracy,
		VerifiedLocation: true,
	})
	if err != nil {
		return attendance.ClockResponse{}, err
	}

	slog.Info("Employee clocked in",
		"employee_id", claims.EmployeeID,
		"restaurant_id", claims.RestaurantID,
		"session_id", session.ID,
		"distance_meters", check.DistanceMeters,
	)

	resp := toSessionResponse(session, now)
	a.publish(claims.EmployeeID, EventClockIn, resp)

	return attendance.ClockResponse{
		Message:     "Clock in successful",
		ClockInTime: &resp.ClockInTime,
		Session:     &resp,
	}, nil
}

// ClockOut implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ClockOut(ctx context.Context, req attendance.ClockOutRequest) (attendance.ClockResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.ClockResponse{}, err
	}

	claims, err := a.identity(ctx)
	if err != nil {
		return attendance.ClockResponse{}, err
	}

	reason := attendance.ClockOutReasonManual
	if req.Auto {
		reason = attendance.ClockOutReasonAutoGeofence
	}

	now := a.now().UTC()
	var session attendance.Session
	err = a.withTx(ctx, func(ctx context.Context) error {
		open, err := a.SessionRepository.GetOpenSession(ctx, claims.EmployeeID)
		if err != nil {
			return err
		}
		closeSession(&open, now, reason)
		open.ClockOutLatitude = req.Latitude
		open.ClockOutLongitude = req.Longitude
		open.ClockOutAccuracy = req.Accuracy

		if err := a.SessionRepository.Update(ctx, open); err != nil {
			return err
		}
		session = open
		return nil
	})
	if err != nil {
		return attendance.ClockResponse{}, err
	}

	slog.Info("Employee clocked out",
		"employee_id", claims.EmployeeID,
		"session_id", session.ID,
		"reason", reason,
	)

	resp := toSessionResponse(session, now)
	a.publish(claims.EmployeeID, EventClockOut, resp)

	message := "Clock out successful"
	if req.Auto {
		message = "You were clocked out automatically because you left the restaurant area"
	}
	return attendance.ClockResponse{
		Message:      message,
		ClockInTime:  &resp.ClockInTime,
		ClockOutTime: resp.ClockOutTime,
		Session:      &resp,
	}, nil
}

// closeSession stamps the clock-out and ends a running break.
func closeSession(s *attendance.Session, at time.Time, reason string) {
	if s.IsBreak {
		s.IsBreak = false
		s.BreakEnd = &at
	}
	s.ClockOut = &at
	s.ClockOutReason = &reason
}

// StartBreak implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) StartBreak(ctx context.Context) (attendance.BreakResponse, error) {
	return a.toggleBreak(ctx, true)
}

// EndBreak implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) EndBreak(ctx context.Context) (attendance.BreakResponse, error) {
	return a.toggleBreak(ctx, false)
}

func (a *AttendanceServiceImpl) toggleBreak(ctx context.Context, start bool) (attendance.BreakResponse, error) {
	claims, err := a.identity(ctx)
	if err != nil {
		return attendance.BreakResponse{}, err
	}

	now := a.now().UTC()
	var session attendance.Session
	err = a.withTx(ctx, func(ctx context.Context) error {
		open, err := a.SessionRepository.GetOpenSession(ctx, claims.EmployeeID)
		if err != nil {
			return err
		}

		switch {
		case start && open.IsBreak:
			return attendance.ErrAlreadyOnBreak
		case !start && !open.IsBreak:
			return attendance.ErrNotOnBreak
		case start:
			open.IsBreak = true
			open.BreakStart = &now
			open.BreakEnd = nil
		default:
			open.IsBreak = false
			open.BreakEnd = &now
		}

		if err := a.SessionRepository.Update(ctx, open); err != nil {
			return err
		}
		session = open
		return nil
	})
	if err != nil {
		return attendance.BreakResponse{}, err
	}

	resp := toSessionResponse(session, now)
	if start {
		a.publish(claims.EmployeeID, EventBreakStart, resp)
		return attendance.BreakResponse{Message: "Break started", BreakStart: resp.BreakStart}, nil
	}
	a.publish(claims.EmployeeID, EventBreakEnd, resp)
	return attendance.BreakResponse{Message: "Break ended", BreakStart: resp.BreakStart, BreakEnd: resp.BreakEnd}, nil
}

// GetCurrentSession implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetCurrentSession(ctx context.Context) (*attendance.SessionResponse, error) {
	claims, err := a.identity(ctx)
	if err != nil {
		return nil, err
	}

	rest, err := a.RestaurantRepository.GetByID(ctx, claims.RestaurantID)
	if err != nil {
		return nil, err
	}

	now := a.now()
	since, _ := dayBounds(now, rest.Location())
	session, err := a.SessionRepository.GetLatest(ctx, claims.EmployeeID, since)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	resp := toSessionResponse(*session, now)
	return &resp, nil
}

// GetHistory implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetHistory(ctx context.Context, filter attendance.HistoryFilter) (attendance.ListSessionResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListSessionResponse{}, err
	}

	claims, err := a.identity(ctx)
	if err != nil {
		return attendance.ListSessionResponse{}, err
	}

	sessions, total, err := a.SessionRepository.List(ctx, claims.EmployeeID, filter)
	if err != nil {
		return attendance.ListSessionResponse{}, err
	}

	now := a.now()
	responses := make([]attendance.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, toSessionResponse(s, now))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 || len(sessions) == 0 {
		showing = fmt.Sprintf("0 of %d", total)
	}

	return attendance.ListSessionResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Sessions:   responses,
	}, nil
}

// CloseStaleSessions implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CloseStaleSessions(ctx context.Context) (int, error) {
	now := a.now().UTC()
	cutoff := now.Add(-a.opts.StaleSessionAfter)

	stale, err := a.SessionRepository.GetStaleOpenSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to get stale sessions: %w", err)
	}

	closed := 0
	for _, session := range stale {
		closeSession(&session, now, attendance.ClockOutReasonAutoStale)
		if err := a.SessionRepository.Update(ctx, session); err != nil {
			slog.Error("Failed to close stale session", "session_id", session.ID, "error", err)
			continue
		}
		closed++
		a.publish(session.EmployeeID, EventClockOut, toSessionResponse(session, now))
	}

	if closed > 0 {
		slog.Info("Closed stale attendance sessions", "count", closed, "cutoff", cutoff)
	}
	return closed, nil
}

func (a *AttendanceServiceImpl) publish(employeeID, event string, data attendance.SessionResponse) {
	if a.hub == nil {
		return
	}
	a.hub.Publish(sse.Event{EmployeeID: employeeID, Event: event, Data: data})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// toSessionResponse maps a session for the API. Only the latest break is recorded, so
// worked minutes exclude that break alone.
func toSessionResponse(s attendance.Session, now time.Time) attendance.SessionResponse {
	end := now
	if s.ClockOut != nil {
		end = *s.ClockOut
	}
	worked := end.Sub(s.ClockIn)
	if s.BreakStart != nil {
		breakEnd := end
		if !s.IsBreak && s.BreakEnd != nil {
			breakEnd = *s.BreakEnd
		}
		if d := breakEnd.Sub(*s.BreakStart); d > 0 {
			worked -= d
		}
	}
	workedMinutes := max(int(worked.Minutes()), 0)

	return attendance.SessionResponse{
		ID:                s.ID,
		EmployeeID:        s.EmployeeID,
		RestaurantID:      s.RestaurantID,
		Date:              s.Date.Format("2006-01-02"),
		ClockInTime:       formatTime(s.ClockIn),
		ClockOutTime:      formatTimePtr(s.ClockOut),
		ClockInLatitude:   s.ClockInLatitude,
		ClockInLongitude:  s.ClockInLongitude,
		ClockOutLatitude:  s.ClockOutLatitude,
		ClockOutLongitude: s.ClockOutLongitude,
		ClockOutReason:    s.ClockOutReason,
		IsBreak:           s.IsBreak,
		BreakStart:        formatTimePtr(s.BreakStart),
		BreakEnd:          formatTimePtr(s.BreakEnd),
		VerifiedLocation:  s.VerifiedLocation,
		WorkedMinutes:     &workedMinutes,
	}
}
