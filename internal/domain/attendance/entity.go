package attendance

import (
	"time"
)

// Clock-out reasons recorded on a session
const (
	ClockOutReasonManual       = "manual"
	ClockOutReasonAutoGeofence = "auto_geofence"
	ClockOutReasonAutoStale    = "auto_stale"
)

// Session is one continuous work period of one employee.
// At most one session per employee may have ClockOut == nil.
type Session struct {
	ID                string
	EmployeeID        string
	RestaurantID      string
	Date              time.Time
	ClockIn           time.Time
	ClockOut          *time.Time
	ClockInLatitude   float64
	ClockInLongitude  float64
	ClockInAccuracy   *float64
	ClockOutLatitude  *float64
	ClockOutLongitude *float64
	ClockOutAccuracy  *float64
	ClockOutReason    *string
	IsBreak           bool
	BreakStart        *time.Time
	BreakEnd          *time.Time
	VerifiedLocation  bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Open reports whether the session is still running.
func (s Session) Open() bool {
	return s.ClockOut == nil
}
