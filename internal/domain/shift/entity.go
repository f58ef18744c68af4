package shift

import "time"

// Shift is one scheduled working window of an employee.
type Shift struct {
	ID           string
	EmployeeID   string
	RestaurantID string
	StartTime    time.Time
	EndTime      time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Contains reports whether t falls inside the shift, both ends inclusive.
func (s Shift) Contains(t time.Time) bool {
	return !t.Before(s.StartTime) && !t.After(s.EndTime)
}
