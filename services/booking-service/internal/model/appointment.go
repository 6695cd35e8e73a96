package model

import "time"

// StaffAssignment is a booking-time snapshot of one assigned team member.
// The name is frozen at booking so later renames do not rewrite history.
type StaffAssignment struct {
	StaffID     string
	DisplayName string
}

type Appointment struct {
	ID            string
	BusinessID    string
	ServiceID     string
	ServiceName   string
	DurationMins  int
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	StartTime     time.Time
	EndTime       time.Time
	Status        string
	Staff         []StaffAssignment
	CreatedAt     time.Time
}
