package model

import "time"

const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
)

// Business owns its weekly hours and services. Timezone is informational;
// all engine math treats times as wall-clock values in the business's zone.
type Business struct {
	ID        string
	Name      string
	Timezone  string
	CreatedAt time.Time
}

type Service struct {
	ID              string
	BusinessID      string
	Name            string
	DurationMinutes int
	Price           string
	CreatedAt       time.Time
}

// Appointment snapshots its end time at booking: EndTime is derived from the
// service duration when the appointment is created or rescheduled, never
// recomputed after the fact.
type Appointment struct {
	ID          string
	BusinessID  string
	AccountID   string
	ServiceID   string
	StartTime   time.Time
	EndTime     time.Time
	Status      string
	CancelledAt *time.Time
	CreatedAt   time.Time
}
