package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Doctor struct {
	ID                  uuid.UUID
	Name                string
	Specialty           *string
	SlotDurationMinutes int // default booking length offered to staff, not enforced
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AvailabilitySlot is a recurring weekly shift window. Slots are never
// edited in place; staff delete and re-add instead.
type AvailabilitySlot struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	DayOfWeek time.Weekday
	Window    ClockRange
	CreatedAt time.Time
}

// Leave blocks every date in [StartDate, EndDate] inclusive, whole days.
// Both bounds are calendar dates at midnight.
type Leave struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Reason    *string
	CreatedAt time.Time
}

// Covers reports whether date (a calendar date at midnight) falls inside
// the leave, bounds inclusive.
func (l Leave) Covers(date time.Time) bool {
	return !date.Before(l.StartDate) && !date.After(l.EndDate)
}

type Appointment struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	PatientName string
	StartTime   time.Time
	EndTime     time.Time
	Status      AppointmentStatus
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// DateOf truncates an instant to its calendar date at midnight, keeping
// the location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
