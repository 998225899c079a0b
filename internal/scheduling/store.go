package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrSlotNotFound        = errors.New("availability slot not found")
	ErrLeaveNotFound       = errors.New("leave not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Store contains all persistence interactions needed by the service.
// InsertAppointment must be backed by an exclusion constraint on
// (doctor_id, [start,end)) over non-cancelled rows; its conflict error is
// the authority that prevents double-booking under concurrency, the
// service's own check is advisory.
type Store interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context, activeOnly bool) ([]Doctor, error)
	SetDoctorActive(ctx context.Context, id uuid.UUID, active bool) (*Doctor, error)

	// Weekly availability, bucketed by weekday
	SlotsForDay(ctx context.Context, doctorID uuid.UUID, day time.Weekday) ([]AvailabilitySlot, error)
	ListSlots(ctx context.Context, doctorID uuid.UUID) ([]AvailabilitySlot, error)
	InsertSlot(ctx context.Context, slot AvailabilitySlot) (*AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error

	// Leave calendar
	LeavesOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Leave, error)
	ListLeaves(ctx context.Context, doctorID uuid.UUID) ([]Leave, error)
	InsertLeave(ctx context.Context, leave Leave) (*Leave, error)
	DeleteLeave(ctx context.Context, id uuid.UUID) error

	// Booking ledger
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, doctorID uuid.UUID, window Interval) ([]Appointment, error)
	ActiveAppointmentsIn(ctx context.Context, doctorID uuid.UUID, window Interval) ([]Appointment, error)
	InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
}
