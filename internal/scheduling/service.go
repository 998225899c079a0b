package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/careflow/clinic-scheduler/internal/redis"
)

// Booking rejections. All of these are expected, user-facing outcomes that
// the API layer renders as messages; none of them leaves partial state.
var (
	ErrPastBooking       = errors.New("appointment start is in the past")
	ErrInvalidDuration   = errors.New("duration must be a positive number of minutes")
	ErrDoctorOnLeave     = errors.New("doctor is on leave on this day")
	ErrOutsideShift      = errors.New("requested time is outside of the doctor's shift")
	ErrSlotTaken         = errors.New("time slot already booked for another appointment")
	ErrBookingInProgress = errors.New("another booking for this doctor is in progress, please retry")

	// Authoring rejections
	ErrInvalidRange    = errors.New("end must be after start")
	ErrOverlappingSlot = errors.New("time range overlaps an existing slot on this day")

	// Status machine
	ErrInvalidTransition = errors.New("appointment status can no longer change")
)

// BookingRequest is an already-validated proposal: the caller has
// authenticated the staff member and resolved the doctor id.
type BookingRequest struct {
	DoctorID        uuid.UUID
	PatientName     string
	Start           time.Time
	DurationMinutes int
	Notes           *string
}

// Service is the admission engine: it decides whether proposed
// appointments, shift windows and leaves may be created, and applies
// status transitions to existing appointments.
type Service struct {
	store  Store
	locker redisclient.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(store Store, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}

// Book runs the admission pipeline in a fixed order: temporal validity,
// leave, shift coverage, conflict, insert. The first failing check wins;
// later checks are not evaluated. The conflict check and the insert run
// under a per-doctor lock; a conflicting row that still lands concurrently
// is reported as ErrSlotTaken, same as losing the pre-check.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	now := s.now()
	if req.Start.Before(now) {
		return nil, ErrPastBooking
	}
	if req.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	if _, err := s.store.GetDoctorByID(ctx, req.DoctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	end := req.Start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	iv := Interval{Start: req.Start, End: end}

	leaves, err := s.store.LeavesOn(ctx, req.DoctorID, DateOf(req.Start))
	if err != nil {
		return nil, fmt.Errorf("check leaves: %w", err)
	}
	if len(leaves) > 0 {
		return nil, ErrDoctorOnLeave
	}

	slots, err := s.store.SlotsForDay(ctx, req.DoctorID, req.Start.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load shift windows: %w", err)
	}
	window := ClockRange{
		Start: TimeOfDayOf(req.Start),
		End:   TimeOfDayOf(req.Start) + TimeOfDay(time.Duration(req.DurationMinutes)*time.Minute),
	}
	if !coveredByShift(slots, window) {
		return nil, ErrOutsideShift
	}

	var created *Appointment

	err = s.locker.WithDoctorLock(ctx, req.DoctorID, func(lockCtx context.Context) error {
		existing, err := s.store.ActiveAppointmentsIn(lockCtx, req.DoctorID, iv)
		if err != nil {
			return fmt.Errorf("check conflicts: %w", err)
		}
		if hasOverlap(existing, iv) {
			return ErrSlotTaken
		}

		appt, err := s.store.InsertAppointment(lockCtx, Appointment{
			ID:          uuid.New(),
			DoctorID:    req.DoctorID,
			PatientName: req.PatientName,
			StartTime:   req.Start,
			EndTime:     end,
			Status:      StatusScheduled,
			Notes:       req.Notes,
		})
		if err != nil {
			// Lost the race between check and insert: the exclusion
			// constraint rejected the row. The caller cannot tell a lost
			// race from never having had a chance.
			return err
		}

		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", req.DoctorID.String()).
		Time("start", req.Start).
		Int("duration_minutes", req.DurationMinutes).
		Msg("appointment booked")

	return created, nil
}

// SetStatus applies scheduled -> completed or scheduled -> cancelled.
// Status is monotone: terminal appointments reject any further change,
// including a repeat of the same transition.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	if to != StatusCompleted && to != StatusCancelled {
		return nil, ErrInvalidTransition
	}

	appt, err := s.store.UpdateAppointmentStatus(ctx, id, StatusScheduled, to)
	if err != nil {
		if !errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("update appointment status: %w", err)
		}
		// No scheduled row matched: either the id is unknown or the
		// appointment is already terminal.
		if _, getErr := s.store.GetAppointmentByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidTransition
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("status", string(to)).
		Msg("appointment status updated")

	return appt, nil
}

// GetAppointment retrieves one appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.store.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// ListAppointments returns a doctor's appointments overlapping the given
// window, ordered by start time.
func (s *Service) ListAppointments(ctx context.Context, doctorID uuid.UUID, window Interval) ([]Appointment, error) {
	appts, err := s.store.ListAppointments(ctx, doctorID, window)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// AddSlot authors a recurring weekly shift window. A new window must not
// overlap any existing window for the same doctor and weekday; windows on
// different weekdays never conflict.
func (s *Service) AddSlot(ctx context.Context, doctorID uuid.UUID, day time.Weekday, window ClockRange) (*AvailabilitySlot, error) {
	if window.Start >= window.End {
		return nil, ErrInvalidRange
	}

	if _, err := s.store.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	existing, err := s.store.SlotsForDay(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load shift windows: %w", err)
	}
	if overlapsExisting(existing, window) {
		return nil, ErrOverlappingSlot
	}

	slot, err := s.store.InsertSlot(ctx, AvailabilitySlot{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: day,
		Window:    window,
	})
	if err != nil {
		return nil, fmt.Errorf("insert slot: %w", err)
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Int("day_of_week", int(day)).
		Str("window", window.String()).
		Msg("availability slot added")

	return slot, nil
}

func (s *Service) ListSlots(ctx context.Context, doctorID uuid.UUID) ([]AvailabilitySlot, error) {
	slots, err := s.store.ListSlots(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

func (s *Service) RemoveSlot(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteSlot(ctx, id)
}

// AddLeave records a whole-day leave range, bounds inclusive. Dates must
// be calendar dates; any time-of-day component is stripped.
func (s *Service) AddLeave(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time, reason *string) (*Leave, error) {
	startDate = DateOf(startDate)
	endDate = DateOf(endDate)
	if endDate.Before(startDate) {
		return nil, ErrInvalidRange
	}

	if _, err := s.store.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	leave, err := s.store.InsertLeave(ctx, Leave{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		StartDate: startDate,
		EndDate:   endDate,
		Reason:    reason,
	})
	if err != nil {
		return nil, fmt.Errorf("insert leave: %w", err)
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Time("start_date", startDate).
		Time("end_date", endDate).
		Msg("leave added")

	return leave, nil
}

func (s *Service) ListLeaves(ctx context.Context, doctorID uuid.UUID) ([]Leave, error) {
	leaves, err := s.store.ListLeaves(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}
	return leaves, nil
}

func (s *Service) RemoveLeave(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteLeave(ctx, id)
}

// ListDoctors returns doctors, optionally only the ones offered for new
// bookings. The engine does not itself refuse bookings for inactive
// doctors; callers filter with this listing.
func (s *Service) ListDoctors(ctx context.Context, activeOnly bool) ([]Doctor, error) {
	doctors, err := s.store.ListDoctors(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.store.GetDoctorByID(ctx, id)
}

func (s *Service) SetDoctorActive(ctx context.Context, id uuid.UUID, active bool) (*Doctor, error) {
	doc, err := s.store.SetDoctorActive(ctx, id, active)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("doctor_id", id.String()).
		Bool("active", active).
		Msg("doctor activity toggled")

	return doc, nil
}
