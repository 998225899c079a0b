package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/careflow/clinic-scheduler/internal/redis"
)

// The clinic's reference week: 2026-09-07 is a Monday. The clock is
// pinned to the preceding Tuesday morning.
var (
	testNow    = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	testMonday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
)

func monAt(h, m int) time.Time {
	return time.Date(2026, 9, 7, h, m, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewService(store, noopLocker{}, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc, store
}

// newShiftedDoctor creates a doctor with a Monday 09:00-17:00 shift.
func newShiftedDoctor(t *testing.T, svc *Service, store *memStore) uuid.UUID {
	t.Helper()
	doctorID := store.addDoctor("Dr. Grey")
	_, err := svc.AddSlot(context.Background(), doctorID, time.Monday, cr(9, 0, 17, 0))
	require.NoError(t, err)
	return doctorID
}

func bookAt(svc *Service, doctorID uuid.UUID, start time.Time, minutes int) (*Appointment, error) {
	return svc.Book(context.Background(), BookingRequest{
		DoctorID:        doctorID,
		PatientName:     "Ada Byron",
		Start:           start,
		DurationMinutes: minutes,
	})
}

func TestBookWithinShift(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	appt, err := bookAt(svc, doctorID, monAt(10, 0), 30)
	require.NoError(t, err)

	assert.Equal(t, doctorID, appt.DoctorID)
	assert.Equal(t, monAt(10, 0), appt.StartTime)
	assert.Equal(t, monAt(10, 30), appt.EndTime)
	assert.Equal(t, StatusScheduled, appt.Status)

	// Round trip: reading it back yields the same booking.
	got, err := svc.GetAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.DoctorID, got.DoctorID)
	assert.Equal(t, appt.StartTime, got.StartTime)
	assert.Equal(t, appt.EndTime, got.EndTime)
	assert.Equal(t, StatusScheduled, got.Status)
}

func TestBookRejectsPastStart(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	_, err := bookAt(svc, doctorID, testNow.Add(-time.Microsecond), 30)
	assert.ErrorIs(t, err, ErrPastBooking)
}

func TestBookAcceptsStartExactlyNow(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	// Move the clock to inside Monday's shift so only the temporal check
	// is at stake.
	svc.now = func() time.Time { return monAt(10, 0) }

	_, err := bookAt(svc, doctorID, monAt(10, 0), 30)
	assert.NoError(t, err)
}

func TestBookRejectsNonPositiveDuration(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	for _, minutes := range []int{0, -15} {
		_, err := bookAt(svc, doctorID, monAt(10, 0), minutes)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	}
}

func TestBookRejectsUnknownDoctor(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := bookAt(svc, uuid.New(), monAt(10, 0), 30)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBookRejectsDoctorOnLeave(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	_, err := svc.AddLeave(context.Background(), doctorID, testMonday, testMonday, nil)
	require.NoError(t, err)

	_, err = bookAt(svc, doctorID, monAt(10, 0), 30)
	assert.ErrorIs(t, err, ErrDoctorOnLeave)
}

func TestBookLeaveBoundsInclusive(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := store.addDoctor("Dr. Yang")
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday} {
		_, err := svc.AddSlot(context.Background(), doctorID, d, cr(9, 0, 17, 0))
		require.NoError(t, err)
	}

	// Leave Monday through Tuesday.
	_, err := svc.AddLeave(context.Background(), doctorID, testMonday, testMonday.AddDate(0, 0, 1), nil)
	require.NoError(t, err)

	_, err = bookAt(svc, doctorID, monAt(10, 0), 30)
	assert.ErrorIs(t, err, ErrDoctorOnLeave, "leave start date blocks")

	_, err = bookAt(svc, doctorID, monAt(10, 0).AddDate(0, 0, 1), 30)
	assert.ErrorIs(t, err, ErrDoctorOnLeave, "leave end date blocks")

	_, err = bookAt(svc, doctorID, monAt(10, 0).AddDate(0, 0, 2), 30)
	assert.NoError(t, err, "day after the leave is bookable")
}

func TestBookLeaveCheckedBeforeShift(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	_, err := svc.AddLeave(context.Background(), doctorID, testMonday, testMonday, nil)
	require.NoError(t, err)

	// 08:00 is both on leave and outside the shift; the pipeline reports
	// the leave because that check runs first.
	_, err = bookAt(svc, doctorID, monAt(8, 0), 30)
	assert.ErrorIs(t, err, ErrDoctorOnLeave)
}

func TestBookOutsideShift(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	tests := []struct {
		name    string
		start   time.Time
		minutes int
	}{
		{"before shift", monAt(8, 0), 30},
		{"straddles shift start", monAt(8, 45), 30},
		{"runs past shift end", monAt(16, 45), 30},
		{"wrong weekday", monAt(10, 0).AddDate(0, 0, 1), 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bookAt(svc, doctorID, tt.start, tt.minutes)
			assert.ErrorIs(t, err, ErrOutsideShift)
		})
	}
}

func TestBookRequiresSingleSlotCoverage(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := store.addDoctor("Dr. Bailey")

	// Two back-to-back Monday shifts.
	_, err := svc.AddSlot(context.Background(), doctorID, time.Monday, cr(9, 0, 12, 0))
	require.NoError(t, err)
	_, err = svc.AddSlot(context.Background(), doctorID, time.Monday, cr(12, 0, 17, 0))
	require.NoError(t, err)

	// The union covers 11:45-12:15 but no single slot does.
	_, err = bookAt(svc, doctorID, monAt(11, 45), 30)
	assert.ErrorIs(t, err, ErrOutsideShift)

	// Fully inside one of the two shifts is fine.
	_, err = bookAt(svc, doctorID, monAt(12, 0), 30)
	assert.NoError(t, err)
}

func TestBookConflicts(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	_, err := bookAt(svc, doctorID, monAt(10, 0), 30)
	require.NoError(t, err)

	_, err = bookAt(svc, doctorID, monAt(10, 15), 30)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Ending exactly at another booking's start is allowed.
	_, err = bookAt(svc, doctorID, monAt(9, 30), 30)
	assert.NoError(t, err)

	// Starting exactly at another booking's end is allowed.
	_, err = bookAt(svc, doctorID, monAt(10, 30), 30)
	assert.NoError(t, err)
}

func TestBookIgnoresCancelledAppointments(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	appt, err := bookAt(svc, doctorID, monAt(10, 0), 30)
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), appt.ID, StatusCancelled)
	require.NoError(t, err)

	// The cancelled row no longer blocks the window.
	_, err = bookAt(svc, doctorID, monAt(10, 15), 30)
	assert.NoError(t, err)
}

func TestBookOtherDoctorUnaffected(t *testing.T) {
	svc, store := newTestService(t)
	alice := newShiftedDoctor(t, svc, store)
	bob := store.addDoctor("Dr. Webber")
	_, err := svc.AddSlot(context.Background(), bob, time.Monday, cr(9, 0, 17, 0))
	require.NoError(t, err)

	_, err = bookAt(svc, alice, monAt(10, 0), 30)
	require.NoError(t, err)

	// Same window, different doctor: no conflict.
	_, err = bookAt(svc, bob, monAt(10, 0), 30)
	assert.NoError(t, err)
}

func TestBookSurfacesInsertRaceAsSlotTaken(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	// A concurrent booking lands between the conflict check and the
	// insert; the store's constraint rejects the write.
	store.insertApptErr = ErrSlotTaken

	_, err := bookAt(svc, doctorID, monAt(10, 0), 30)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

type deniedLocker struct{}

func (deniedLocker) WithDoctorLock(ctx context.Context, _ uuid.UUID, _ func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func TestBookReportsLockContention(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, deniedLocker{}, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	doctorID := newShiftedDoctor(t, svc, store)

	_, err := bookAt(svc, doctorID, monAt(10, 0), 30)
	assert.ErrorIs(t, err, ErrBookingInProgress)
}

func TestConflictCheckIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	_, err := bookAt(svc, doctorID, monAt(10, 0), 30)
	require.NoError(t, err)

	window := Interval{monAt(10, 15), monAt(10, 45)}
	first, err := store.ActiveAppointmentsIn(context.Background(), doctorID, window)
	require.NoError(t, err)
	second, err := store.ActiveAppointmentsIn(context.Background(), doctorID, window)
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
}

// Status machine

func TestSetStatusTransitions(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	appt, err := bookAt(svc, doctorID, monAt(10, 0), 30)
	require.NoError(t, err)

	updated, err := svc.SetStatus(context.Background(), appt.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
}

func TestSetStatusTerminalIsFinal(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	appt, err := bookAt(svc, doctorID, monAt(10, 0), 30)
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), appt.ID, StatusCancelled)
	require.NoError(t, err)

	// No resurrection, and no repeat of the same transition either.
	_, err = svc.SetStatus(context.Background(), appt.ID, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.SetStatus(context.Background(), appt.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetStatusRejectsNonTerminalTarget(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	appt, err := bookAt(svc, doctorID, monAt(10, 0), 30)
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), appt.ID, StatusScheduled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetStatusUnknownAppointment(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SetStatus(context.Background(), uuid.New(), StatusCompleted)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

// Slot authoring

func TestAddSlotInvalidRange(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := store.addDoctor("Dr. Karev")

	_, err := svc.AddSlot(context.Background(), doctorID, time.Monday, cr(17, 0, 9, 0))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.AddSlot(context.Background(), doctorID, time.Monday, cr(9, 0, 9, 0))
	assert.ErrorIs(t, err, ErrInvalidRange, "empty window is invalid")
}

func TestAddSlotOverlapGuard(t *testing.T) {
	tests := []struct {
		name    string
		first   ClockRange
		second  ClockRange
		wantErr bool
	}{
		{"disjoint", cr(9, 0, 12, 0), cr(13, 0, 17, 0), false},
		{"touching", cr(9, 0, 12, 0), cr(12, 0, 17, 0), false},
		{"partial overlap", cr(9, 0, 12, 0), cr(11, 0, 14, 0), true},
		{"nested", cr(9, 0, 17, 0), cr(10, 0, 11, 0), true},
		{"identical", cr(9, 0, 12, 0), cr(9, 0, 12, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			doctorID := store.addDoctor("Dr. Karev")

			_, err := svc.AddSlot(context.Background(), doctorID, time.Monday, tt.first)
			require.NoError(t, err)

			_, err = svc.AddSlot(context.Background(), doctorID, time.Monday, tt.second)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOverlappingSlot)
			} else {
				assert.NoError(t, err)
			}

			// Adding both succeeds iff the windows do not overlap.
			assert.Equal(t, tt.wantErr, tt.first.Overlaps(tt.second))
		})
	}
}

func TestAddSlotDifferentDaysNeverConflict(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := store.addDoctor("Dr. Karev")

	_, err := svc.AddSlot(context.Background(), doctorID, time.Monday, cr(9, 0, 17, 0))
	require.NoError(t, err)

	_, err = svc.AddSlot(context.Background(), doctorID, time.Tuesday, cr(9, 0, 17, 0))
	assert.NoError(t, err)
}

// Leave authoring

func TestAddLeaveValidation(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := store.addDoctor("Dr. Torres")

	_, err := svc.AddLeave(context.Background(), doctorID, testMonday, testMonday.AddDate(0, 0, -1), nil)
	assert.ErrorIs(t, err, ErrInvalidRange)

	leave, err := svc.AddLeave(context.Background(), doctorID, testMonday, testMonday, nil)
	require.NoError(t, err)
	assert.Equal(t, testMonday, leave.StartDate)
	assert.Equal(t, testMonday, leave.EndDate)
}

func TestAddLeaveStripsTimeOfDay(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := store.addDoctor("Dr. Torres")

	leave, err := svc.AddLeave(context.Background(), doctorID,
		testMonday.Add(15*time.Hour), testMonday.Add(20*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, testMonday, leave.StartDate)
	assert.Equal(t, testMonday, leave.EndDate)
}

func TestRemoveLeaveRestoresBooking(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	leave, err := svc.AddLeave(context.Background(), doctorID, testMonday, testMonday, nil)
	require.NoError(t, err)

	_, err = bookAt(svc, doctorID, monAt(10, 0), 30)
	require.ErrorIs(t, err, ErrDoctorOnLeave)

	require.NoError(t, svc.RemoveLeave(context.Background(), leave.ID))

	_, err = bookAt(svc, doctorID, monAt(10, 0), 30)
	assert.NoError(t, err)
}

// Listings

func TestListAppointmentsOrdered(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := newShiftedDoctor(t, svc, store)

	for _, start := range []time.Time{monAt(11, 0), monAt(9, 0), monAt(10, 0)} {
		_, err := bookAt(svc, doctorID, start, 30)
		require.NoError(t, err)
	}

	appts, err := svc.ListAppointments(context.Background(), doctorID, Interval{testMonday, testMonday.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, appts, 3)
	assert.Equal(t, monAt(9, 0), appts[0].StartTime)
	assert.Equal(t, monAt(10, 0), appts[1].StartTime)
	assert.Equal(t, monAt(11, 0), appts[2].StartTime)
}

func TestListDoctorsActiveFilter(t *testing.T) {
	svc, store := newTestService(t)
	active := store.addDoctor("Dr. Active")
	inactive := store.addDoctor("Dr. Away")

	_, err := svc.SetDoctorActive(context.Background(), inactive, false)
	require.NoError(t, err)

	all, err := svc.ListDoctors(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	activeOnly, err := svc.ListDoctors(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, activeOnly, 1)
	assert.Equal(t, active, activeOnly[0].ID)
}
