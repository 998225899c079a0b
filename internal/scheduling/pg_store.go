package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the production Store. The appointments table carries an
// exclusion constraint on (doctor_id, tstzrange(start_time, end_time))
// over non-cancelled rows; see InsertAppointment.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&specialty,
		&d.SlotDurationMinutes,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	return &d, nil
}

func scanSlot(row pgx.Row) (*AvailabilitySlot, error) {
	var s AvailabilitySlot
	var day int
	var start, end pgtype.Time

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&day,
		&start,
		&end,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.DayOfWeek = time.Weekday(day)
	s.Window = ClockRange{
		Start: TimeOfDay(time.Duration(start.Microseconds) * time.Microsecond),
		End:   TimeOfDay(time.Duration(end.Microseconds) * time.Microsecond),
	}
	return &s, nil
}

func scanLeave(row pgx.Row) (*Leave, error) {
	var l Leave
	var reason *string

	err := row.Scan(
		&l.ID,
		&l.DoctorID,
		&l.StartDate,
		&l.EndDate,
		&reason,
		&l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeaveNotFound
		}
		return nil, err
	}

	l.Reason = reason
	return &l, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientName,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Notes = notes
	return &a, nil
}

func pgTimeOfDay(t TimeOfDay) pgtype.Time {
	return pgtype.Time{
		Microseconds: int64(time.Duration(t) / time.Microsecond),
		Valid:        true,
	}
}

// Doctors

func (s *PgStore) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, specialty, slot_duration_minutes, is_active, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (s *PgStore) ListDoctors(ctx context.Context, activeOnly bool) ([]Doctor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, specialty, slot_duration_minutes, is_active, created_at, updated_at
		FROM doctors
		WHERE NOT $1 OR is_active
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (s *PgStore) SetDoctorActive(ctx context.Context, id uuid.UUID, active bool) (*Doctor, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE doctors
		SET is_active = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, name, specialty, slot_duration_minutes, is_active, created_at, updated_at
	`, id, active)
	return scanDoctor(row)
}

// Availability slots

func (s *PgStore) SlotsForDay(ctx context.Context, doctorID uuid.UUID, day time.Weekday) ([]AvailabilitySlot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, created_at
		FROM availability_slots
		WHERE doctor_id = $1 AND day_of_week = $2
		ORDER BY start_time
	`, doctorID, int(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (s *PgStore) ListSlots(ctx context.Context, doctorID uuid.UUID) ([]AvailabilitySlot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, created_at
		FROM availability_slots
		WHERE doctor_id = $1
		ORDER BY day_of_week, start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]AvailabilitySlot, error) {
	var result []AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *slot)
	}
	return result, rows.Err()
}

func (s *PgStore) InsertSlot(ctx context.Context, slot AvailabilitySlot) (*AvailabilitySlot, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO availability_slots (id, doctor_id, day_of_week, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, doctor_id, day_of_week, start_time, end_time, created_at
	`, slot.ID, slot.DoctorID, int(slot.DayOfWeek), pgTimeOfDay(slot.Window.Start), pgTimeOfDay(slot.Window.End))
	return scanSlot(row)
}

func (s *PgStore) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM availability_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// Leaves

func (s *PgStore) LeavesOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Leave, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, start_date, end_date, reason, created_at
		FROM doctor_leaves
		WHERE doctor_id = $1 AND start_date <= $2 AND end_date >= $2
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeaves(rows)
}

func (s *PgStore) ListLeaves(ctx context.Context, doctorID uuid.UUID) ([]Leave, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, start_date, end_date, reason, created_at
		FROM doctor_leaves
		WHERE doctor_id = $1
		ORDER BY start_date
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeaves(rows)
}

func collectLeaves(rows pgx.Rows) ([]Leave, error) {
	var result []Leave
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, rows.Err()
}

func (s *PgStore) InsertLeave(ctx context.Context, leave Leave) (*Leave, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO doctor_leaves (id, doctor_id, start_date, end_date, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, doctor_id, start_date, end_date, reason, created_at
	`, leave.ID, leave.DoctorID, leave.StartDate, leave.EndDate, leave.Reason)
	return scanLeave(row)
}

func (s *PgStore) DeleteLeave(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM doctor_leaves WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete leave: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeaveNotFound
	}
	return nil
}

// Appointments

func (s *PgStore) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, doctor_id, patient_name, start_time, end_time, status, notes, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) ListAppointments(ctx context.Context, doctorID uuid.UUID, window Interval) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, patient_name, start_time, end_time, status, notes, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`, doctorID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (s *PgStore) ActiveAppointmentsIn(ctx context.Context, doctorID uuid.UUID, window Interval) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, patient_name, start_time, end_time, status, notes, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1
		  AND status <> 'cancelled'
		  AND start_time < $3
		  AND end_time > $2
	`, doctorID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// InsertAppointment stores the row as scheduled. A concurrent booking that
// slipped in between the service's conflict check and this insert trips
// the exclusion constraint and is reported as ErrSlotTaken.
func (s *PgStore) InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_name, start_time, end_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'scheduled', $6, now(), now())
		RETURNING id, doctor_id, patient_name, start_time, end_time, status, notes, created_at, updated_at
	`, appt.ID, appt.DoctorID, appt.PatientName, appt.StartTime, appt.EndTime, appt.Notes)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (s *PgStore) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, doctor_id, patient_name, start_time, end_time, status, notes, created_at, updated_at
	`, id, to, from)
	return scanAppointment(row)
}
