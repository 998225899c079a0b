package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for tests. Its InsertAppointment mimics
// the database exclusion constraint so the race path behaves like the
// production store.
type memStore struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]Doctor
	slots   map[uuid.UUID]AvailabilitySlot
	leaves  map[uuid.UUID]Leave
	appts   map[uuid.UUID]Appointment

	insertApptErr error // forced insert failure, simulates a lost race
}

func newMemStore() *memStore {
	return &memStore{
		doctors: make(map[uuid.UUID]Doctor),
		slots:   make(map[uuid.UUID]AvailabilitySlot),
		leaves:  make(map[uuid.UUID]Leave),
		appts:   make(map[uuid.UUID]Appointment),
	}
}

func (m *memStore) addDoctor(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.doctors[id] = Doctor{ID: id, Name: name, SlotDurationMinutes: 30, IsActive: true}
	return id
}

func (m *memStore) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (m *memStore) ListDoctors(_ context.Context, activeOnly bool) ([]Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Doctor
	for _, d := range m.doctors {
		if activeOnly && !d.IsActive {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) SetDoctorActive(_ context.Context, id uuid.UUID, active bool) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	d.IsActive = active
	m.doctors[id] = d
	return &d, nil
}

func (m *memStore) SlotsForDay(_ context.Context, doctorID uuid.UUID, day time.Weekday) ([]AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AvailabilitySlot
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.DayOfWeek == day {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Window.Start < out[j].Window.Start })
	return out, nil
}

func (m *memStore) ListSlots(_ context.Context, doctorID uuid.UUID) ([]AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AvailabilitySlot
	for _, s := range m.slots {
		if s.DoctorID == doctorID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].Window.Start < out[j].Window.Start
	})
	return out, nil
}

func (m *memStore) InsertSlot(_ context.Context, slot AvailabilitySlot) (*AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot.CreatedAt = time.Now()
	m.slots[slot.ID] = slot
	return &slot, nil
}

func (m *memStore) DeleteSlot(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		return ErrSlotNotFound
	}
	delete(m.slots, id)
	return nil
}

func (m *memStore) LeavesOn(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Leave
	for _, l := range m.leaves {
		if l.DoctorID == doctorID && l.Covers(date) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) ListLeaves(_ context.Context, doctorID uuid.UUID) ([]Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Leave
	for _, l := range m.leaves {
		if l.DoctorID == doctorID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *memStore) InsertLeave(_ context.Context, leave Leave) (*Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	leave.CreatedAt = time.Now()
	m.leaves[leave.ID] = leave
	return &leave, nil
}

func (m *memStore) DeleteLeave(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leaves[id]; !ok {
		return ErrLeaveNotFound
	}
	delete(m.leaves, id)
	return nil
}

func (m *memStore) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memStore) ListAppointments(_ context.Context, doctorID uuid.UUID, window Interval) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Interval().Overlaps(window) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memStore) ActiveAppointmentsIn(_ context.Context, doctorID uuid.UUID, window Interval) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Status != StatusCancelled && a.Interval().Overlaps(window) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) InsertAppointment(_ context.Context, appt Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertApptErr != nil {
		return nil, m.insertApptErr
	}
	for _, existing := range m.appts {
		if existing.DoctorID == appt.DoctorID &&
			existing.Status != StatusCancelled &&
			existing.Interval().Overlaps(appt.Interval()) {
			return nil, ErrSlotTaken
		}
	}
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	m.appts[appt.ID] = appt
	return &appt, nil
}

func (m *memStore) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	m.appts[id] = a
	return &a, nil
}

// noopLocker runs the critical section without any locking.
type noopLocker struct{}

func (noopLocker) WithDoctorLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
