package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/clinic-scheduler/internal/scheduling"
)

type BookAppointmentRequest struct {
	DoctorID        string  `json:"doctor_id"`
	PatientName     string  `json:"patient_name"`
	StartTime       string  `json:"start_time"` // RFC 3339
	DurationMinutes int     `json:"duration_minutes"`
	Notes           *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	PatientName string    `json:"patient_name"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	Notes       *string   `json:"notes,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		DoctorID:    a.DoctorID,
		PatientName: a.PatientName,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Status:      string(a.Status),
		Notes:       a.Notes,
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status"` // completed or cancelled
}

type AddSlotRequest struct {
	DayOfWeek int    `json:"day_of_week"` // 0 = Sunday .. 6 = Saturday
	StartTime string `json:"start_time"`  // HH:MM or HH:MM:SS
	EndTime   string `json:"end_time"`
}

type SlotResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	DayOfWeek int       `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

func toSlotResponse(s *scheduling.AvailabilitySlot) SlotResponse {
	return SlotResponse{
		ID:        s.ID,
		DoctorID:  s.DoctorID,
		DayOfWeek: int(s.DayOfWeek),
		StartTime: s.Window.Start.String(),
		EndTime:   s.Window.End.String(),
	}
}

type AddLeaveRequest struct {
	StartDate string  `json:"start_date"` // YYYY-MM-DD
	EndDate   string  `json:"end_date"`
	Reason    *string `json:"reason,omitempty"`
}

type LeaveResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Reason    *string   `json:"reason,omitempty"`
}

func toLeaveResponse(l *scheduling.Leave) LeaveResponse {
	return LeaveResponse{
		ID:        l.ID,
		DoctorID:  l.DoctorID,
		StartDate: l.StartDate.Format(dateLayout),
		EndDate:   l.EndDate.Format(dateLayout),
		Reason:    l.Reason,
	}
}

type DoctorResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Specialty           *string   `json:"specialty,omitempty"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"`
	IsActive            bool      `json:"is_active"`
}

func toDoctorResponse(d *scheduling.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:                  d.ID,
		Name:                d.Name,
		Specialty:           d.Specialty,
		SlotDurationMinutes: d.SlotDurationMinutes,
		IsActive:            d.IsActive,
	}
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

const dateLayout = "2006-01-02"
