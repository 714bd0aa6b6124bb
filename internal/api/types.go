package api

import (
	"time"

	"github.com/clinicdesk/clinic-scheduling/internal/scheduling"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	DateTime  string `json:"date_time"` // RFC 3339
}

type WalkInRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
}

type RescheduleRequest struct {
	NewDateTime string `json:"new_date_time"` // RFC 3339
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type AvailabilityRequest struct {
	Date      string `json:"date"`       // 2006-01-02
	StartTime string `json:"start_time"` // 15:04
	EndTime   string `json:"end_time"`   // 15:04
	Available bool   `json:"available"`
}

type NotificationRequest struct {
	PatientID string `json:"patient_id"`
	Message   string `json:"message"`
}

type AppointmentResponse struct {
	AppointmentID string     `json:"appointment_id"`
	PatientID     string     `json:"patient_id"`
	DoctorID      string     `json:"doctor_id"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	Status        string     `json:"status"`
	CheckedIn     bool       `json:"checked_in"`
	QueueNumber   string     `json:"queue_number,omitempty"`
	BookedAt      time.Time  `json:"booked_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	ModifiedAt    *time.Time `json:"modified_at,omitempty"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		AppointmentID: a.AppointmentID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		ScheduledAt:   a.ScheduledAt,
		Status:        string(a.Status),
		CheckedIn:     a.CheckedIn,
		QueueNumber:   a.QueueNumber,
		BookedAt:      a.BookedAt,
		CancelledAt:   a.CancelledAt,
		ModifiedAt:    a.ModifiedAt,
		CheckedInAt:   a.CheckedInAt,
	}
}

type QueueNumberResponse struct {
	AppointmentID string `json:"appointment_id"`
	QueueNumber   string `json:"queue_number"`
}

type ScheduleEntryResponse struct {
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Available bool      `json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DoctorResponse struct {
	DoctorID  string                  `json:"doctor_id"`
	Name      string                  `json:"name"`
	Specialty string                  `json:"specialty"`
	Schedules []ScheduleEntryResponse `json:"schedules"`
}

type NotificationResponse struct {
	NotificationID string    `json:"notification_id"`
	PatientID      string    `json:"patient_id"`
	Message        string    `json:"message"`
	SentAt         time.Time `json:"sent_at"`
}

type QueueEntryResponse struct {
	Position      int       `json:"position"`
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	QueueNumber   string    `json:"queue_number,omitempty"`
	CheckedIn     bool      `json:"checked_in"`
	Waiting       string    `json:"waiting"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
