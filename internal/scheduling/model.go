package scheduling

import (
	"time"
)

type Status string

const (
	StatusConfirmed      Status = "confirmed"
	StatusCancelled      Status = "cancelled"
	StatusCompleted      Status = "completed"
	StatusNoShow         Status = "no-show"
	StatusInConsultation Status = "in-consultation"
)

// StatusArrived is not a stored status: setting it flips the check-in flag
// instead of changing the status enum.
const StatusArrived Status = "arrived"

// IsTerminal reports whether no further status transition is permitted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Appointment is the unit of scheduling. AppointmentID is the
// externally-visible business key; it never changes after creation.
type Appointment struct {
	AppointmentID string
	PatientID     string
	DoctorID      string
	ScheduledAt   time.Time
	Status        Status
	CheckedIn     bool
	QueueNumber   string // empty until assigned, then write-once
	BookedAt      time.Time
	CancelledAt   *time.Time
	ModifiedAt    *time.Time
	CheckedInAt   *time.Time
}

// ScheduleEntry is one per-date availability window for a doctor.
// Date is "2006-01-02", times are "15:04".
type ScheduleEntry struct {
	Date      string
	StartTime string
	EndTime   string
	Available bool
	UpdatedAt time.Time
}

type Doctor struct {
	DoctorID  string
	Name      string
	Specialty string
	Schedules []ScheduleEntry
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Notification is an append-only record of a patient-facing message.
// Delivery is someone else's problem; this core only records it.
type Notification struct {
	NotificationID string
	PatientID      string
	Message        string
	SentAt         time.Time
}

// QueueEntry is one row of the per-doctor daily queue view.
type QueueEntry struct {
	Position      int
	AppointmentID string
	PatientID     string
	DoctorID      string
	ScheduledAt   time.Time
	QueueNumber   string
	CheckedIn     bool
	Waiting       string
}
