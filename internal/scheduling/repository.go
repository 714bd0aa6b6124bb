package scheduling

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDoctorNotFound      = errors.New("doctor not found")

	// ErrDuplicateSlot is returned by CreateAppointment when the store's
	// unique index on (doctor_id, scheduled_at) rejects the write. It is the
	// store-level backstop behind the distributed lock.
	ErrDuplicateSlot = errors.New("doctor already has an active appointment at that time")
)

// AppointmentFilter narrows ListAppointments. Zero-value fields are ignored.
// Results are always ordered by scheduled_at ascending.
type AppointmentFilter struct {
	DoctorID  string
	PatientID string
	StatusIn  []Status
	From      time.Time
	To        time.Time // exclusive
}

// Repository contains all store interactions needed by the service.
// The core never caches appointment state: every mutation re-reads the
// authoritative record first.
type Repository interface {
	GetAppointment(ctx context.Context, appointmentID string) (*Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error)
	CreateAppointment(ctx context.Context, appt *Appointment) error
	UpdateAppointment(ctx context.Context, appt *Appointment) error

	GetDoctor(ctx context.Context, doctorID string) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	CreateDoctor(ctx context.Context, doc *Doctor) error
	UpsertSchedule(ctx context.Context, doctorID string, entry ScheduleEntry) error

	InsertNotification(ctx context.Context, n *Notification) error
}
