package scheduling

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-scheduling/internal/config"
	redisclient "github.com/clinicdesk/clinic-scheduling/internal/redis"
)

var (
	ErrMissingFields     = errors.New("patientId, doctorId and dateTime are required")
	ErrInvalidTime       = errors.New("appointment time must be in the future")
	ErrDoctorConflict    = errors.New("doctor already has an appointment near that time")
	ErrPatientConflict   = errors.New("patient already has an appointment near that time")
	ErrDoctorBusy        = errors.New("doctor is currently being booked, please retry")
	ErrAlreadyCancelled  = errors.New("appointment is already cancelled")
	ErrTerminalStatus    = errors.New("appointment is in a terminal status")
	ErrInvalidStatus     = errors.New("unknown appointment status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyCheckedIn  = errors.New("patient is already checked in")
	ErrMissingMessage    = errors.New("notification message cannot be empty")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	log    *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, log *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Book validates the request, runs both conflict checks and commits a new
// confirmed appointment. The conflict-check-then-insert section runs under a
// per-doctor distributed lock so two concurrent bookers for the same doctor
// cannot both pass the check before either commits.
func (s *Service) Book(ctx context.Context, patientID, doctorID string, at time.Time) (*Appointment, error) {
	if patientID == "" || doctorID == "" {
		return nil, ErrMissingFields
	}
	if !at.After(s.now()) {
		return nil, ErrInvalidTime
	}

	var created *Appointment

	err := s.locker.WithDoctorLock(ctx, doctorID, func(lockCtx context.Context) error {
		appt, err := s.bookLocked(lockCtx, patientID, doctorID, at, false)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDoctorBusy
		}
		return nil, err
	}

	s.log.Info("appointment booked",
		zap.String("appointment_id", created.AppointmentID),
		zap.String("doctor_id", doctorID),
		zap.Time("scheduled_at", at))

	return created, nil
}

// BookWalkIn books an appointment for immediate service. Walk-ins are exempt
// from the future-time precondition, get a queue number straight away and
// arrive checked in.
func (s *Service) BookWalkIn(ctx context.Context, patientID, doctorID string) (*Appointment, error) {
	if patientID == "" || doctorID == "" {
		return nil, ErrMissingFields
	}

	var created *Appointment

	err := s.locker.WithDoctorLock(ctx, doctorID, func(lockCtx context.Context) error {
		appt, err := s.bookLocked(lockCtx, patientID, doctorID, s.now(), true)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDoctorBusy
		}
		return nil, err
	}

	s.log.Info("walk-in booked",
		zap.String("appointment_id", created.AppointmentID),
		zap.String("doctor_id", doctorID),
		zap.String("queue_number", created.QueueNumber))

	return created, nil
}

// bookLocked runs inside the doctor lock: re-check conflicts, then insert.
func (s *Service) bookLocked(ctx context.Context, patientID, doctorID string, at time.Time, walkIn bool) (*Appointment, error) {
	collidingAt, err := s.doctorConflict(ctx, doctorID, at, "")
	if err != nil {
		return nil, err
	}
	if collidingAt != nil {
		return nil, fmt.Errorf("%w: existing appointment at %s", ErrDoctorConflict, collidingAt.Format("2006-01-02 15:04"))
	}

	if conflict, patientAt := s.patientConflict(ctx, patientID, at, ""); conflict {
		if patientAt != nil {
			return nil, fmt.Errorf("%w: existing appointment at %s", ErrPatientConflict, patientAt.Format("2006-01-02 15:04"))
		}
		return nil, fmt.Errorf("%w: could not verify existing appointments", ErrPatientConflict)
	}

	now := s.now()
	appt := &Appointment{
		AppointmentID: s.newAppointmentID(),
		PatientID:     patientID,
		DoctorID:      doctorID,
		ScheduledAt:   at,
		Status:        StatusConfirmed,
		BookedAt:      now,
	}

	if walkIn {
		checkedInAt := now
		appt.QueueNumber = s.newQueueNumber()
		appt.CheckedIn = true
		appt.CheckedInAt = &checkedInAt
	}

	if err := s.repo.CreateAppointment(ctx, appt); err != nil {
		return nil, err
	}

	return appt, nil
}

// Cancel moves an appointment to cancelled. Legal from any non-cancelled
// state; a second cancel is an error, not a no-op.
func (s *Service) Cancel(ctx context.Context, appointmentID string) (*Appointment, error) {
	if appointmentID == "" {
		return nil, fmt.Errorf("%w: appointment id is required", ErrMissingFields)
	}

	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	cancelledAt := s.now()
	appt.Status = StatusCancelled
	appt.CancelledAt = &cancelledAt

	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}

	s.notify(ctx, appt.PatientID,
		fmt.Sprintf("Your appointment %s has been cancelled", appt.AppointmentID))

	return appt, nil
}

// Reschedule moves an appointment to a new future time. Conflict checks are
// re-run against the new time, excluding the appointment being moved.
func (s *Service) Reschedule(ctx context.Context, appointmentID string, newTime time.Time) (*Appointment, error) {
	if appointmentID == "" {
		return nil, fmt.Errorf("%w: appointment id is required", ErrMissingFields)
	}
	if !newTime.After(s.now()) {
		return nil, ErrInvalidTime
	}

	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	var updated *Appointment

	err = s.locker.WithDoctorLock(ctx, appt.DoctorID, func(lockCtx context.Context) error {
		// Re-read inside the critical section
		appt, err := s.repo.GetAppointment(lockCtx, appointmentID)
		if err != nil {
			return err
		}

		collidingAt, err := s.doctorConflict(lockCtx, appt.DoctorID, newTime, appt.AppointmentID)
		if err != nil {
			return err
		}
		if collidingAt != nil {
			return fmt.Errorf("%w: existing appointment at %s", ErrDoctorConflict, collidingAt.Format("2006-01-02 15:04"))
		}

		if conflict, patientAt := s.patientConflict(lockCtx, appt.PatientID, newTime, appt.AppointmentID); conflict {
			if patientAt != nil {
				return fmt.Errorf("%w: existing appointment at %s", ErrPatientConflict, patientAt.Format("2006-01-02 15:04"))
			}
			return fmt.Errorf("%w: could not verify existing appointments", ErrPatientConflict)
		}

		modifiedAt := s.now()
		appt.ScheduledAt = newTime
		appt.ModifiedAt = &modifiedAt

		if err := s.repo.UpdateAppointment(lockCtx, appt); err != nil {
			return err
		}

		updated = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDoctorBusy
		}
		return nil, err
	}

	s.notify(ctx, updated.PatientID,
		fmt.Sprintf("Your appointment %s has been moved to %s", updated.AppointmentID, newTime.Format("2006-01-02 15:04")))

	return updated, nil
}

// transitions is the legal status state machine. Terminal statuses have no
// outgoing edges.
var transitions = map[Status]map[Status]bool{
	StatusConfirmed: {
		StatusInConsultation: true,
		StatusCompleted:      true,
		StatusNoShow:         true,
		StatusCancelled:      true,
	},
	StatusInConsultation: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
}

// SetStatus applies a status transition. The "arrived" pseudo-status routes
// to CheckIn; cancellation routes to Cancel so cancelled_at is stamped.
// Unknown targets are rejected rather than silently accepted.
func (s *Service) SetStatus(ctx context.Context, appointmentID string, target Status) (*Appointment, error) {
	if appointmentID == "" {
		return nil, fmt.Errorf("%w: appointment id is required", ErrMissingFields)
	}

	switch target {
	case StatusArrived:
		return s.CheckIn(ctx, appointmentID)
	case StatusCancelled:
		return s.Cancel(ctx, appointmentID)
	case StatusConfirmed, StatusCompleted, StatusNoShow, StatusInConsultation:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}

	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrTerminalStatus, appt.Status)
	}
	if !transitions[appt.Status][target] {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, target)
	}

	appt.Status = target

	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}

	return appt, nil
}

// CheckIn records physical arrival. A queue number is allocated first if the
// appointment has none; flag, timestamp and number land in a single write.
func (s *Service) CheckIn(ctx context.Context, appointmentID string) (*Appointment, error) {
	if appointmentID == "" {
		return nil, fmt.Errorf("%w: appointment id is required", ErrMissingFields)
	}

	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.CheckedIn {
		return nil, ErrAlreadyCheckedIn
	}

	if appt.QueueNumber == "" {
		appt.QueueNumber = s.newQueueNumber()
	}

	checkedInAt := s.now()
	appt.CheckedIn = true
	appt.CheckedInAt = &checkedInAt

	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}

	s.log.Info("patient checked in",
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("queue_number", appt.QueueNumber))

	return appt, nil
}

// ListPatientAppointments returns all of a patient's appointments, soonest
// first.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID string) ([]Appointment, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient id is required", ErrMissingFields)
	}
	return s.repo.ListAppointments(ctx, AppointmentFilter{PatientID: patientID})
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.repo.ListDoctors(ctx)
}

// SendNotification appends a patient-facing message record. Delivery is a
// collaborator concern.
func (s *Service) SendNotification(ctx context.Context, patientID, message string) (*Notification, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient id is required", ErrMissingFields)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrMissingMessage
	}

	n := &Notification{
		NotificationID: s.newNotificationID(),
		PatientID:      patientID,
		Message:        message,
		SentAt:         s.now(),
	}

	if err := s.repo.InsertNotification(ctx, n); err != nil {
		return nil, err
	}

	return n, nil
}

// SweepNoShows marks confirmed appointments whose scheduled time has been
// past the grace period, and whose patient never arrived, as no-shows.
// Intended to be called periodically by the worker.
func (s *Service) SweepNoShows(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.NoShowGrace)

	stale, err := s.repo.ListAppointments(ctx, AppointmentFilter{
		StatusIn: []Status{StatusConfirmed},
		To:       cutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("find stale appointments: %w", err)
	}

	marked := 0
	for i := range stale {
		appt := &stale[i]
		if appt.CheckedIn {
			continue
		}

		appt.Status = StatusNoShow
		if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
			s.log.Error("failed to mark no-show",
				zap.String("appointment_id", appt.AppointmentID),
				zap.Error(err))
			continue
		}

		s.notify(ctx, appt.PatientID,
			fmt.Sprintf("You missed your appointment %s", appt.AppointmentID))
		marked++
	}

	return marked, nil
}

// notify records a notification best-effort; a failed append never fails the
// operation that triggered it.
func (s *Service) notify(ctx context.Context, patientID, message string) {
	if _, err := s.SendNotification(ctx, patientID, message); err != nil {
		s.log.Warn("failed to record notification",
			zap.String("patient_id", patientID),
			zap.Error(err))
	}
}

func (s *Service) newAppointmentID() string {
	return fmt.Sprintf("APT%d%03d", s.now().UnixMilli(), rand.IntN(1000))
}

func (s *Service) newNotificationID() string {
	return fmt.Sprintf("NOT%d%03d", s.now().UnixMilli(), rand.IntN(1000))
}
