package scheduling

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// blockingStatuses are the statuses that occupy a slot for conflict purposes.
// Cancelled and no-show appointments never block a booking.
var blockingStatuses = []Status{StatusConfirmed, StatusCompleted}

// doctorConflict reports whether the doctor has a blocking appointment inside
// the conflict window [at-W, at+W). The window is symmetric and slot-sized so
// two visits can never land closer than one full slot apart. Returns the
// colliding appointment's time when there is one. Store failures surface to
// the caller.
func (s *Service) doctorConflict(ctx context.Context, doctorID string, at time.Time, excludeID string) (*time.Time, error) {
	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{
		DoctorID: doctorID,
		StatusIn: blockingStatuses,
		From:     at.Add(-s.cfg.ConflictWindow),
		To:       at.Add(s.cfg.ConflictWindow),
	})
	if err != nil {
		return nil, fmt.Errorf("check doctor conflicts: %w", err)
	}

	for _, a := range appts {
		if a.AppointmentID == excludeID {
			continue
		}
		collidingAt := a.ScheduledAt
		return &collidingAt, nil
	}

	return nil, nil
}

// patientConflict applies the same window to the patient's own appointments.
// It fails closed: if the lookup errors, the patient is reported as having a
// conflict rather than risking a silent double-booking.
func (s *Service) patientConflict(ctx context.Context, patientID string, at time.Time, excludeID string) (bool, *time.Time) {
	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{
		PatientID: patientID,
		StatusIn:  blockingStatuses,
		From:      at.Add(-s.cfg.ConflictWindow),
		To:        at.Add(s.cfg.ConflictWindow),
	})
	if err != nil {
		s.log.Warn("patient conflict lookup failed, failing closed",
			zap.String("patient_id", patientID),
			zap.Error(err))
		return true, nil
	}

	for _, a := range appts {
		if a.AppointmentID == excludeID {
			continue
		}
		collidingAt := a.ScheduledAt
		return true, &collidingAt
	}

	return false, nil
}
