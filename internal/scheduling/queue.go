package scheduling

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// EnsureQueueNumber returns the appointment's queue number, allocating one if
// none exists yet. Idempotent: once set, the same code comes back on every
// call and is never reassigned.
func (s *Service) EnsureQueueNumber(ctx context.Context, appointmentID string) (string, error) {
	if appointmentID == "" {
		return "", fmt.Errorf("%w: appointment id is required", ErrMissingFields)
	}

	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return "", err
	}

	if appt.QueueNumber != "" {
		return appt.QueueNumber, nil
	}

	appt.QueueNumber = s.newQueueNumber()

	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return "", err
	}

	return appt.QueueNumber, nil
}

// newQueueNumber builds a short display code from the current day of month
// and a bounded random suffix, e.g. Q0542.
func (s *Service) newQueueNumber() string {
	return fmt.Sprintf("Q%02d%02d", s.now().Day(), rand.IntN(99)+1)
}

// TodaysQueueByDoctor builds the current day's per-doctor service order from
// confirmed appointments, ordered by scheduled time. Positions are 1-based
// within each doctor's group. The view is driven purely by scheduled time:
// callers wanting arrival order filter on CheckedIn themselves.
func (s *Service) TodaysQueueByDoctor(ctx context.Context) (map[string][]QueueEntry, error) {
	now := s.now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)

	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{
		StatusIn: []Status{StatusConfirmed},
		From:     startOfToday,
		To:       startOfTomorrow,
	})
	if err != nil {
		return nil, fmt.Errorf("load today's appointments: %w", err)
	}

	queues := make(map[string][]QueueEntry)
	for _, a := range appts {
		position := len(queues[a.DoctorID]) + 1
		queues[a.DoctorID] = append(queues[a.DoctorID], QueueEntry{
			Position:      position,
			AppointmentID: a.AppointmentID,
			PatientID:     a.PatientID,
			DoctorID:      a.DoctorID,
			ScheduledAt:   a.ScheduledAt,
			QueueNumber:   a.QueueNumber,
			CheckedIn:     a.CheckedIn,
			Waiting:       waitingEstimate(position, s.cfg.WaitPerPosition),
		})
	}

	return queues, nil
}

// waitingEstimate renders (position-1) x perPosition as a human string.
func waitingEstimate(position int, perPosition time.Duration) string {
	wait := time.Duration(position-1) * perPosition
	if wait <= 0 {
		return "Now serving"
	}

	mins := int(wait.Minutes())
	if mins < 60 {
		return fmt.Sprintf("%d min", mins)
	}

	hours := mins / 60
	mins = mins % 60
	if mins == 0 {
		return fmt.Sprintf("%d hr", hours)
	}
	return fmt.Sprintf("%d hr %d min", hours, mins)
}
