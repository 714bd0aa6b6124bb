package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBookValidation(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	tests := []struct {
		name      string
		patientID string
		doctorID  string
		at        time.Time
		want      error
	}{
		{"missing patient", "", "D1", at(10, 0), ErrMissingFields},
		{"missing doctor", "P1", "", at(10, 0), ErrMissingFields},
		{"past time", "P1", "D1", at(7, 0), ErrInvalidTime},
		{"exactly now", "P1", "D1", testNow, ErrInvalidTime},
		{"zero time", "P1", "D1", time.Time{}, ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Book(ctx, tt.patientID, tt.doctorID, tt.at); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBookCreatesConfirmedAppointment(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)

	appt, err := svc.Book(context.Background(), "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	if !strings.HasPrefix(appt.AppointmentID, "APT") {
		t.Errorf("appointment id %q should carry the APT prefix", appt.AppointmentID)
	}
	if appt.Status != StatusConfirmed {
		t.Errorf("status = %s, want %s", appt.Status, StatusConfirmed)
	}
	if appt.CheckedIn {
		t.Error("new appointment should not be checked in")
	}
	if appt.QueueNumber != "" {
		t.Errorf("new appointment should have no queue number, got %q", appt.QueueNumber)
	}
	if !appt.BookedAt.Equal(testNow) {
		t.Errorf("bookedAt = %v, want %v", appt.BookedAt, testNow)
	}

	stored, err := repo.GetAppointment(context.Background(), appt.AppointmentID)
	if err != nil {
		t.Fatalf("appointment was not persisted: %v", err)
	}
	if !stored.ScheduledAt.Equal(at(10, 0)) {
		t.Errorf("scheduledAt = %v, want %v", stored.ScheduledAt, at(10, 0))
	}
}

func TestCancelIsNotIdempotent(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, appt.AppointmentID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %s, want %s", cancelled.Status, StatusCancelled)
	}
	if cancelled.CancelledAt == nil {
		t.Error("cancelledAt should be stamped")
	}

	if _, err := svc.Cancel(ctx, appt.AppointmentID); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second cancel should fail with ErrAlreadyCancelled, got %v", err)
	}
}

func TestCancelUnknownAppointment(t *testing.T) {
	svc := newTestService(t, newMemRepo())

	if _, err := svc.Cancel(context.Background(), "APT000"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("got %v, want ErrAppointmentNotFound", err)
	}
}

func TestRescheduleValidation(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	if _, err := svc.Reschedule(ctx, appt.AppointmentID, at(7, 0)); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("past reschedule: got %v, want ErrInvalidTime", err)
	}
	if _, err := svc.Reschedule(ctx, "APT000", at(12, 0)); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("unknown id: got %v, want ErrAppointmentNotFound", err)
	}
}

func TestRescheduleExcludesItselfFromConflictCheck(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	// 10:15 sits inside the appointment's own window; the move must not
	// collide with itself.
	moved, err := svc.Reschedule(ctx, appt.AppointmentID, at(10, 15))
	if err != nil {
		t.Fatalf("reschedule collided with itself: %v", err)
	}
	if !moved.ScheduledAt.Equal(at(10, 15)) {
		t.Errorf("scheduledAt = %v, want %v", moved.ScheduledAt, at(10, 15))
	}
	if moved.ModifiedAt == nil {
		t.Error("modifiedAt should be stamped")
	}
}

func TestRescheduleRechecksConflicts(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	if _, err := svc.Book(ctx, "P1", "D1", at(10, 0)); err != nil {
		t.Fatalf("book failed: %v", err)
	}
	second, err := svc.Book(ctx, "P2", "D1", at(14, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	if _, err := svc.Reschedule(ctx, second.AppointmentID, at(10, 15)); !errors.Is(err, ErrDoctorConflict) {
		t.Fatalf("reschedule onto an occupied window: got %v, want ErrDoctorConflict", err)
	}
}

func TestRescheduleThenCancelRoundTrip(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}
	if _, err := svc.Reschedule(ctx, appt.AppointmentID, at(15, 0)); err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if _, err := svc.Cancel(ctx, appt.AppointmentID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	final, err := repo.GetAppointment(ctx, appt.AppointmentID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if final.Status != StatusCancelled {
		t.Errorf("status = %s, want %s", final.Status, StatusCancelled)
	}
	if final.CancelledAt == nil {
		t.Error("cancelledAt should be set")
	}
	if !final.ScheduledAt.Equal(at(15, 0)) {
		t.Errorf("scheduledAt = %v, want the rescheduled time %v", final.ScheduledAt, at(15, 0))
	}
}

func TestSetStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		prepare []Status // transitions applied before the attempt
		target  Status
		wantErr error
	}{
		{"confirmed to in-consultation", nil, StatusInConsultation, nil},
		{"confirmed to completed", nil, StatusCompleted, nil},
		{"confirmed to no-show", nil, StatusNoShow, nil},
		{"in-consultation to completed", []Status{StatusInConsultation}, StatusCompleted, nil},
		{"completed is terminal", []Status{StatusCompleted}, StatusInConsultation, ErrTerminalStatus},
		{"no-show is terminal", []Status{StatusNoShow}, StatusCompleted, ErrTerminalStatus},
		{"unknown status rejected", nil, Status("bogus"), ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, newMemRepo())
			ctx := context.Background()

			appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
			if err != nil {
				t.Fatalf("book failed: %v", err)
			}
			for _, s := range tt.prepare {
				if _, err := svc.SetStatus(ctx, appt.AppointmentID, s); err != nil {
					t.Fatalf("prepare transition to %s failed: %v", s, err)
				}
			}

			updated, err := svc.SetStatus(ctx, appt.AppointmentID, tt.target)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("transition failed: %v", err)
			}
			if updated.Status != tt.target {
				t.Errorf("status = %s, want %s", updated.Status, tt.target)
			}
		})
	}
}

func TestSetStatusCancelledStampsCancelledAt(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	updated, err := svc.SetStatus(ctx, appt.AppointmentID, StatusCancelled)
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if updated.CancelledAt == nil {
		t.Error("cancelling via SetStatus must stamp cancelledAt")
	}
}

func TestSetStatusArrivedChecksIn(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	updated, err := svc.SetStatus(ctx, appt.AppointmentID, StatusArrived)
	if err != nil {
		t.Fatalf("arrived failed: %v", err)
	}
	if !updated.CheckedIn {
		t.Error("arrived should set the check-in flag")
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("arrival must not change the status enum, got %s", updated.Status)
	}
	if updated.QueueNumber == "" {
		t.Error("arrival should allocate a queue number")
	}
}

func TestCheckIn(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	checked, err := svc.CheckIn(ctx, appt.AppointmentID)
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if !checked.CheckedIn || checked.CheckedInAt == nil {
		t.Error("check-in should set flag and timestamp")
	}
	if checked.QueueNumber == "" {
		t.Error("check-in should allocate a queue number")
	}

	if _, err := svc.CheckIn(ctx, appt.AppointmentID); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("second check-in: got %v, want ErrAlreadyCheckedIn", err)
	}
}

func TestCheckInKeepsExistingQueueNumber(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	number, err := svc.EnsureQueueNumber(ctx, appt.AppointmentID)
	if err != nil {
		t.Fatalf("queue number failed: %v", err)
	}

	checked, err := svc.CheckIn(ctx, appt.AppointmentID)
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if checked.QueueNumber != number {
		t.Errorf("check-in changed the queue number: %q -> %q", number, checked.QueueNumber)
	}
}

func TestBookWalkIn(t *testing.T) {
	svc := newTestService(t, newMemRepo())

	appt, err := svc.BookWalkIn(context.Background(), "P1", "D1")
	if err != nil {
		t.Fatalf("walk-in failed: %v", err)
	}
	if !appt.ScheduledAt.Equal(testNow) {
		t.Errorf("walk-in should be scheduled now, got %v", appt.ScheduledAt)
	}
	if !appt.CheckedIn || appt.CheckedInAt == nil {
		t.Error("walk-in should arrive checked in")
	}
	if appt.QueueNumber == "" {
		t.Error("walk-in should get a queue number immediately")
	}
}

func TestSendNotification(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.SendNotification(ctx, "", "hello"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("missing patient: got %v", err)
	}
	if _, err := svc.SendNotification(ctx, "P1", "   "); !errors.Is(err, ErrMissingMessage) {
		t.Fatalf("blank message: got %v", err)
	}

	n, err := svc.SendNotification(ctx, "P1", "  your doctor is ready  ")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !strings.HasPrefix(n.NotificationID, "NOT") {
		t.Errorf("notification id %q should carry the NOT prefix", n.NotificationID)
	}
	if n.Message != "your doctor is ready" {
		t.Errorf("message should be trimmed, got %q", n.Message)
	}
	if len(repo.notifications) != 1 {
		t.Fatalf("expected 1 stored notification, got %d", len(repo.notifications))
	}
}

func TestCancelRecordsNotification(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}
	if _, err := svc.Cancel(ctx, appt.AppointmentID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if len(repo.notifications) != 1 {
		t.Fatalf("expected a cancellation notification, got %d", len(repo.notifications))
	}
	if repo.notifications[0].PatientID != "P1" {
		t.Errorf("notification should target the patient, got %q", repo.notifications[0].PatientID)
	}
}

func TestSweepNoShows(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	// Stale and never arrived: becomes a no-show
	stale := &Appointment{
		AppointmentID: "APT-stale",
		PatientID:     "P1",
		DoctorID:      "D1",
		ScheduledAt:   testNow.Add(-3 * time.Hour),
		Status:        StatusConfirmed,
		BookedAt:      testNow.Add(-24 * time.Hour),
	}
	// Stale but checked in: left alone
	arrived := &Appointment{
		AppointmentID: "APT-arrived",
		PatientID:     "P2",
		DoctorID:      "D1",
		ScheduledAt:   testNow.Add(-3 * time.Hour),
		Status:        StatusConfirmed,
		CheckedIn:     true,
		BookedAt:      testNow.Add(-24 * time.Hour),
	}
	// Still inside the grace period: left alone
	recent := &Appointment{
		AppointmentID: "APT-recent",
		PatientID:     "P3",
		DoctorID:      "D1",
		ScheduledAt:   testNow.Add(-time.Hour),
		Status:        StatusConfirmed,
		BookedAt:      testNow.Add(-24 * time.Hour),
	}
	for _, a := range []*Appointment{stale, arrived, recent} {
		if err := repo.CreateAppointment(ctx, a); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	marked, err := svc.SweepNoShows(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if marked != 1 {
		t.Fatalf("marked = %d, want 1", marked)
	}

	got, _ := repo.GetAppointment(ctx, "APT-stale")
	if got.Status != StatusNoShow {
		t.Errorf("stale appointment status = %s, want %s", got.Status, StatusNoShow)
	}
	got, _ = repo.GetAppointment(ctx, "APT-arrived")
	if got.Status != StatusConfirmed {
		t.Errorf("arrived appointment should be untouched, got %s", got.Status)
	}
	got, _ = repo.GetAppointment(ctx, "APT-recent")
	if got.Status != StatusConfirmed {
		t.Errorf("recent appointment should be untouched, got %s", got.Status)
	}
}
