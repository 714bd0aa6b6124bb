package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBookRejectsDoctorDoubleBooking(t *testing.T) {
	tests := []struct {
		name     string
		second   time.Time
		conflict bool
	}{
		{"same time", at(10, 0), true},
		{"15 min later", at(10, 15), true},
		{"15 min earlier", at(9, 45), true},
		{"30 min later, on the closed edge", at(10, 30), true},
		{"30 min earlier, outside the half-open window", at(9, 30), false},
		{"an hour later", at(11, 0), false},
		{"an hour earlier", at(9, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, newMemRepo())
			ctx := context.Background()

			if _, err := svc.Book(ctx, "P1", "D1", at(10, 0)); err != nil {
				t.Fatalf("first booking failed: %v", err)
			}

			_, err := svc.Book(ctx, "P2", "D1", tt.second)
			if tt.conflict {
				if !errors.Is(err, ErrDoctorConflict) {
					t.Fatalf("expected doctor conflict, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("expected booking to succeed, got %v", err)
			}
		})
	}
}

func TestConflictMessageNamesCollidingTime(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	if _, err := svc.Book(ctx, "P1", "D1", at(10, 0)); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	_, err := svc.Book(ctx, "P2", "D1", at(10, 15))
	if !errors.Is(err, ErrDoctorConflict) {
		t.Fatalf("expected doctor conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "10:00") {
		t.Fatalf("conflict message should name the colliding time, got %q", err.Error())
	}
}

func TestBookRejectsPatientDoubleBooking(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	ctx := context.Background()

	// Same patient, different doctors, overlapping window
	if _, err := svc.Book(ctx, "P1", "D1", at(10, 0)); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	_, err := svc.Book(ctx, "P1", "D2", at(10, 15))
	if !errors.Is(err, ErrPatientConflict) {
		t.Fatalf("expected patient conflict, got %v", err)
	}
}

func TestCancelledAppointmentsNeverBlock(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	appt, err := svc.Book(ctx, "P1", "D1", at(10, 0))
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if _, err := svc.Cancel(ctx, appt.AppointmentID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := svc.Book(ctx, "P2", "D1", at(10, 0)); err != nil {
		t.Fatalf("cancelled appointment should not block, got %v", err)
	}
}

func TestPatientConflictFailsClosed(t *testing.T) {
	repo := newMemRepo()
	repo.failPatientList = true
	svc := newTestService(t, repo)

	_, err := svc.Book(context.Background(), "P1", "D1", at(10, 0))
	if !errors.Is(err, ErrPatientConflict) {
		t.Fatalf("patient check must fail closed on store error, got %v", err)
	}
}

func TestDoctorConflictSurfacesStoreError(t *testing.T) {
	repo := newMemRepo()
	repo.failDoctorList = true
	svc := newTestService(t, repo)

	_, err := svc.Book(context.Background(), "P1", "D1", at(10, 0))
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrDoctorConflict) || errors.Is(err, ErrPatientConflict) {
		t.Fatalf("doctor check must surface the store error, not fabricate a conflict: %v", err)
	}
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
