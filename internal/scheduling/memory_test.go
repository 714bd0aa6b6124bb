package scheduling

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-scheduling/internal/config"
)

// memRepo is an in-memory Repository for tests.
type memRepo struct {
	mu            sync.Mutex
	appointments  map[string]*Appointment
	doctors       map[string]*Doctor
	notifications []Notification

	failDoctorList  bool
	failPatientList bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		appointments: make(map[string]*Appointment),
		doctors:      make(map[string]*Doctor),
	}
}

var errStoreDown = errors.New("store unavailable")

func (m *memRepo) GetAppointment(_ context.Context, id string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) ListAppointments(_ context.Context, f AppointmentFilter) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f.DoctorID != "" && m.failDoctorList {
		return nil, errStoreDown
	}
	if f.PatientID != "" && m.failPatientList {
		return nil, errStoreDown
	}

	var result []Appointment
	for _, a := range m.appointments {
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if len(f.StatusIn) > 0 {
			match := false
			for _, s := range f.StatusIn {
				if a.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if !f.From.IsZero() && a.ScheduledAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !a.ScheduledAt.Before(f.To) {
			continue
		}
		result = append(result, *a)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledAt.Before(result[j].ScheduledAt)
	})

	return result, nil
}

func (m *memRepo) CreateAppointment(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.appointments[a.AppointmentID] = &cp
	return nil
}

func (m *memRepo) UpdateAppointment(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[a.AppointmentID]; !ok {
		return ErrAppointmentNotFound
	}
	cp := *a
	m.appointments[a.AppointmentID] = &cp
	return nil
}

func (m *memRepo) GetDoctor(_ context.Context, id string) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	cp.Schedules = append([]ScheduleEntry(nil), d.Schedules...)
	return &cp, nil
}

func (m *memRepo) ListDoctors(_ context.Context) ([]Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Doctor
	for _, d := range m.doctors {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DoctorID < result[j].DoctorID
	})
	return result, nil
}

func (m *memRepo) CreateDoctor(_ context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.doctors[d.DoctorID]; ok {
		return nil
	}
	cp := *d
	m.doctors[d.DoctorID] = &cp
	return nil
}

func (m *memRepo) UpsertSchedule(_ context.Context, doctorID string, e ScheduleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	for i := range d.Schedules {
		if d.Schedules[i].Date == e.Date {
			d.Schedules[i] = e
			return nil
		}
	}
	d.Schedules = append(d.Schedules, e)
	return nil
}

func (m *memRepo) InsertNotification(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, *n)
	return nil
}

// noopLocker runs the critical section without any locking.
type noopLocker struct{}

func (noopLocker) WithDoctorLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// testNow is the fixed clock all service tests run against.
var testNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo *memRepo) *Service {
	t.Helper()

	cfg := config.Config{
		ConflictWindow:  30 * time.Minute,
		SlotLength:      30 * time.Minute,
		WaitPerPosition: 15 * time.Minute,
		NoShowGrace:     2 * time.Hour,
	}

	svc := NewService(repo, noopLocker{}, cfg, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

// at returns a time on the fixed test day, e.g. at(10, 15) is 10:15.
func at(hour, min int) time.Time {
	return time.Date(2025, 6, 1, hour, min, 0, 0, time.UTC)
}
