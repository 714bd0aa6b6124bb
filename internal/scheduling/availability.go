package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidSchedule = errors.New("schedule must include a valid date, startTime, endTime and available flag")

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// UpsertAvailability records a doctor's availability window for one date.
// The doctor record is created lazily with a placeholder name on first use.
// At most one entry exists per (doctor, date): an existing entry for the
// same date is replaced, otherwise the entry is appended.
func (s *Service) UpsertAvailability(ctx context.Context, doctorID string, entry ScheduleEntry) (*ScheduleEntry, error) {
	if doctorID == "" {
		return nil, fmt.Errorf("%w: doctor id is required", ErrMissingFields)
	}
	if err := validateScheduleEntry(entry); err != nil {
		return nil, err
	}

	_, err := s.repo.GetDoctor(ctx, doctorID)
	if err != nil {
		if !errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		doc := &Doctor{
			DoctorID:  doctorID,
			Name:      "Dr. " + doctorID,
			Specialty: "General Medicine",
		}
		if err := s.repo.CreateDoctor(ctx, doc); err != nil {
			return nil, err
		}
	}

	entry.UpdatedAt = s.now()

	if err := s.repo.UpsertSchedule(ctx, doctorID, entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func validateScheduleEntry(e ScheduleEntry) error {
	if _, err := time.Parse(dateLayout, e.Date); err != nil {
		return fmt.Errorf("%w: bad date %q", ErrInvalidSchedule, e.Date)
	}

	start, err := time.Parse(timeLayout, e.StartTime)
	if err != nil {
		return fmt.Errorf("%w: bad start time %q", ErrInvalidSchedule, e.StartTime)
	}
	end, err := time.Parse(timeLayout, e.EndTime)
	if err != nil {
		return fmt.Errorf("%w: bad end time %q", ErrInvalidSchedule, e.EndTime)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidSchedule)
	}

	return nil
}

// SlotsFor derives the bookable slot boundaries for a doctor on a date:
// half-hour marks from startTime up to but excluding endTime, when the
// doctor declared themselves available. No schedule, an unavailable one, or
// an unknown doctor all yield an empty list.
func (s *Service) SlotsFor(ctx context.Context, doctorID, date string) ([]string, error) {
	if doctorID == "" {
		return nil, fmt.Errorf("%w: doctor id is required", ErrMissingFields)
	}

	doc, err := s.repo.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, nil
		}
		return nil, err
	}

	for _, entry := range doc.Schedules {
		if entry.Date != date {
			continue
		}
		if !entry.Available {
			return nil, nil
		}
		return slotBoundaries(entry.StartTime, entry.EndTime, s.cfg.SlotLength), nil
	}

	return nil, nil
}

func slotBoundaries(startTime, endTime string, step time.Duration) []string {
	start, err := time.Parse(timeLayout, startTime)
	if err != nil {
		return nil
	}
	end, err := time.Parse(timeLayout, endTime)
	if err != nil {
		return nil
	}

	var slots []string
	for cur := start; cur.Before(end); cur = cur.Add(step) {
		slots = append(slots, cur.Format(timeLayout))
	}

	return slots
}
