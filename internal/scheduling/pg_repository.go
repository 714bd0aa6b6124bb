package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `appointment_id, patient_id, doctor_id, scheduled_at, status,
	checked_in, queue_number, booked_at, cancelled_at, modified_at, checked_in_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var queueNumber *string

	err := row.Scan(
		&a.AppointmentID,
		&a.PatientID,
		&a.DoctorID,
		&a.ScheduledAt,
		&a.Status,
		&a.CheckedIn,
		&queueNumber,
		&a.BookedAt,
		&a.CancelledAt,
		&a.ModifiedAt,
		&a.CheckedInAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if queueNumber != nil {
		a.QueueNumber = *queueNumber
	}
	return &a, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.DoctorID,
		&d.Name,
		&d.Specialty,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) GetAppointment(ctx context.Context, appointmentID string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_id = $1
	`, appointmentID)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	where := []string{"TRUE"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.DoctorID != "" {
		where = append(where, "doctor_id = "+arg(f.DoctorID))
	}
	if f.PatientID != "" {
		where = append(where, "patient_id = "+arg(f.PatientID))
	}
	if len(f.StatusIn) > 0 {
		statuses := make([]string, len(f.StatusIn))
		for i, s := range f.StatusIn {
			statuses[i] = string(s)
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
	}
	if !f.From.IsZero() {
		where = append(where, "scheduled_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "scheduled_at < "+arg(f.To))
	}

	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY scheduled_at ASC
	`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (appointment_id, patient_id, doctor_id, scheduled_at, status,
			checked_in, queue_number, booked_at, cancelled_at, modified_at, checked_in_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
	`, a.AppointmentID, a.PatientID, a.DoctorID, a.ScheduledAt, a.Status,
		a.CheckedIn, nullableString(a.QueueNumber), a.BookedAt, a.CancelledAt, a.ModifiedAt, a.CheckedInAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlot
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	return nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    doctor_id = $3,
		    scheduled_at = $4,
		    status = $5,
		    checked_in = $6,
		    queue_number = $7,
		    cancelled_at = $8,
		    modified_at = $9,
		    checked_in_at = $10,
		    updated_at = now()
		WHERE appointment_id = $1
	`, a.AppointmentID, a.PatientID, a.DoctorID, a.ScheduledAt, a.Status,
		a.CheckedIn, nullableString(a.QueueNumber), a.CancelledAt, a.ModifiedAt, a.CheckedInAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlot
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}

	return nil
}

func (r *PgRepository) GetDoctor(ctx context.Context, doctorID string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT doctor_id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE doctor_id = $1
	`, doctorID)

	doc, err := scanDoctor(row)
	if err != nil {
		return nil, err
	}

	schedules, err := r.listSchedules(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	doc.Schedules = schedules

	return doc, nil
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_id, name, specialty, created_at, updated_at
		FROM doctors
		ORDER BY doctor_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		schedules, err := r.listSchedules(ctx, result[i].DoctorID)
		if err != nil {
			return nil, err
		}
		result[i].Schedules = schedules
	}

	return result, nil
}

func (r *PgRepository) CreateDoctor(ctx context.Context, d *Doctor) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (doctor_id, name, specialty, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (doctor_id) DO NOTHING
	`, d.DoctorID, d.Name, d.Specialty)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}

	return nil
}

func (r *PgRepository) UpsertSchedule(ctx context.Context, doctorID string, e ScheduleEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctor_schedules (doctor_id, date, start_time, end_time, available, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (doctor_id, date) DO UPDATE
		SET start_time = EXCLUDED.start_time,
		    end_time = EXCLUDED.end_time,
		    available = EXCLUDED.available,
		    updated_at = EXCLUDED.updated_at
	`, doctorID, e.Date, e.StartTime, e.EndTime, e.Available, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}

	return nil
}

func (r *PgRepository) InsertNotification(ctx context.Context, n *Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (notification_id, patient_id, message, sent_at)
		VALUES ($1, $2, $3, $4)
	`, n.NotificationID, n.PatientID, n.Message, n.SentAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (r *PgRepository) listSchedules(ctx context.Context, doctorID string) ([]ScheduleEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date, start_time, end_time, available, updated_at
		FROM doctor_schedules
		WHERE doctor_id = $1
		ORDER BY date ASC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScheduleEntry
	for rows.Next() {
		var e ScheduleEntry
		if err := rows.Scan(&e.Date, &e.StartTime, &e.EndTime, &e.Available, &e.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
