package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/clinicdesk/clinic-scheduling/internal/db"
	"github.com/clinicdesk/clinic-scheduling/internal/scheduling"
)

const (
	doctorCount      = 20
	appointmentCount = 300
	scheduleDays     = 5
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Medicine",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, getEnv("MIGRATIONS_DIR", "migrations")); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	repo := scheduling.NewPgRepository(pool)

	doctorIDs, err := seedDoctors(ctx, repo)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedAppointments(ctx, repo, doctorIDs); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, repo *scheduling.PgRepository) ([]string, error) {
	log.Printf("seeding %d doctors", doctorCount)

	today := time.Now()
	ids := make([]string, 0, doctorCount)

	for i := 0; i < doctorCount; i++ {
		doctorID := fmt.Sprintf("D%03d", i+1)
		doc := &scheduling.Doctor{
			DoctorID:  doctorID,
			Name:      "Dr. " + gofakeit.Name(),
			Specialty: specialties[gofakeit.Number(0, len(specialties)-1)],
		}
		if err := repo.CreateDoctor(ctx, doc); err != nil {
			return nil, err
		}

		for d := 0; d < scheduleDays; d++ {
			entry := scheduling.ScheduleEntry{
				Date:      today.AddDate(0, 0, d).Format("2006-01-02"),
				StartTime: "09:00",
				EndTime:   "17:00",
				Available: true,
				UpdatedAt: time.Now(),
			}
			if err := repo.UpsertSchedule(ctx, doctorID, entry); err != nil {
				return nil, err
			}
		}

		ids = append(ids, doctorID)
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedAppointments(ctx context.Context, repo *scheduling.PgRepository, doctorIDs []string) error {
	log.Printf("seeding %d appointments", appointmentCount)

	now := time.Now()
	created := 0

	for created < appointmentCount {
		doctorID := doctorIDs[rand.IntN(len(doctorIDs))]
		patientID := fmt.Sprintf("P%04d", gofakeit.Number(1, 2000))

		// Random half-hour mark within working hours over the next few days
		day := rand.IntN(scheduleDays)
		halfHour := rand.IntN(16) // 09:00 .. 16:30
		at := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location()).
			AddDate(0, 0, day).
			Add(time.Duration(halfHour) * 30 * time.Minute)

		appt := &scheduling.Appointment{
			AppointmentID: fmt.Sprintf("APT%d%03d", time.Now().UnixMilli(), rand.IntN(1000)),
			PatientID:     patientID,
			DoctorID:      doctorID,
			ScheduledAt:   at,
			Status:        scheduling.StatusConfirmed,
			BookedAt:      now,
		}

		err := repo.CreateAppointment(ctx, appt)
		if errors.Is(err, scheduling.ErrDuplicateSlot) {
			// Slot taken by an earlier iteration, roll again
			continue
		}
		if err != nil {
			return err
		}
		created++

		if created%100 == 0 {
			log.Printf("appointments seeded: %d/%d", created, appointmentCount)
		}
	}

	log.Println("appointments seeded")
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
