package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careflow/clinic-scheduler/internal/db"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Str("component", "seed").Logger()

func main() {
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedDoctors(context.Background(), pool, 12)
	if err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedAvailability(context.Background(), pool, doctors); err != nil {
		log.Fatal().Err(err).Msg("seed availability")
	}
	if err := seedLeaves(context.Background(), pool, doctors); err != nil {
		log.Fatal().Err(err).Msg("seed leaves")
	}

	log.Info().Msg("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding doctors")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}
	durations := []int{15, 20, 30, 45}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		slotDur := durations[gofakeit.Number(0, len(durations)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, slot_duration_minutes, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, true, now(), now())
		`, id, name, spec, slotDur)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Msg("doctors seeded")
	return ids, nil
}

// seedAvailability gives every doctor a Monday-Friday schedule with a
// morning and an afternoon window separated by a lunch break.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, doctors []uuid.UUID) error {
	log.Info().Msg("seeding availability slots")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctors {
		for day := int(time.Monday); day <= int(time.Friday); day++ {
			windows := [][2]string{
				{"09:00:00", "12:30:00"},
				{"13:30:00", "17:00:00"},
			}
			for _, w := range windows {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_slots (id, doctor_id, day_of_week, start_time, end_time, created_at)
					VALUES ($1, $2, $3, $4::time, $5::time, now())
				`, uuid.New(), doctorID, day, w[0], w[1])
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("availability slots seeded")
	return nil
}

// seedLeaves gives roughly a third of the doctors one upcoming leave.
func seedLeaves(ctx context.Context, pool *pgxpool.Pool, doctors []uuid.UUID) error {
	log.Info().Msg("seeding leaves")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	reasons := []string{"Annual leave", "Conference", "Training", "Personal"}

	for _, doctorID := range doctors {
		if gofakeit.Number(0, 2) != 0 {
			continue
		}

		start := time.Now().AddDate(0, 0, gofakeit.Number(7, 45))
		end := start.AddDate(0, 0, gofakeit.Number(0, 5))
		reason := reasons[gofakeit.Number(0, len(reasons)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctor_leaves (id, doctor_id, start_date, end_date, reason, created_at)
			VALUES ($1, $2, $3::date, $4::date, $5, now())
		`, uuid.New(), doctorID, start.Format("2006-01-02"), end.Format("2006-01-02"), reason)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("leaves seeded")
	return nil
}
