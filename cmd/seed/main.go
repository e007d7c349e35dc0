package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/slot"
)

var specialties = []string{
	"Family Medicine",
	"Physiotherapy",
	"Naturopathy",
	"Chiropractic",
	"Massage Therapy",
	"Acupuncture",
	"Counselling",
	"Dietetics",
}

type seeder struct {
	logger zerolog.Logger
	repo   appointment.Repository
	rules  slot.Rules
	faker  *gofakeit.Faker
}

func main() {
	logger := logging.New(os.Getenv("APP_ENV"), "seed")
	logger.Info().Msg("seed starting")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	rules := cfg.Rules()
	s := seeder{
		logger: logger,
		repo:   appointment.NewPgRepository(pool, rules),
		rules:  rules,
		faker:  gofakeit.New(uint64(time.Now().UnixNano())),
	}

	seedCtx := context.Background()

	clinic, err := s.seedClinic(seedCtx, getInt("SEED_PRACTITIONERS", 20))
	if err != nil {
		logger.Fatal().Err(err).Msg("seed clinic")
	}
	if err := s.seedPatients(seedCtx, getInt("SEED_PATIENTS", 2000)); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	logger.Info().
		Str("clinic_id", clinic.ID.String()).
		Str("clinic", clinic.Name()).
		Msg("seed complete")
}

// seedClinic creates count practitioners and one clinic that recognizes all of them.
func (s seeder) seedClinic(ctx context.Context, count int) (*appointment.Clinic, error) {
	s.logger.Info().Int("count", count).Msg("seeding practitioners")

	clinic := appointment.NewClinic(s.faker.Company() + " Clinic")

	for i := 0; i < count; i++ {
		p := appointment.NewPractitioner("Dr. "+s.faker.Name(), s.rules)
		spec := specialties[s.faker.Number(0, len(specialties)-1)]
		p.Specialty = &spec

		if err := s.repo.CreatePractitioner(ctx, p); err != nil {
			return nil, err
		}
		clinic.AddPractitioner(p)
	}

	if err := s.repo.CreateClinic(ctx, clinic); err != nil {
		return nil, err
	}

	s.logger.Info().Int("count", count).Msg("practitioners seeded")
	return clinic, nil
}

func (s seeder) seedPatients(ctx context.Context, count int) error {
	s.logger.Info().Int("count", count).Msg("seeding patients")

	const progressEvery = 500

	for i := 1; i <= count; i++ {
		p := appointment.NewPatient(s.faker.Name())
		email := s.faker.Email()
		p.Email = &email

		if err := s.repo.CreatePatient(ctx, p); err != nil {
			return err
		}
		if i%progressEvery == 0 || i == count {
			s.logger.Info().Int("done", i).Int("total", count).Msg("patients seeded")
		}
	}

	return nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
