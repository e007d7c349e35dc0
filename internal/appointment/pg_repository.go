package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinic-scheduling/internal/slot"
)

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	db    DB
	rules slot.Rules
}

func NewPgRepository(db DB, rules slot.Rules) *PgRepository {
	return &PgRepository{db: db, rules: rules}
}

// Helpers

func (r *PgRepository) scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var (
		id        uuid.UUID
		name      string
		specialty *string
	)

	if err := row.Scan(&id, &name, &specialty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}

	p := NewPractitioner(name, r.rules)
	p.ID = id
	p.Specialty = specialty
	return p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var (
		id    uuid.UUID
		name  string
		email *string
	)

	if err := row.Scan(&id, &name, &email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p := NewPatient(name)
	p.ID = id
	p.Email = email
	return p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a           Appointment
		patientID   uuid.UUID
		patientName string
		start       string
		typ         string
	)

	err := row.Scan(
		&a.ID,
		&a.PractitionerID,
		&patientID,
		&patientName,
		&start,
		&typ,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	parsed, err := slot.ParseAppointmentType(typ)
	if err != nil {
		return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
	}

	a.Start = slot.Key(start)
	a.Type = parsed
	a.Patient = Patient{Person: Person{ID: patientID, Kind: KindPatient, name: patientName}}
	return &a, nil
}

// Interface methods

func (r *PgRepository) GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, specialty
		FROM practitioners
		WHERE id = $1
	`, id)
	return r.scanPractitioner(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	var name string
	err := r.db.QueryRow(ctx, `
		SELECT name
		FROM clinics
		WHERE id = $1
	`, id).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, err
	}

	c := NewClinic(name)
	c.ID = id

	rows, err := r.db.Query(ctx, `
		SELECT practitioner_id
		FROM clinic_practitioners
		WHERE clinic_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load clinic practitioners: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pid uuid.UUID
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		c.practitioners[pid] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

func (r *PgRepository) ListAppointments(ctx context.Context, practitionerID uuid.UUID, from, to slot.Key) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.practitioner_id, a.patient_id, p.name, a.start_key, a.appointment_type, a.created_at
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.practitioner_id = $1
		  AND a.start_key >= $2
		  AND a.start_key <= $3
		ORDER BY a.start_key
	`, practitionerID, string(from), string(to))
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

func (r *PgRepository) CreatePractitioner(ctx context.Context, p *Practitioner) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO practitioners (id, name, specialty, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`, p.ID, p.Name(), p.Specialty)
	if err != nil {
		return fmt.Errorf("insert practitioner: %w", err)
	}
	return nil
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO patients (id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`, p.ID, p.Name(), p.Email)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

// CreateClinic stores the clinic and its practitioner memberships in one
// transaction.
func (r *PgRepository) CreateClinic(ctx context.Context, c *Clinic) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO clinics (id, name, created_at, updated_at)
		VALUES ($1, $2, now(), now())
	`, c.ID, c.Name()); err != nil {
		return fmt.Errorf("insert clinic: %w", err)
	}

	for _, pid := range c.Practitioners() {
		if _, err := tx.Exec(ctx, `
			INSERT INTO clinic_practitioners (clinic_id, practitioner_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, c.ID, pid); err != nil {
			return fmt.Errorf("insert clinic practitioner: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// InsertAppointment relies on the (practitioner_id, start_key) unique
// constraint as a last line of defence: a conflicting row returns
// ErrSlotUnavailable.
func (r *PgRepository) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	var createdAt time.Time
	err := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, practitioner_id, patient_id, start_key, appointment_type, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (practitioner_id, start_key) DO NOTHING
		RETURNING created_at
	`, a.ID, a.PractitionerID, a.Patient.ID, string(a.Start), a.Type.String()).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s already taken", ErrSlotUnavailable, a.Start)
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	a.CreatedAt = createdAt
	return &a, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
