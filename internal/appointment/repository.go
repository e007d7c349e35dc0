package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/slot"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrClinicNotFound       = errors.New("clinic not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error)

	// Bookings of one practitioner with from <= start <= to.
	ListAppointments(ctx context.Context, practitionerID uuid.UUID, from, to slot.Key) ([]Appointment, error)

	// Creation
	CreatePractitioner(ctx context.Context, p *Practitioner) error
	CreatePatient(ctx context.Context, p *Patient) error
	CreateClinic(ctx context.Context, c *Clinic) error
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
