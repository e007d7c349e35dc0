package appointment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/slot"
)

var ErrUnsupportedKind = errors.New("unsupported person kind")

// Kind discriminates the person variants.
type Kind string

const (
	KindPerson       Kind = "person"
	KindPractitioner Kind = "practitioner"
	KindPatient      Kind = "patient"
)

type Person struct {
	ID   uuid.UUID
	Kind Kind
	name string
}

func (p Person) Name() string         { return p.name }
func (p *Person) SetName(name string) { p.name = name }

// Identity lets every variant be handled as a Member.
func (p *Person) Identity() *Person { return p }

// Member is implemented by Person, Practitioner and Patient.
type Member interface {
	Identity() *Person
}

type Patient struct {
	Person
	Email *string
}

func NewPatient(name string) *Patient {
	return &Patient{Person: Person{ID: uuid.New(), Kind: KindPatient, name: name}}
}

// Practitioner owns exactly one Schedule.
type Practitioner struct {
	Person
	Specialty *string
	schedule  *Schedule
}

func NewPractitioner(name string, rules slot.Rules) *Practitioner {
	return &Practitioner{
		Person:   Person{ID: uuid.New(), Kind: KindPractitioner, name: name},
		schedule: NewSchedule(rules),
	}
}

func (p *Practitioner) Schedule() *Schedule { return p.schedule }

// NewMember builds the variant selected by kind.
func NewMember(kind Kind, name string, rules slot.Rules) (Member, error) {
	switch kind {
	case KindPractitioner:
		return NewPractitioner(name, rules), nil
	case KindPatient:
		return NewPatient(name), nil
	case KindPerson:
		return &Person{ID: uuid.New(), Kind: KindPerson, name: name}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
}

// Clinic only records which practitioners it recognizes.
type Clinic struct {
	ID            uuid.UUID
	name          string
	practitioners map[uuid.UUID]struct{}
}

func NewClinic(name string) *Clinic {
	return &Clinic{ID: uuid.New(), name: name, practitioners: map[uuid.UUID]struct{}{}}
}

func (c *Clinic) Name() string        { return c.name }
func (c *Clinic) SetName(name string) { c.name = name }

func (c *Clinic) AddPractitioner(p *Practitioner) {
	c.practitioners[p.ID] = struct{}{}
}

func (c *Clinic) HasPractitioner(id uuid.UUID) bool {
	_, ok := c.practitioners[id]
	return ok
}

func (c *Clinic) Practitioners() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.practitioners))
	for id := range c.practitioners {
		ids = append(ids, id)
	}
	return ids
}

// Appointment is a value: it is built once and copied, never updated.
type Appointment struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	Start          slot.Key
	Type           slot.AppointmentType
	Patient        Patient
	CreatedAt      time.Time
}

func NewAppointment(practitionerID uuid.UUID, start slot.Key, typ slot.AppointmentType, patient Patient) Appointment {
	return Appointment{
		ID:             uuid.New(),
		PractitionerID: practitionerID,
		Start:          start,
		Type:           typ,
		Patient:        patient,
	}
}

// End is the instant the appointment finishes.
func (a Appointment) End(loc *time.Location) (time.Time, error) {
	start, err := a.Start.In(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(a.Type.Duration()), nil
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
