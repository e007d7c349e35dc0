package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/clock"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/slot"
)

const (
	EventAppointmentBooked = "APPOINTMENT_BOOKED"
)

// lastKey bounds open ended schedule queries; keys never pass year 2099.
const lastKey slot.Key = "209912312359"

var (
	ErrInvalidStartTime       = errors.New("invalid appointment start time")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidAppointmentType = errors.New("invalid appointment type")
	ErrScheduleBusy           = errors.New("practitioner schedule is being updated, please retry")
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	rules   slot.Rules
	clock   *clock.Clock
	logger  zerolog.Logger
	metrics *metrics.SchedulingMetrics
}

type ServiceOption func(*Service)

func WithClock(c *clock.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.SchedulingMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(repo Repository, locker redisclient.Locker, rules slot.Rules, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		locker: locker,
		rules:  rules,
		clock:  clock.New(rules.Loc()),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type BookRequest struct {
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	Start          slot.Key
	Type           slot.AppointmentType
}

// Book reserves req.Start on the practitioner's schedule. The availability
// check and the insert run under the practitioner's distributed lock against
// a schedule freshly loaded from the repository.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	started := time.Now()
	appt, err := s.book(ctx, req)
	outcome := bookingOutcome(err)
	s.metrics.ObserveBooking(outcome, req.Type.String(), time.Since(started).Seconds())

	evt := s.logger.Info()
	if err != nil {
		evt = s.logger.Warn().Err(err)
	}
	evt.
		Str("practitioner_id", req.PractitionerID.String()).
		Str("patient_id", req.PatientID.String()).
		Str("start", req.Start.String()).
		Str("type", req.Type.String()).
		Str("outcome", outcome).
		Msg("booking")

	return appt, err
}

func (s *Service) book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if !s.rules.Validate(string(req.Start)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartTime, req.Start)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAppointmentType, req.Type)
	}
	date, err := s.rules.ParseDate(req.Start.Date())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStartTime, err)
	}

	practitioner, err := s.loadPractitioner(ctx, req.PractitionerID)
	if err != nil {
		return nil, err
	}

	patient, err := s.repo.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	var created *Appointment

	err = s.locker.WithPractitionerLock(ctx, practitioner.ID, func(lockCtx context.Context) error {
		// Inside the critical section the schedule reflects every committed booking.
		if err := s.loadDay(lockCtx, practitioner, date); err != nil {
			return err
		}

		appt := NewAppointment(practitioner.ID, req.Start, req.Type, *patient)
		if err := practitioner.Schedule().Book(appt, s.clock.Now()); err != nil {
			return err
		}

		saved, err := s.repo.InsertAppointment(lockCtx, appt)
		if err != nil {
			return err
		}
		created = saved

		s.logEvent(lockCtx, saved.ID, EventAppointmentBooked, map[string]any{
			"practitioner_id":  practitioner.ID.String(),
			"patient_id":       patient.ID.String(),
			"start":            saved.Start.String(),
			"appointment_type": saved.Type.String(),
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	return created, nil
}

// Availability lists the start keys on date where an appointment of type t
// can be booked with the practitioner right now.
func (s *Service) Availability(ctx context.Context, practitionerID uuid.UUID, date string, t slot.AppointmentType) ([]slot.Key, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAppointmentType, t)
	}
	day, err := s.rules.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	practitioner, err := s.loadPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	if err := s.loadDay(ctx, practitioner, day); err != nil {
		return nil, err
	}

	keys := practitioner.Schedule().Available(day, t, s.clock.Now()).Sorted()
	s.metrics.ObserveAvailability(t.String(), len(keys))
	return keys, nil
}

// DaySchedule returns the practitioner's bookings on date, in start order.
func (s *Service) DaySchedule(ctx context.Context, practitionerID uuid.UUID, date string) ([]Appointment, error) {
	day, err := s.rules.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	practitioner, err := s.loadPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	if err := s.loadDay(ctx, practitioner, day); err != nil {
		return nil, err
	}

	return sortAppointments(practitioner.Schedule().Day(day)), nil
}

// UpcomingSchedule returns every booking starting from now on.
func (s *Service) UpcomingSchedule(ctx context.Context, practitionerID uuid.UUID) ([]Appointment, error) {
	practitioner, err := s.loadPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	appts, err := s.repo.ListAppointments(ctx, practitioner.ID, slot.FormatKey(now), lastKey)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	for _, a := range appts {
		practitioner.Schedule().Restore(a)
	}

	return sortAppointments(practitioner.Schedule().FromNow(now)), nil
}

func (s *Service) loadPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	p, err := s.repo.GetPractitionerByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPractitionerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load practitioner: %w", err)
	}
	return p, nil
}

// loadDay restores the practitioner's persisted bookings for day.
func (s *Service) loadDay(ctx context.Context, p *Practitioner, day time.Time) error {
	prefix := day.Format("20060102")
	appts, err := s.repo.ListAppointments(ctx, p.ID, slot.Key(prefix+"0000"), slot.Key(prefix+"2359"))
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}
	for _, a := range appts {
		p.Schedule().Restore(a)
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, ErrSlotUnavailable):
		return metrics.OutcomeConflict
	case errors.Is(err, ErrScheduleBusy):
		return metrics.OutcomeBusy
	case errors.Is(err, ErrInvalidStartTime),
		errors.Is(err, ErrInvalidAppointmentType),
		errors.Is(err, ErrPractitionerNotFound),
		errors.Is(err, ErrPatientNotFound):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

func sortAppointments(m map[slot.Key]Appointment) []Appointment {
	out := make([]Appointment, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
