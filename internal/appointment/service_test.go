package appointment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/clock"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/slot"
)

type memoryRepo struct {
	mu            sync.Mutex
	rules         slot.Rules
	practitioners map[uuid.UUID]string
	patients      map[uuid.UUID]string
	clinics       map[uuid.UUID]*Clinic
	appointments  []Appointment
	events        []EventLog
	listErr       error
}

func newMemoryRepo(rules slot.Rules) *memoryRepo {
	return &memoryRepo{
		rules:         rules,
		practitioners: map[uuid.UUID]string{},
		patients:      map[uuid.UUID]string{},
		clinics:       map[uuid.UUID]*Clinic{},
	}
}

func (m *memoryRepo) GetPractitionerByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.practitioners[id]
	if !ok {
		return nil, ErrPractitionerNotFound
	}
	p := NewPractitioner(name, m.rules)
	p.ID = id
	return p, nil
}

func (m *memoryRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	p := NewPatient(name)
	p.ID = id
	return p, nil
}

func (m *memoryRepo) GetClinicByID(_ context.Context, id uuid.UUID) (*Clinic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clinics[id]
	if !ok {
		return nil, ErrClinicNotFound
	}
	return c, nil
}

func (m *memoryRepo) ListAppointments(_ context.Context, practitionerID uuid.UUID, from, to slot.Key) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Appointment
	for _, a := range m.appointments {
		if a.PractitionerID == practitionerID && a.Start >= from && a.Start <= to {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (m *memoryRepo) CreatePractitioner(_ context.Context, p *Practitioner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.practitioners[p.ID] = p.Name()
	return nil
}

func (m *memoryRepo) CreatePatient(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p.Name()
	return nil
}

func (m *memoryRepo) CreateClinic(_ context.Context, c *Clinic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clinics[c.ID] = c
	return nil
}

func (m *memoryRepo) InsertAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.appointments {
		if existing.PractitionerID == a.PractitionerID && existing.Start == a.Start {
			return nil, ErrSlotUnavailable
		}
	}
	a.CreatedAt = time.Now()
	m.appointments = append(m.appointments, a)
	return &a, nil
}

func (m *memoryRepo) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

type busyLocker struct{}

func (busyLocker) WithPractitionerLock(context.Context, uuid.UUID, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func newTestLocker(t *testing.T) redisclient.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisclient.NewRedisPractitionerLocker(client, 5*time.Second)
}

type fixture struct {
	svc          *Service
	repo         *memoryRepo
	rules        slot.Rules
	practitioner uuid.UUID
	patient      uuid.UUID
}

func newFixture(t *testing.T, now time.Time, locker redisclient.Locker) fixture {
	t.Helper()
	rules := testRules(t)
	repo := newMemoryRepo(rules)

	if locker == nil {
		locker = newTestLocker(t)
	}

	ctx := context.Background()
	practitioner := NewPractitioner("Dr. House", rules)
	require.NoError(t, repo.CreatePractitioner(ctx, practitioner))
	patient := NewPatient("John Doe")
	require.NoError(t, repo.CreatePatient(ctx, patient))

	svc := NewService(repo, locker, rules,
		WithClock(clock.Fixed(now)),
		WithMetrics(metrics.NewSchedulingMetrics(prometheus.NewRegistry())),
	)

	return fixture{svc: svc, repo: repo, rules: rules, practitioner: practitioner.ID, patient: patient.ID}
}

func (f fixture) request(start slot.Key, typ slot.AppointmentType) BookRequest {
	return BookRequest{PractitionerID: f.practitioner, PatientID: f.patient, Start: start, Type: typ}
}

func TestServiceBookPersistsAndRejectsConflict(t *testing.T) {
	f := newFixture(t, earlyMorning(t), nil)
	ctx := context.Background()

	appt, err := f.svc.Book(ctx, f.request("202405040900", slot.Standard))
	require.NoError(t, err)
	assert.Equal(t, slot.Key("202405040900"), appt.Start)
	assert.Equal(t, "John Doe", appt.Patient.Name())
	assert.False(t, appt.CreatedAt.IsZero())

	_, err = f.svc.Book(ctx, f.request("202405040900", slot.Standard))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = f.svc.Book(ctx, f.request("202405040930", slot.CheckIn))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	require.Len(t, f.repo.appointments, 1)
	assert.Equal(t, appt.ID, f.repo.appointments[0].ID)
	require.Len(t, f.repo.events, 1)
	assert.Equal(t, EventAppointmentBooked, f.repo.events[0].EventType)
	assert.JSONEq(t, `{
		"practitioner_id": "`+f.practitioner.String()+`",
		"patient_id": "`+f.patient.String()+`",
		"start": "202405040900",
		"appointment_type": "standard"
	}`, string(f.repo.events[0].Payload))
}

func TestServiceBookValidation(t *testing.T) {
	f := newFixture(t, earlyMorning(t), nil)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.request("202405041700", slot.CheckIn))
	assert.ErrorIs(t, err, ErrInvalidStartTime)

	_, err = f.svc.Book(ctx, f.request("2024-05-04", slot.CheckIn))
	assert.ErrorIs(t, err, ErrInvalidStartTime)

	_, err = f.svc.Book(ctx, f.request("202405040900", slot.AppointmentType(0)))
	assert.ErrorIs(t, err, ErrInvalidAppointmentType)

	req := f.request("202405040900", slot.CheckIn)
	req.PractitionerID = uuid.New()
	_, err = f.svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrPractitionerNotFound)

	req = f.request("202405040900", slot.CheckIn)
	req.PatientID = uuid.New()
	_, err = f.svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	assert.Empty(t, f.repo.appointments)
}

func TestServiceBookBusyPractitioner(t *testing.T) {
	f := newFixture(t, earlyMorning(t), busyLocker{})

	_, err := f.svc.Book(context.Background(), f.request("202405040900", slot.CheckIn))
	assert.ErrorIs(t, err, ErrScheduleBusy)
	assert.Empty(t, f.repo.appointments)
}

func TestServiceBookRepositoryFailure(t *testing.T) {
	f := newFixture(t, earlyMorning(t), nil)
	f.repo.listErr = errors.New("db down")

	_, err := f.svc.Book(context.Background(), f.request("202405040900", slot.CheckIn))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotUnavailable)
	assert.Equal(t, metrics.OutcomeError, bookingOutcome(err))
}

func TestServiceAvailability(t *testing.T) {
	f := newFixture(t, earlyMorning(t), nil)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.request("202405040900", slot.InitialConsultation))
	require.NoError(t, err)

	keys, err := f.svc.Availability(ctx, f.practitioner, "2024-05-04", slot.Standard)
	require.NoError(t, err)
	require.NotEmpty(t, keys)
	assert.Equal(t, slot.Key("202405041030"), keys[0])
	assert.Equal(t, slot.Key("202405041600"), keys[len(keys)-1])
	assert.Len(t, keys, 12)

	today, err := f.svc.Availability(ctx, f.practitioner, "2024-05-03", slot.CheckIn)
	require.NoError(t, err)
	assert.Len(t, today, 16)

	past, err := f.svc.Availability(ctx, f.practitioner, "2024-05-02", slot.CheckIn)
	require.NoError(t, err)
	assert.Empty(t, past)

	_, err = f.svc.Availability(ctx, f.practitioner, "05/04/2024", slot.CheckIn)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = f.svc.Availability(ctx, f.practitioner, "2024-05-04", slot.AppointmentType(7))
	assert.ErrorIs(t, err, ErrInvalidAppointmentType)

	_, err = f.svc.Availability(ctx, uuid.New(), "2024-05-04", slot.CheckIn)
	assert.ErrorIs(t, err, ErrPractitionerNotFound)
}

func TestServiceSchedules(t *testing.T) {
	f := newFixture(t, earlyMorning(t), nil)
	ctx := context.Background()

	for _, start := range []slot.Key{"202405031300", "202405040900", "202405031000"} {
		_, err := f.svc.Book(ctx, f.request(start, slot.CheckIn))
		require.NoError(t, err, start)
	}

	day, err := f.svc.DaySchedule(ctx, f.practitioner, "2024-05-03")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, slot.Key("202405031000"), day[0].Start)
	assert.Equal(t, slot.Key("202405031300"), day[1].Start)

	upcoming, err := f.svc.UpcomingSchedule(ctx, f.practitioner)
	require.NoError(t, err)
	require.Len(t, upcoming, 3)
	assert.Equal(t, slot.Key("202405040900"), upcoming[2].Start)

	_, err = f.svc.DaySchedule(ctx, f.practitioner, "bad")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestServiceUpcomingSkipsPast(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 3, 12, 0, 0, 0, testRules(t).Location), nil)
	ctx := context.Background()

	patient := Patient{Person: Person{ID: f.patient, Kind: KindPatient, name: "John Doe"}}
	_, err := f.repo.InsertAppointment(ctx, NewAppointment(f.practitioner, "202405030900", slot.CheckIn, patient))
	require.NoError(t, err)
	_, err = f.repo.InsertAppointment(ctx, NewAppointment(f.practitioner, "202405031500", slot.CheckIn, patient))
	require.NoError(t, err)

	upcoming, err := f.svc.UpcomingSchedule(ctx, f.practitioner)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, slot.Key("202405031500"), upcoming[0].Start)

	day, err := f.svc.DaySchedule(ctx, f.practitioner, "2024-05-03")
	require.NoError(t, err)
	assert.Len(t, day, 2)
}

func TestServiceConcurrentBookings(t *testing.T) {
	f := newFixture(t, earlyMorning(t), nil)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		outcome = map[string]int{}
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(ctx, f.request("202405041100", slot.Standard))
			mu.Lock()
			outcome[bookingOutcome(err)]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, outcome[metrics.OutcomeBooked])
	assert.Equal(t, 15, outcome[metrics.OutcomeConflict]+outcome[metrics.OutcomeBusy])
	assert.Len(t, f.repo.appointments, 1)
}

func TestServiceWithoutLocationUsesUTC(t *testing.T) {
	rules := slot.DefaultRules(nil)
	repo := newMemoryRepo(rules)
	ctx := context.Background()

	practitioner := NewPractitioner("Dr. House", rules)
	require.NoError(t, repo.CreatePractitioner(ctx, practitioner))
	patient := NewPatient("John Doe")
	require.NoError(t, repo.CreatePatient(ctx, patient))

	svc := NewService(repo, newTestLocker(t), rules)

	keys, err := svc.Availability(ctx, practitioner.ID, "2099-01-05", slot.Standard)
	require.NoError(t, err)
	assert.Len(t, keys, 15)

	appt, err := svc.Book(ctx, BookRequest{
		PractitionerID: practitioner.ID,
		PatientID:      patient.ID,
		Start:          "209901050900",
		Type:           slot.Standard,
	})
	require.NoError(t, err)
	assert.Equal(t, slot.Key("209901050900"), appt.Start)

	upcoming, err := svc.UpcomingSchedule(ctx, practitioner.ID)
	require.NoError(t, err)
	assert.Len(t, upcoming, 1)
}
