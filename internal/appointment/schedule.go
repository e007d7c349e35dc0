package appointment

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hackgods/clinic-scheduling/internal/slot"
)

var ErrSlotUnavailable = errors.New("time slot is not available to book")

// Schedule maps start keys to booked appointments for one practitioner.
// Book holds the write lock across its check and insert, so concurrent
// callers on the same Schedule are serialized.
type Schedule struct {
	mu      sync.RWMutex
	rules   slot.Rules
	entries map[slot.Key]Appointment
}

func NewSchedule(rules slot.Rules) *Schedule {
	return &Schedule{rules: rules, entries: map[slot.Key]Appointment{}}
}

// Day returns the bookings whose start falls on date's grid.
func (s *Schedule) Day(date time.Time) map[slot.Key]Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[slot.Key]Appointment{}
	for k := range s.rules.FullDayGrid(date) {
		if a, ok := s.entries[k]; ok {
			out[k] = a
		}
	}
	return out
}

// FromNow returns every booking starting at or after now.
func (s *Schedule) FromNow(now time.Time) map[slot.Key]Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	floor := slot.FormatKey(now.In(s.rules.Loc()))
	out := map[slot.Key]Appointment{}
	for k, a := range s.entries {
		if k >= floor {
			out[k] = a
		}
	}
	return out
}

// Available lists the starts on date where an appointment of type t can
// still be booked as of now.
func (s *Schedule) Available(date time.Time, t slot.AppointmentType, now time.Time) slot.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available(date, t, now)
}

func (s *Schedule) available(date time.Time, t slot.AppointmentType, now time.Time) slot.Set {
	return slot.Available(s.rules.DayGrid(date, now), t, s.occupied())
}

func (s *Schedule) occupied() slot.Set {
	booked := make(map[slot.Key]slot.AppointmentType, len(s.entries))
	for k, a := range s.entries {
		booked[k] = a.Type
	}
	return slot.Occupancy(booked)
}

// Book inserts a if its start is available for its type on its own day.
// Nothing changes when it is not.
func (s *Schedule) Book(a Appointment, now time.Time) error {
	start, err := a.Start.In(s.rules.Loc())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStartTime, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available(start, a.Type, now).Has(a.Start) {
		return fmt.Errorf("%w: %s %s", ErrSlotUnavailable, a.Start, a.Type)
	}
	s.entries[a.Start] = a
	return nil
}

// Restore loads an already persisted booking without re-running the
// availability check.
func (s *Schedule) Restore(a Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[a.Start] = a
}

func (s *Schedule) Get(k slot.Key) (Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.entries[k]
	return a, ok
}

func (s *Schedule) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
