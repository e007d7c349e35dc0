package slot

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownAppointmentType = errors.New("unknown appointment type")

// AppointmentType is the closed set of appointment lengths.
type AppointmentType int

const (
	CheckIn AppointmentType = iota + 1
	Standard
	InitialConsultation
)

var appointmentTypeNames = map[AppointmentType]string{
	CheckIn:             "check_in",
	Standard:            "standard",
	InitialConsultation: "initial_consultation",
}

func ParseAppointmentType(s string) (AppointmentType, error) {
	for t, name := range appointmentTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAppointmentType, s)
}

func (t AppointmentType) String() string {
	if name, ok := appointmentTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("AppointmentType(%d)", int(t))
}

func (t AppointmentType) Valid() bool {
	_, ok := appointmentTypeNames[t]
	return ok
}

// Slots is the number of consecutive intervals the appointment occupies.
func (t AppointmentType) Slots() int {
	switch t {
	case CheckIn:
		return 1
	case Standard:
		return 2
	case InitialConsultation:
		return 3
	}
	return 0
}

func (t AppointmentType) Duration() time.Duration {
	return time.Duration(t.Slots()) * Interval
}

// Span lists the slots an appointment of type t starting at start occupies.
func Span(start Key, t AppointmentType) []Key {
	n := t.Slots()
	keys := make([]Key, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, start.Shift(i))
	}
	return keys
}

// Occupancy expands booked start keys into every slot their spans cover.
func Occupancy(booked map[Key]AppointmentType) Set {
	occupied := Set{}
	for start, t := range booked {
		for _, k := range Span(start, t) {
			occupied.Add(k)
		}
	}
	return occupied
}

// Available keeps the grid slots where an appointment of type t fits: every
// slot of its span is in the grid and unoccupied, and the slot right after
// the span (its end boundary) is still part of the grid. The end boundary
// rule keeps appointments from running past closing time or out of the
// deadline-trimmed window.
func Available(grid Set, t AppointmentType, occupied Set) Set {
	free := Set{}
	for k := range grid {
		if !occupied.Has(k) {
			free.Add(k)
		}
	}

	n := t.Slots()
	available := Set{}
	if n == 0 {
		return available
	}
	for start := range free {
		if fits(start, n, grid, free) {
			available.Add(start)
		}
	}
	return available
}

func fits(start Key, n int, grid, free Set) bool {
	for i := 1; i < n; i++ {
		if !free.Has(start.Shift(i)) {
			return false
		}
	}
	return grid.Has(start.Shift(n))
}
