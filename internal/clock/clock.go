package clock

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/hackgods/clinic-scheduling/internal/slot"
)

// Clock resolves "now" in the clinic timezone, either from the wall clock or
// from a pinned instant.
type Clock struct {
	loc   *time.Location
	fixed *time.Time
}

// New returns a wall clock in loc, UTC when loc is nil.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// Fixed returns a clock that always reports t, expressed in t's location.
func Fixed(t time.Time) *Clock {
	return &Clock{loc: t.Location(), fixed: &t}
}

func (c *Clock) Location() *time.Location { return c.loc }

func (c *Clock) Now() time.Time {
	if c.fixed != nil {
		return c.fixed.In(c.loc)
	}
	return time.Now().In(c.loc)
}

// At interprets a YYYYMMDDHHMM override as a wall clock time in the clinic
// timezone.
func (c *Clock) At(key string) (time.Time, error) {
	return slot.Key(key).In(c.loc)
}

// WithOverride returns a clock pinned to key. An empty key keeps the real
// clock.
func (c *Clock) WithOverride(key string) (*Clock, error) {
	if key == "" {
		return c, nil
	}
	t, err := c.At(key)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: c.loc, fixed: &t}, nil
}

// LoadLocation resolves an IANA zone from the embedded tz database when the
// host has none.
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

func MustLoadLocation(name string) *time.Location {
	loc, err := LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
