package slot

import (
	"fmt"
	"sort"
	"time"
)

// Set is a presence-only collection of slot keys.
type Set map[Key]struct{}

func NewSet(keys ...Key) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s Set) Add(k Key) { s[k] = struct{}{} }

func (s Set) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

func (s Set) Len() int { return len(s) }

// Sorted returns the keys in chronological order.
func (s Set) Sorted() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ParseDate parses a YYYY-MM-DD day in the clinic timezone.
func (r Rules) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, r.Loc())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// DayGrid lists every bookable start for the calendar day of date, as seen
// from now. date contributes only its year, month and day. Past days are empty; today is empty once now is within the lead
// time of closing; otherwise each candidate must start at least LeadTime
// after now.
func (r Rules) DayGrid(date, now time.Time) Set {
	loc := r.Loc()
	now = now.In(loc)
	day := civilDay(date, loc)
	today := midnight(now, loc)

	grid := Set{}
	startHour := r.OpenHour

	switch {
	case today.After(day):
		return grid
	case today.Equal(day):
		if now.Hour() >= r.CloseHour-r.leadHours() {
			return grid
		}
		if now.Hour() > r.OpenHour {
			startHour = now.Hour()
		}
	}

	deadline := now.Add(r.LeadTime)
	r.eachSlot(day, startHour, func(k Key, at time.Time) {
		if !at.Before(deadline) {
			grid.Add(k)
		}
	})
	return grid
}

// FullDayGrid lists every slot of the day with no deadline trimming. It is
// the key domain used when listing a day's bookings.
func (r Rules) FullDayGrid(date time.Time) Set {
	grid := Set{}
	r.eachSlot(civilDay(date, r.Loc()), r.OpenHour, func(k Key, _ time.Time) {
		grid.Add(k)
	})
	return grid
}

// eachSlot walks startHour..CloseHour inclusive. The closing hour only
// contributes its :00 slot.
func (r Rules) eachSlot(day time.Time, startHour int, fn func(Key, time.Time)) {
	y, m, d := day.Date()
	minutes := r.sortedMinutes()
	for hour := startHour; hour <= r.CloseHour; hour++ {
		for _, minute := range minutes {
			if hour == r.CloseHour && minute != 0 {
				break
			}
			fn(keyOf(y, m, d, hour, minute), time.Date(y, m, d, hour, minute, 0, 0, day.Location()))
		}
	}
}

// civilDay keeps date's own calendar day and anchors it in loc, so a
// 2024-05-04 built in any zone means May 4 at the clinic.
func civilDay(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// midnight is the start of the clinic day containing the instant t.
func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
