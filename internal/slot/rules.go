package slot

import (
	"sort"
	"time"
)

const (
	// Interval is the spacing between two consecutive slots.
	Interval = 30 * time.Minute

	DefaultOpenHour  = 9
	DefaultCloseHour = 17
	DefaultLeadTime  = 2 * time.Hour
)

// DefaultMinutes are the minute offsets a slot may start at.
var DefaultMinutes = []int{0, 30}

// Rules holds the clinic-wide booking constants. One value is built at
// startup and shared by the clock and the grid generator.
type Rules struct {
	Location  *time.Location
	OpenHour  int
	CloseHour int
	LeadTime  time.Duration
	Minutes   []int
}

func DefaultRules(loc *time.Location) Rules {
	return Rules{
		Location:  loc,
		OpenHour:  DefaultOpenHour,
		CloseHour: DefaultCloseHour,
		LeadTime:  DefaultLeadTime,
		Minutes:   append([]int(nil), DefaultMinutes...),
	}
}

// leadHours is the lead time rounded up to whole hours.
func (r Rules) leadHours() int {
	return int((r.LeadTime + time.Hour - 1) / time.Hour)
}

// lastGeneratedHour is the latest start hour Generate will produce.
func (r Rules) lastGeneratedHour() int {
	h := r.CloseHour - r.leadHours()
	if h < r.OpenHour {
		return r.OpenHour
	}
	return h
}

func (r Rules) sortedMinutes() []int {
	m := append([]int(nil), r.Minutes...)
	sort.Ints(m)
	return m
}

func (r Rules) allowsMinute(minute int) bool {
	for _, m := range r.Minutes {
		if m == minute {
			return true
		}
	}
	return false
}

// Loc is the clinic timezone, UTC when none was configured.
func (r Rules) Loc() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}
