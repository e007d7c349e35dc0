package slot

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	// KeyLayout is the canonical YYYYMMDDHHMM slot timestamp.
	KeyLayout = "200601021504"
	// DateLayout is used for day level arguments.
	DateLayout = "2006-01-02"
)

// Key is a fixed-width civil timestamp in the clinic timezone. Lexicographic
// order of keys equals chronological order.
type Key string

func (k Key) String() string { return string(k) }

// FormatKey renders t as a key using t's own location.
func FormatKey(t time.Time) Key {
	return Key(t.Format(KeyLayout))
}

func keyOf(year int, month time.Month, day, hour, minute int) Key {
	return Key(fmt.Sprintf("%04d%02d%02d%02d%02d", year, int(month), day, hour, minute))
}

// In interprets the key as a wall clock time in loc.
func (k Key) In(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(KeyLayout, string(k), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot key %q: %w", string(k), err)
	}
	return t, nil
}

// Date returns the YYYY-MM-DD day the key falls on.
func (k Key) Date() string {
	if len(k) != len(KeyLayout) {
		return ""
	}
	s := string(k)
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8]
}

// Shift moves the key by n slot intervals using naive civil arithmetic.
// An unparsable key yields the empty key.
func (k Key) Shift(n int) Key {
	t, err := time.Parse(KeyLayout, string(k))
	if err != nil {
		return ""
	}
	return FormatKey(t.Add(time.Duration(n) * Interval))
}

// Validate reports whether s is a well formed start time: exactly twelve
// digits, year 2000-2099, a real calendar date, an hour in [open, close)
// and an allowed minute offset.
func (r Rules) Validate(s string) bool {
	if !r.keyPattern().MatchString(s) {
		return false
	}
	// time.Parse rejects days that do not exist in the month (Feb 30, Feb 29
	// outside leap years).
	_, err := time.Parse(KeyLayout, s)
	return err == nil
}

// keyPatterns caches one compiled pattern per hours/minutes combination.
var keyPatterns sync.Map

func (r Rules) keyPattern() *regexp.Regexp {
	hours := make([]string, 0, r.CloseHour-r.OpenHour)
	for h := r.OpenHour; h < r.CloseHour; h++ {
		hours = append(hours, fmt.Sprintf("%02d", h))
	}
	minutes := make([]string, 0, len(r.Minutes))
	for _, m := range r.sortedMinutes() {
		minutes = append(minutes, fmt.Sprintf("%02d", m))
	}

	expr := `^(20\d{2})` +
		`(0[1-9]|1[0-2])` +
		`(0[1-9]|[12]\d|3[01])` +
		`(` + strings.Join(hours, "|") + `)` +
		`(` + strings.Join(minutes, "|") + `)$`

	if re, ok := keyPatterns.Load(expr); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := keyPatterns.LoadOrStore(expr, regexp.MustCompile(expr))
	return re.(*regexp.Regexp)
}
