package slot

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

type generateParams struct {
	year, month, day, hour, minute *int
}

// GenerateOption pins one component of a generated key.
type GenerateOption func(*generateParams)

func WithYear(year int) GenerateOption     { return func(p *generateParams) { p.year = &year } }
func WithMonth(month int) GenerateOption   { return func(p *generateParams) { p.month = &month } }
func WithDay(day int) GenerateOption       { return func(p *generateParams) { p.day = &day } }
func WithHour(hour int) GenerateOption     { return func(p *generateParams) { p.hour = &hour } }
func WithMinute(minute int) GenerateOption { return func(p *generateParams) { p.minute = &minute } }

// Generate builds a valid start key. Components that are not pinned, or that
// are pinned outside their domain, are drawn at random. Hours are drawn from
// [open, close-lead] so generated keys leave room for the booking deadline.
func (r Rules) Generate(opts ...GenerateOption) Key {
	var p generateParams
	for _, opt := range opts {
		opt(&p)
	}

	year := pick(p.year, 2000, 2099)
	month := pick(p.month, 1, 12)
	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := pick(p.day, 1, lastDay)
	hour := pick(p.hour, r.OpenHour, r.lastGeneratedHour())

	var minute int
	if p.minute != nil && r.allowsMinute(*p.minute) {
		minute = *p.minute
	} else {
		minutes := r.sortedMinutes()
		minute = minutes[gofakeit.Number(0, len(minutes)-1)]
	}

	return keyOf(year, time.Month(month), day, hour, minute)
}

func pick(v *int, lo, hi int) int {
	if v != nil && *v >= lo && *v <= hi {
		return *v
	}
	return gofakeit.Number(lo, hi)
}
