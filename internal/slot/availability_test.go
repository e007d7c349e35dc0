package slot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/slot"
)

func futureGrid(t *testing.T) slot.Set {
	t.Helper()
	rules := testRules(t)
	date, err := rules.ParseDate("2024-06-10")
	require.NoError(t, err)
	now := time.Date(2024, 5, 3, 10, 0, 0, 0, vancouver(t))
	return rules.DayGrid(date, now)
}

func TestAvailableOnEmptyDay(t *testing.T) {
	grid := futureGrid(t)
	require.Equal(t, 17, grid.Len())

	checkIns := slot.Available(grid, slot.CheckIn, nil)
	assert.Equal(t, grid.Len()-1, checkIns.Len())
	assert.False(t, checkIns.Has("202406101700"))
	assert.True(t, checkIns.Has("202406101630"))

	standard := slot.Available(grid, slot.Standard, nil)
	assert.Equal(t, grid.Len()-2, standard.Len())
	assert.False(t, standard.Has("202406101630"))
	assert.True(t, standard.Has("202406101600"))

	initial := slot.Available(grid, slot.InitialConsultation, nil)
	assert.Equal(t, grid.Len()-3, initial.Len())
	assert.False(t, initial.Has("202406101600"))
	assert.True(t, initial.Has("202406101530"))
}

func TestAvailableNeverIncludesTrailingSlots(t *testing.T) {
	grid := futureGrid(t)
	keys := grid.Sorted()

	for _, tc := range []struct {
		typ      slot.AppointmentType
		trailing int
	}{
		{slot.Standard, 1},
		{slot.InitialConsultation, 2},
	} {
		available := slot.Available(grid, tc.typ, slot.Set{})
		for _, k := range keys[len(keys)-tc.trailing:] {
			assert.False(t, available.Has(k), "%s should not fit at %s", tc.typ, k)
		}
	}
}

func TestAvailableRespectsOccupiedSpans(t *testing.T) {
	grid := futureGrid(t)
	occupied := slot.Occupancy(map[slot.Key]slot.AppointmentType{
		"202406100900": slot.InitialConsultation,
	})
	assert.Equal(t, slot.NewSet("202406100900", "202406100930", "202406101000"), occupied)

	standard := slot.Available(grid, slot.Standard, occupied)
	assert.False(t, standard.Has("202406100900"))
	assert.False(t, standard.Has("202406100930"))
	assert.False(t, standard.Has("202406101000"))
	assert.True(t, standard.Has("202406101030"))

	checkIns := slot.Available(grid, slot.CheckIn, occupied)
	assert.True(t, checkIns.Has("202406101030"))
	assert.False(t, checkIns.Has("202406101000"))
}

func TestAvailableBackToBack(t *testing.T) {
	grid := futureGrid(t)
	occupied := slot.Occupancy(map[slot.Key]slot.AppointmentType{
		"202406101000": slot.CheckIn,
	})

	// Ending exactly where the next booking begins is fine.
	assert.True(t, slot.Available(grid, slot.Standard, occupied).Has("202406100900"))
	// Running into it is not.
	assert.False(t, slot.Available(grid, slot.InitialConsultation, occupied).Has("202406100900"))
	assert.False(t, slot.Available(grid, slot.Standard, occupied).Has("202406100930"))
}

func TestAvailableWithinDeadlineWindow(t *testing.T) {
	rules := testRules(t)
	loc := vancouver(t)
	date, err := rules.ParseDate("2024-05-03")
	require.NoError(t, err)

	grid := rules.DayGrid(date, time.Date(2024, 5, 3, 12, 20, 0, 0, loc))
	standard := slot.Available(grid, slot.Standard, nil)

	assert.Equal(t, []slot.Key{"202405031430", "202405031500", "202405031530", "202405031600"}, standard.Sorted())
}

func TestAvailableEmptyGrid(t *testing.T) {
	assert.Zero(t, slot.Available(slot.Set{}, slot.Standard, nil).Len())
	assert.Zero(t, slot.Available(futureGrid(t), slot.AppointmentType(0), nil).Len())
}

func TestAppointmentTypes(t *testing.T) {
	for _, tc := range []struct {
		name     string
		typ      slot.AppointmentType
		slots    int
		duration time.Duration
	}{
		{"check_in", slot.CheckIn, 1, 30 * time.Minute},
		{"standard", slot.Standard, 2, time.Hour},
		{"initial_consultation", slot.InitialConsultation, 3, 90 * time.Minute},
	} {
		parsed, err := slot.ParseAppointmentType(tc.name)
		require.NoError(t, err)
		assert.Equal(t, tc.typ, parsed)
		assert.Equal(t, tc.name, tc.typ.String())
		assert.Equal(t, tc.slots, tc.typ.Slots())
		assert.Equal(t, tc.duration, tc.typ.Duration())
		assert.True(t, tc.typ.Valid())
	}

	_, err := slot.ParseAppointmentType("surgery")
	assert.ErrorIs(t, err, slot.ErrUnknownAppointmentType)
	assert.False(t, slot.AppointmentType(9).Valid())
	assert.Equal(t, "AppointmentType(9)", slot.AppointmentType(9).String())
}

func TestSpan(t *testing.T) {
	assert.Equal(t, []slot.Key{"202406101530", "202406101600", "202406101630"}, slot.Span("202406101530", slot.InitialConsultation))
	assert.Equal(t, []slot.Key{"202406101530"}, slot.Span("202406101530", slot.CheckIn))
}
