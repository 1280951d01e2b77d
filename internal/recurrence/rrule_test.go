package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"coursecal/internal/model"
)

func TestROption(t *testing.T) {
	until := at(time.December, 15, 9, 40)
	rule := model.RecurrenceRule{Frequency: FrequencyWeekly, Interval: 2, Until: &until, ByDay: []int{1, 7, 0}}
	dtstart := at(time.September, 1, 8, 0)

	opt := ROption(rule, dtstart)
	assert.Equal(t, rrule.WEEKLY, opt.Freq)
	assert.Equal(t, 2, opt.Interval)
	assert.True(t, opt.Until.Equal(until))
	assert.Equal(t, []rrule.Weekday{rrule.MO, rrule.SU}, opt.Byweekday)
	assert.True(t, opt.Dtstart.Equal(dtstart))
}

func TestValue(t *testing.T) {
	until := time.Date(2025, time.December, 15, 9, 40, 0, 0, cst)
	v := Value(model.RecurrenceRule{Frequency: FrequencyWeekly, Interval: 2, Until: &until, ByDay: []int{1}})

	assert.Contains(t, v, "FREQ=WEEKLY")
	assert.Contains(t, v, "INTERVAL=2")
	assert.Contains(t, v, "UNTIL=20251215T014000Z")
	assert.Contains(t, v, "BYDAY=MO")
	assert.NotContains(t, v, "DTSTART")
}

func TestExpandMatchesWeekList(t *testing.T) {
	weeks := []int{1, 2, 4, 5, 7}
	c := model.Course{
		Name:    "Networks",
		Start:   at(time.September, 1, 8, 0),
		End:     at(time.September, 1, 9, 40),
		Weeks:   weeks,
		Weekday: 1,
	}
	out, err := Attach([]model.Course{c}, autumn)
	require.NoError(t, err)

	got, err := Expand(out[0])
	require.NoError(t, err)
	require.Len(t, got, len(weeks))
	for i, w := range weeks {
		assert.True(t, got[i].Equal(autumn.At(w, 1, c.Start)), "week %d", w)
	}
}

func TestExpandInterval(t *testing.T) {
	c := model.Course{
		Name:    "Lab",
		Start:   at(time.September, 5, 14, 0),
		End:     at(time.September, 5, 17, 0),
		Weeks:   []int{3, 5, 7, 9},
		Weekday: 5,
	}
	rule, err := ForCourse(&c, autumn)
	require.NoError(t, err)
	c.Recurrence = rule

	got, err := Expand(c)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.True(t, got[0].Equal(at(time.September, 19, 14, 0)))
	assert.True(t, got[3].Equal(at(time.October, 31, 14, 0)))
}

func TestExpandSingle(t *testing.T) {
	start := at(time.November, 3, 9, 0)
	got, err := Expand(model.Course{Start: start})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{start}, got)
}
