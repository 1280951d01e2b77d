package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cst = time.FixedZone("CST", 8*3600)

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2025, time.January, 28)

	assert.Equal(t, NewDate(2025, time.February, 4), d.AddDays(7))
	assert.Equal(t, NewDate(2024, time.December, 31), d.AddDays(-28))
	assert.Equal(t, 7, NewDate(2025, time.February, 4).DaysSince(d))
	assert.Equal(t, -2, NewDate(2025, time.January, 26).DaysSince(d))
	assert.Equal(t, time.Tuesday, d.Weekday())
	assert.True(t, d.IsWorkday())
	assert.False(t, NewDate(2025, time.January, 26).IsWorkday())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-40)))
	assert.Equal(t, 0, d.Compare(NewDate(2025, time.January, 28)))
	assert.Equal(t, "2025-01-28", d.String())
}

func TestDateOfUsesOwnLocation(t *testing.T) {
	// 2025-01-27 20:00 UTC is already the 28th in UTC+8.
	instant := time.Date(2025, time.January, 27, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, NewDate(2025, time.January, 27), DateOf(instant))
	assert.Equal(t, NewDate(2025, time.January, 28), DateOf(instant.In(cst)))
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}
	data, err := json.Marshal(wrapper{D: NewDate(2025, time.October, 7)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2025-10-07"}`, string(data))

	var got wrapper
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, NewDate(2025, time.October, 7), got.D)

	assert.Error(t, json.Unmarshal([]byte(`{"d":"07/10/2025"}`), &got))
}

func TestSemester(t *testing.T) {
	// A Thursday snaps back to Monday 2025-01-06.
	sem := NewSemester(NewDate(2025, time.January, 9), cst)
	assert.True(t, sem.Start.Equal(time.Date(2025, time.January, 6, 0, 0, 0, 0, cst)))

	assert.Equal(t, NewDate(2025, time.February, 3), sem.OccurrenceDate(5, 1))
	assert.Equal(t, NewDate(2025, time.February, 9), sem.OccurrenceDate(5, 7))

	clock := time.Date(2025, time.January, 6, 14, 30, 0, 0, cst)
	got := sem.At(3, 2, clock)
	assert.True(t, got.Equal(time.Date(2025, time.January, 21, 14, 30, 0, 0, cst)))
}

func TestCourseActiveWeeks(t *testing.T) {
	c := Course{Weeks: []int{5, 1, 3, 3, 2}, Weekday: 1, OffWeeks: []int{2}}
	assert.Equal(t, []int{1, 3, 5}, c.ActiveWeeks())
	assert.True(t, c.HasSchedule())

	single := Course{Category: CategoryExam}
	assert.False(t, single.HasSchedule())
	assert.True(t, single.IsExam())
}

func TestCourseCloneIsDeep(t *testing.T) {
	c := Course{Weeks: []int{1, 2}, Recurrence: &RecurrenceRule{ByDay: []int{1}}}
	cp := c.Clone()
	cp.Weeks[0] = 9
	cp.Recurrence.ByDay[0] = 3

	assert.Equal(t, 1, c.Weeks[0])
	assert.Equal(t, 1, c.Recurrence.ByDay[0])
}
