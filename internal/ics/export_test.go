package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecal/internal/model"
	"coursecal/internal/recurrence"
)

var cst = time.FixedZone("CST", 8*3600)

func at(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2025, month, day, hour, minute, 0, 0, cst)
}

func testSchedule(t *testing.T) model.Schedule {
	t.Helper()
	sem := model.Semester{Start: at(time.September, 1, 0, 0)}
	courses := []model.Course{
		{
			Name:     "Operating Systems",
			Teacher:  "Dr. Lin",
			Location: "B204",
			Start:    at(time.September, 1, 8, 0),
			End:      at(time.September, 1, 9, 40),
			Weeks:    []int{1, 2, 4, 5},
			Weekday:  1,
			RawWeek:  "1-2,4-5",
		},
		{
			Name:     "Operating Systems",
			Location: "Hall 1",
			Category: model.CategoryExam,
			ExamType: "final",
			Seat:     "42",
			Start:    at(time.November, 3, 9, 0),
			End:      at(time.November, 3, 11, 0),
		},
	}
	courses, err := recurrence.Attach(courses, sem)
	require.NoError(t, err)
	return model.Schedule{Semester: sem, Courses: courses}
}

func TestExport(t *testing.T) {
	out := Export(testSchedule(t), ExportOptions{
		CalendarName:    "Autumn 2025",
		ReminderMinutes: 15,
		IncludeTeacher:  true,
		Now:             time.Date(2025, time.August, 30, 0, 0, 0, 0, time.UTC),
	})

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	lecture := events[0]
	assert.Equal(t, "Operating Systems - B204", lecture.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "20250901T000000Z", lecture.GetProperty(ical.ComponentPropertyDtStart).Value)
	rrule := lecture.GetProperty(ical.ComponentPropertyRrule)
	require.NotNil(t, rrule)
	assert.Contains(t, rrule.Value, "FREQ=WEEKLY")
	assert.Contains(t, rrule.Value, "BYDAY=MO")
	exdate := lecture.GetProperty(ical.ComponentPropertyExdate)
	require.NotNil(t, exdate)
	assert.Equal(t, "20250915T000000Z", exdate.Value)
	require.Len(t, lecture.Alarms(), 1)
	assert.Equal(t, "-PT15M", lecture.Alarms()[0].GetProperty(ical.ComponentPropertyTrigger).Value)

	exam := events[1]
	assert.Equal(t, "[exam] Operating Systems - Hall 1", exam.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Nil(t, exam.GetProperty(ical.ComponentPropertyRrule))

	assert.Contains(t, out, "X-WR-CALNAME:Autumn 2025")
	assert.Contains(t, out, "Teacher: Dr. Lin")
	assert.Contains(t, out, "Seat: 42")
}

func TestExportStableUIDs(t *testing.T) {
	s := testSchedule(t)
	a := Export(s, ExportOptions{})
	b := Export(s, ExportOptions{})

	uids := func(doc string) []string {
		cal, err := ical.ParseCalendar(strings.NewReader(doc))
		require.NoError(t, err)
		var out []string
		for _, ev := range cal.Events() {
			out = append(out, ev.Id())
		}
		return out
	}
	ua, ub := uids(a), uids(b)
	assert.Equal(t, ua, ub)
	require.Len(t, ua, 2)
	assert.NotEqual(t, ua[0], ua[1])
}

func TestExportOmitsOptionalParts(t *testing.T) {
	out := Export(testSchedule(t), ExportOptions{})
	assert.NotContains(t, out, "BEGIN:VALARM")
	assert.NotContains(t, out, "Teacher:")
	assert.NotContains(t, out, "X-WR-CALNAME")
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name   string
		course model.Course
		want   string
	}{
		{"with location", model.Course{Name: "Math", Location: "A1"}, "Math - A1"},
		{"no location", model.Course{Name: "Math"}, "Math"},
		{"exam", model.Course{Name: "Math", Location: "A1", Category: model.CategoryExam}, "[exam] Math - A1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summary(tt.course))
		})
	}
}
