package holiday

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecal/internal/model"
)

var cst = time.FixedZone("CST", 8*3600)

func springSemester() model.Semester {
	return model.Semester{Start: time.Date(2025, time.January, 6, 0, 0, 0, 0, cst)}
}

func isMakeupEntry(c model.Course) bool {
	return strings.Contains(c.RawWeek, "Make-up session")
}

func TestApplySpringFestival(t *testing.T) {
	cal := loadFixture(t)
	schedule := &model.Schedule{
		Semester: springSemester(),
		Courses: []model.Course{
			{
				Name:    "Software Engineering",
				Start:   time.Date(2025, time.January, 6, 8, 0, 0, 0, cst),
				End:     time.Date(2025, time.January, 6, 10, 0, 0, 0, cst),
				Weeks:   []int{1, 2, 3, 4, 5, 6},
				Weekday: 1,
			},
			{
				Name:    "Operating Systems",
				Start:   time.Date(2025, time.January, 7, 14, 0, 0, 0, cst),
				End:     time.Date(2025, time.January, 7, 16, 0, 0, 0, cst),
				Weeks:   []int{1, 2, 3, 4, 5},
				Weekday: 2,
			},
		},
	}

	cal.ApplyToSchedule(schedule)
	require.Len(t, schedule.Courses, 4)

	monday := schedule.Courses[0]
	assert.Equal(t, []int{5}, monday.OffWeeks)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, monday.Weeks, "weeks are kept, off weeks are recorded separately")

	// Week 4 Tuesday (2025-01-28) is a rest day without a make-up date.
	tuesday := schedule.Courses[1]
	assert.Equal(t, []int{4, 5}, tuesday.OffWeeks)

	mondayMakeup := schedule.Courses[2]
	assert.Equal(t, "Software Engineering", mondayMakeup.Name)
	assert.True(t, isMakeupEntry(mondayMakeup))
	assert.True(t, mondayMakeup.Start.Equal(time.Date(2025, time.January, 26, 8, 0, 0, 0, cst)))
	assert.True(t, mondayMakeup.End.Equal(time.Date(2025, time.January, 26, 10, 0, 0, 0, cst)))
	assert.Nil(t, mondayMakeup.Weeks)
	assert.Zero(t, mondayMakeup.Weekday)
	assert.Contains(t, mondayMakeup.Note, "originally on 2025-02-03")

	tuesdayMakeup := schedule.Courses[3]
	assert.Equal(t, "Operating Systems", tuesdayMakeup.Name)
	assert.Equal(t, model.NewDate(2025, time.February, 8), model.DateOf(tuesdayMakeup.Start))
	assert.Equal(t, 14, tuesdayMakeup.Start.Hour())
}

func TestApplyUnmatchedRestDaySuspendsWithoutDuplicate(t *testing.T) {
	cal := loadFixture(t)
	// Wednesday of week 4 is 2025-01-29: a rest day with no make-up date.
	courses := []model.Course{{
		Name:    "Linear Algebra",
		Start:   time.Date(2025, time.January, 8, 10, 0, 0, 0, cst),
		End:     time.Date(2025, time.January, 8, 12, 0, 0, 0, cst),
		Weeks:   []int{1, 2, 3, 4, 5},
		Weekday: 3,
	}}

	out := cal.ApplyToCourses(courses, springSemester())
	require.Len(t, out, 1)
	assert.Equal(t, []int{4}, out[0].OffWeeks)
}

func TestApplyNoCollisionLeavesOffWeeksUnset(t *testing.T) {
	cal := loadFixture(t)
	courses := []model.Course{{
		Name:    "Physics",
		Start:   time.Date(2025, time.January, 10, 8, 0, 0, 0, cst),
		End:     time.Date(2025, time.January, 10, 10, 0, 0, 0, cst),
		Weeks:   []int{1, 2, 3},
		Weekday: 5,
	}}

	out := cal.ApplyToCourses(courses, springSemester())
	require.Len(t, out, 1)
	assert.Nil(t, out[0].OffWeeks)
}

func TestApplyShiftsFromFirstWeekNotAnchor(t *testing.T) {
	cal := loadFixture(t)
	// Course starts in week 3; week 5 Monday still maps to 2025-01-26.
	courses := []model.Course{{
		Name:    "Databases",
		Start:   time.Date(2025, time.January, 20, 19, 30, 0, 0, cst),
		End:     time.Date(2025, time.January, 20, 21, 0, 0, 0, cst),
		Weeks:   []int{3, 5, 7},
		Weekday: 1,
	}}

	out := cal.ApplyToCourses(courses, springSemester())
	require.Len(t, out, 2)
	assert.Equal(t, []int{5}, out[0].OffWeeks)
	assert.True(t, out[1].Start.Equal(time.Date(2025, time.January, 26, 19, 30, 0, 0, cst)))
}

func TestApplySingleOccurrence(t *testing.T) {
	cal := loadFixture(t)
	exam := model.Course{
		Name:     "Calculus",
		Category: model.CategoryExam,
		Start:    time.Date(2025, time.February, 4, 9, 0, 0, 0, cst),
		End:      time.Date(2025, time.February, 4, 11, 0, 0, 0, cst),
		Note:     "Bring ID",
	}
	untouched := model.Course{
		Name:     "Physics",
		Category: model.CategoryExam,
		Start:    time.Date(2025, time.February, 12, 9, 0, 0, 0, cst),
		End:      time.Date(2025, time.February, 12, 11, 0, 0, 0, cst),
	}

	out := cal.ApplyToCourses([]model.Course{exam, untouched}, springSemester())
	require.Len(t, out, 3)

	assert.Equal(t, exam, out[0], "original record is retained unchanged")
	assert.Equal(t, untouched, out[1])

	moved := out[2]
	assert.True(t, moved.Start.Equal(time.Date(2025, time.February, 8, 9, 0, 0, 0, cst)))
	assert.True(t, moved.End.Equal(time.Date(2025, time.February, 8, 11, 0, 0, 0, cst)))
	assert.Equal(t, "Bring ID\nMake-up session: originally on 2025-02-04", moved.Note)
	assert.True(t, isMakeupEntry(moved))
}

func TestApplyEmptyWeekListIsSingleOccurrence(t *testing.T) {
	cal := loadFixture(t)
	c := model.Course{
		Name:    "Seminar",
		Start:   time.Date(2025, time.October, 7, 14, 0, 0, 0, cst),
		End:     time.Date(2025, time.October, 7, 15, 0, 0, 0, cst),
		Weeks:   []int{},
		Weekday: 2,
	}

	out := cal.ApplyToCourses([]model.Course{c}, model.Semester{Start: time.Date(2025, time.September, 1, 0, 0, 0, 0, cst)})
	require.Len(t, out, 2)
	assert.Equal(t, model.NewDate(2025, time.September, 28), model.DateOf(out[1].Start))
}

func TestApplyNilCalendar(t *testing.T) {
	var cal *Calendar
	in := []model.Course{{Name: "x", Weeks: []int{1}, Weekday: 1}}
	assert.Equal(t, in, cal.ApplyToCourses(in, springSemester()))
}
