package holiday

import (
	"fmt"
	"slices"
	"time"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

// ApplyToSchedule applies the calendar to the schedule's courses.
func (c *Calendar) ApplyToSchedule(s *model.Schedule) {
	s.Courses = c.ApplyToCourses(s.Courses, s.Semester)
}

// ApplyToCourses reconciles courses against the calendar and returns the
// adjusted list: the input courses followed by the make-up entries
// synthesized for them. Like append, the result must be used in place of
// the argument.
//
// For recurring courses every week whose date is a rest day is recorded in
// OffWeeks; when that rest day has a make-up date a standalone copy of the
// occurrence is appended on the make-up date. Weeks itself is left intact.
//
// Records without a week/weekday pair are single occurrences: when their
// date is a matched rest day a shifted copy is appended and the original is
// kept unchanged.
func (c *Calendar) ApplyToCourses(courses []model.Course, sem model.Semester) []model.Course {
	if c == nil || len(courses) == 0 {
		return courses
	}

	n := len(courses)
	for i := 0; i < n; i++ {
		course := &courses[i]
		if !course.HasSchedule() || len(course.Weeks) == 0 {
			if moved, ok := c.shiftSingle(*course); ok {
				courses = append(courses, moved)
			}
			continue
		}

		firstWeek := slices.Min(course.Weeks)
		var offWeeks []int
		var added []model.Course
		for _, week := range course.Weeks {
			date := sem.OccurrenceDate(week, course.Weekday)
			if !c.IsRestDay(date) {
				continue
			}
			if makeup, ok := c.MakeupFor(date).Get(); ok {
				start := shiftWeeks(course.Start, week, firstWeek)
				end := shiftWeeks(course.End, week, firstWeek)
				added = append(added, makeupCourse(*course, start, end, date, makeup))
			}
			offWeeks = append(offWeeks, week)
		}

		course.OffWeeks = offWeeks
		if len(offWeeks) > 0 {
			appLog.Debug("course weeks suspended for holiday",
				"course", course.Name,
				"off_weeks", offWeeks,
				"makeups", len(added),
			)
		}
		courses = append(courses, added...)
	}
	return courses
}

func (c *Calendar) shiftSingle(course model.Course) (model.Course, bool) {
	date := model.DateOf(course.Start)
	makeup, ok := c.MakeupFor(date).Get()
	if !ok {
		return model.Course{}, false
	}
	delta := makeup.DaysSince(date)

	moved := course.Clone()
	moved.Start = course.Start.AddDate(0, 0, delta)
	moved.End = course.End.AddDate(0, 0, delta)
	annotate(&moved, date, makeup)

	appLog.Debug("single occurrence moved to make-up day", "course", course.Name, "rest", date, "makeup", makeup)
	return moved, true
}

func makeupCourse(template model.Course, start, end time.Time, rest, makeup model.Date) model.Course {
	delta := makeup.DaysSince(rest)

	out := template.Clone()
	out.Start = start.AddDate(0, 0, delta)
	out.End = end.AddDate(0, 0, delta)
	out.Weeks = nil
	out.Weekday = 0
	out.OffWeeks = nil
	out.CurrentWeek = 0
	out.Recurrence = nil
	annotate(&out, rest, makeup)
	return out
}

func annotate(c *model.Course, rest, makeup model.Date) {
	note := fmt.Sprintf("Make-up session: originally on %s", rest)
	if c.Note != "" {
		c.Note += "\n" + note
	} else {
		c.Note = note
	}
	c.RawWeek = fmt.Sprintf("Make-up session (%s → %s)", rest, makeup)
}

func shiftWeeks(base time.Time, targetWeek, baseWeek int) time.Time {
	return base.AddDate(0, 0, 7*(targetWeek-baseWeek))
}
