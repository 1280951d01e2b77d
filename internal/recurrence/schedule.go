package recurrence

import (
	"time"

	"coursecal/internal/holiday"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

// BuildSchedule runs the full pipeline over a copy of courses: holiday
// reconciliation first, so suspended weeks are excluded, then recurrence
// synthesis.
func BuildSchedule(cal *holiday.Calendar, sem model.Semester, courses []model.Course) (model.Schedule, error) {
	s := model.Schedule{Semester: sem, Courses: make([]model.Course, 0, len(courses))}
	for _, c := range courses {
		s.Courses = append(s.Courses, c.Clone())
	}

	cal.ApplyToSchedule(&s)

	adjusted, err := Attach(s.Courses, sem)
	if err != nil {
		return model.Schedule{}, err
	}
	s.Courses = adjusted
	s.GeneratedAt = time.Now()

	appLog.Debug("schedule built", "input", len(courses), "output", len(s.Courses))
	return s, nil
}
