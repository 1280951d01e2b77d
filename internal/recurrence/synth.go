package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"time"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

var (
	// ErrEmptySchedule is returned when a recurring course has no active week.
	ErrEmptySchedule = errors.New("empty schedule")
	// ErrWeekOutOfRange is returned for week numbers outside 1..MaxWeek.
	ErrWeekOutOfRange = errors.New("week out of range")
)

// MaxWeek bounds week numbers; no teaching calendar runs longer than a year.
const MaxWeek = 60

// FrequencyWeekly is the only frequency produced for course schedules.
const FrequencyWeekly = "WEEKLY"

// Synthesize derives the weekly rule for a course that meets on weekday in
// the given weeks. start and end are the first occurrence's instants; only
// their time of day is used.
//
// Evenly spaced weeks give INTERVAL=step with no exceptions. Anything else
// gives INTERVAL=1 plus one exception per missing week between the first
// and last week.
func Synthesize(weeks []int, weekday int, sem model.Semester, start, end time.Time) (model.RecurrenceRule, error) {
	if weekday < 1 || weekday > 7 {
		return model.RecurrenceRule{}, fmt.Errorf("invalid weekday %d", weekday)
	}
	weeks = normalizeWeeks(weeks)
	if len(weeks) == 0 {
		return model.RecurrenceRule{}, ErrEmptySchedule
	}

	first, last := weeks[0], weeks[len(weeks)-1]
	if first < 1 || last > MaxWeek {
		return model.RecurrenceRule{}, fmt.Errorf("%w: weeks must lie in 1..%d, got %d..%d", ErrWeekOutOfRange, MaxWeek, first, last)
	}
	until := sem.At(last, weekday, end)
	rule := model.RecurrenceRule{
		Frequency: FrequencyWeekly,
		Interval:  1,
		Until:     &until,
		ByDay:     []int{weekday},
	}

	if step, ok := constantStep(weeks); ok {
		rule.Interval = step
		return rule, nil
	}

	for w := first; w <= last; w++ {
		if _, found := slices.BinarySearch(weeks, w); !found {
			rule.ExceptionDates = append(rule.ExceptionDates, sem.At(w, weekday, start))
		}
	}
	return rule, nil
}

// constantStep reports whether ascending weeks are evenly spaced.
func constantStep(weeks []int) (int, bool) {
	if len(weeks) < 2 {
		return 1, true
	}
	step := weeks[1] - weeks[0]
	for i := 2; i < len(weeks); i++ {
		if weeks[i]-weeks[i-1] != step {
			return 0, false
		}
	}
	return step, true
}

func normalizeWeeks(weeks []int) []int {
	out := slices.Clone(weeks)
	slices.Sort(out)
	return slices.Compact(out)
}

// ForCourse returns the rule for c, or nil when c is emitted as a single
// event (exams, records without week/weekday, empty week lists). Off weeks
// are excluded and c's start/end are moved to the first active week so the
// series begins on a real occurrence.
func ForCourse(c *model.Course, sem model.Semester) (*model.RecurrenceRule, error) {
	if c.IsExam() || !c.HasSchedule() || len(c.Weeks) == 0 {
		return nil, nil
	}

	active := c.ActiveWeeks()
	rule, err := Synthesize(active, c.Weekday, sem, c.Start, c.End)
	if err != nil {
		return nil, fmt.Errorf("course %q: %w", c.Name, err)
	}

	c.Start = sem.At(active[0], c.Weekday, c.Start)
	c.End = sem.At(active[0], c.Weekday, c.End)
	return &rule, nil
}

// Attach sets Recurrence on every recurring course. Courses left with no
// active week (every week suspended) are dropped; they have no occurrence.
func Attach(courses []model.Course, sem model.Semester) ([]model.Course, error) {
	out := make([]model.Course, 0, len(courses))
	for _, c := range courses {
		rule, err := ForCourse(&c, sem)
		switch {
		case errors.Is(err, ErrEmptySchedule):
			appLog.Warn("course has no active week; dropping", "course", c.Name, "weeks", c.Weeks, "off_weeks", c.OffWeeks)
			continue
		case err != nil:
			return nil, err
		}
		c.Recurrence = rule
		out = append(out, c)
	}
	return out, nil
}
