package model

import (
	"slices"
	"time"
)

// CategoryExam marks exam records. Exams are always emitted as single,
// non-recurring events.
const CategoryExam = "exam"

// Semester anchors week numbering: Start is Monday 00:00 of week 1 in a
// fixed offset.
type Semester struct {
	Start time.Time `json:"start"`
}

// NewSemester snaps d to the Monday of its week, at midnight in loc.
func NewSemester(d Date, loc *time.Location) Semester {
	offset := (int(d.Weekday()) + 6) % 7
	return Semester{Start: d.AddDays(-offset).In(loc)}
}

// WeekStart returns Monday 00:00 of the given 1-based week.
func (s Semester) WeekStart(week int) time.Time {
	return s.Start.AddDate(0, 0, (week-1)*7)
}

// OccurrenceDate returns the calendar date of weekday (1=Monday..7=Sunday)
// in the given week.
func (s Semester) OccurrenceDate(week, weekday int) Date {
	return DateOf(s.WeekStart(week).AddDate(0, 0, weekday-1))
}

// At returns the instant on week/weekday carrying the time of day of clock.
func (s Semester) At(week, weekday int, clock time.Time) time.Time {
	clock = clock.In(s.Start.Location())
	d := s.OccurrenceDate(week, weekday)
	return time.Date(d.Year, d.Month, d.Day, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), s.Start.Location())
}

// RecurrenceRule is a compact description of a weekly series. It is
// produced once per course and never mutated.
type RecurrenceRule struct {
	Frequency      string      `json:"frequency"`
	Interval       int         `json:"interval"`
	Until          *time.Time  `json:"until,omitempty"`
	Count          int         `json:"count,omitempty"`
	ByDay          []int       `json:"by_day,omitempty"`
	ExceptionDates []time.Time `json:"exception_dates,omitempty"`
}

// Course is one class or exam record. Start/End describe the first
// occurrence. Weeks and Weekday are either both set (recurring) or both
// absent (single occurrence).
type Course struct {
	Name        string `json:"name"`
	Code        string `json:"code,omitempty"`
	Teacher     string `json:"teacher,omitempty"`
	Location    string `json:"location,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Weeks       []int `json:"weeks,omitempty"`
	Weekday     int   `json:"weekday,omitempty"`
	OffWeeks    []int `json:"off_weeks,omitempty"`
	CurrentWeek int   `json:"current_week,omitempty"`

	// RawWeek is the human-readable week description shown to users.
	RawWeek string `json:"raw_week,omitempty"`
	Note    string `json:"note,omitempty"`

	// Exam-only fields.
	ExamType string `json:"exam_type,omitempty"`
	Seat     string `json:"seat,omitempty"`
	Status   string `json:"status,omitempty"`

	Recurrence *RecurrenceRule `json:"recurrence,omitempty"`
}

func (c *Course) IsExam() bool {
	return c.Category == CategoryExam
}

// HasSchedule reports whether the course carries a week/weekday pair.
func (c *Course) HasSchedule() bool {
	return c.Weeks != nil && c.Weekday != 0
}

// ActiveWeeks returns the sorted, de-duplicated weeks that are not off weeks.
func (c *Course) ActiveWeeks() []int {
	out := make([]int, 0, len(c.Weeks))
	for _, w := range c.Weeks {
		if !slices.Contains(c.OffWeeks, w) {
			out = append(out, w)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Clone returns a deep copy of c.
func (c Course) Clone() Course {
	c.Weeks = slices.Clone(c.Weeks)
	c.OffWeeks = slices.Clone(c.OffWeeks)
	if c.Recurrence != nil {
		r := *c.Recurrence
		r.ByDay = slices.Clone(r.ByDay)
		r.ExceptionDates = slices.Clone(r.ExceptionDates)
		c.Recurrence = &r
	}
	return c
}

// Schedule is the adjusted course list together with its semester anchor.
type Schedule struct {
	Semester    Semester  `json:"semester"`
	Courses     []Course  `json:"courses"`
	GeneratedAt time.Time `json:"generated_at"`
}
