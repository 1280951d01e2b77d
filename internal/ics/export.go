package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/recurrence"
)

const (
	productID = "-//coursecal//course schedule//EN"
	utcLayout = "20060102T150405Z"
)

// uidNamespace keeps generated UIDs stable across exports of the same schedule.
var uidNamespace = uuid.MustParse("6f1c3d52-8a0e-4f3b-9d57-2b64e1a0c9f4")

// ExportOptions controls how courses are rendered as VEVENTs.
type ExportOptions struct {
	CalendarName       string
	ReminderMinutes    int // 0 disables VALARM
	IncludeTeacher     bool
	IncludeDescription bool
	// Now stamps DTSTAMP; zero means time.Now.
	Now time.Time
}

// Export renders a schedule as an iCalendar document. Courses that carry a
// recurrence rule become one recurring VEVENT with RRULE and EXDATE; the
// rest become single events.
func Export(s model.Schedule, opts ExportOptions) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.CalendarName != "" {
		cal.SetXWRCalName(opts.CalendarName)
	}

	for _, c := range s.Courses {
		addCourse(cal, c, opts, now)
	}

	appLog.Debug("schedule exported", "course_count", len(s.Courses))
	return cal.Serialize()
}

func addCourse(cal *ical.Calendar, c model.Course, opts ExportOptions, now time.Time) {
	ev := cal.AddEvent(eventUID(c))
	ev.SetDtStampTime(now)
	ev.SetStartAt(c.Start)
	ev.SetEndAt(c.End)
	ev.SetSummary(Summary(c))
	if c.Location != "" {
		ev.SetLocation(c.Location)
	}
	if desc := description(c, opts); desc != "" {
		ev.SetDescription(desc)
	}

	if c.Recurrence != nil {
		ev.AddRrule(recurrence.Value(*c.Recurrence))
		for _, ex := range c.Recurrence.ExceptionDates {
			ev.AddExdate(ex.UTC().Format(utcLayout))
		}
	}

	if opts.ReminderMinutes > 0 {
		alarm := ev.AddAlarm()
		alarm.SetProperty(ical.ComponentPropertyAction, string(ical.ActionDisplay))
		alarm.SetProperty(ical.ComponentPropertyTrigger, fmt.Sprintf("-PT%dM", opts.ReminderMinutes))
		alarm.SetProperty(ical.ComponentPropertyDescription, Summary(c))
	}
}

// Summary is the event title: "name - location", prefixed with "[exam]"
// for exam records.
func Summary(c model.Course) string {
	title := c.Name
	if c.Location != "" {
		title += " - " + c.Location
	}
	if c.IsExam() {
		title = "[exam] " + title
	}
	return title
}

func description(c model.Course, opts ExportOptions) string {
	var lines []string
	if opts.IncludeTeacher && c.Teacher != "" {
		lines = append(lines, "Teacher: "+c.Teacher)
	}
	if c.Code != "" {
		lines = append(lines, "Code: "+c.Code)
	}
	if c.RawWeek != "" {
		lines = append(lines, "Weeks: "+c.RawWeek)
	}
	if c.IsExam() {
		if c.ExamType != "" {
			lines = append(lines, "Exam type: "+c.ExamType)
		}
		if c.Seat != "" {
			lines = append(lines, "Seat: "+c.Seat)
		}
	}
	if c.Note != "" {
		lines = append(lines, c.Note)
	}
	if opts.IncludeDescription && c.Description != "" {
		lines = append(lines, c.Description)
	}
	return strings.Join(lines, "\n")
}

func eventUID(c model.Course) string {
	name := fmt.Sprintf("%s|%s|%s|%d|%s", c.Name, c.Code, c.Location, c.Weekday, c.Start.UTC().Format(utcLayout))
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@coursecal"
}
