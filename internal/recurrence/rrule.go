package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"coursecal/internal/model"
)

var weekdays = [...]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// ROption converts r into rrule-go options anchored at dtstart.
func ROption(r model.RecurrenceRule, dtstart time.Time) rrule.ROption {
	opt := rrule.ROption{
		Freq:     rrule.WEEKLY,
		Interval: r.Interval,
		Count:    r.Count,
		Dtstart:  dtstart,
	}
	if r.Until != nil {
		opt.Until = *r.Until
	}
	for _, d := range r.ByDay {
		if d >= 1 && d <= 7 {
			opt.Byweekday = append(opt.Byweekday, weekdays[d-1])
		}
	}
	return opt
}

// Value renders the RRULE property value, e.g. "FREQ=WEEKLY;INTERVAL=2;UNTIL=...;BYDAY=MO".
func Value(r model.RecurrenceRule) string {
	opt := ROption(r, time.Time{})
	return opt.RRuleString()
}

// Expand returns every occurrence start of c: the series minus its
// exceptions, or just c.Start for a single event.
func Expand(c model.Course) ([]time.Time, error) {
	if c.Recurrence == nil {
		return []time.Time{c.Start}, nil
	}

	r, err := rrule.NewRRule(ROption(*c.Recurrence, c.Start))
	if err != nil {
		return nil, fmt.Errorf("course %q: build rrule: %w", c.Name, err)
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range c.Recurrence.ExceptionDates {
		set.ExDate(ex.In(c.Start.Location()))
	}
	return set.All(), nil
}
