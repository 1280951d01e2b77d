package holiday

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"coursecal/internal/model"
)

// ErrMalformedInput is returned when the holiday feed cannot be turned into
// dates: unparseable feed, missing or unparseable DTSTART/DTEND, or a date
// range that is too large.
var ErrMalformedInput = errors.New("malformed holiday input")

// maxRangeDays bounds a single event's expansion.
const maxRangeDays = 3660

// Kind is the closed set of holiday event classifications.
type Kind int

const (
	// Rest marks dates on which classes are suspended.
	Rest Kind = iota + 1
	// Makeup marks weekend dates that become working days.
	Makeup
)

func (k Kind) String() string {
	switch k {
	case Rest:
		return "rest"
	case Makeup:
		return "makeup"
	default:
		return "unknown"
	}
}

// Special-day tag values used by the iCloud holiday feeds.
const (
	specialDayRest   = "WORK-HOLIDAY"
	specialDayMakeup = "ALTERNATE-WORKDAY"
)

// RawEvent carries the VEVENT properties the classifier looks at.
type RawEvent struct {
	UniversalID string // X-APPLE-UNIVERSAL-ID
	UID         string
	Summary     string
	SpecialDay  string // X-APPLE-SPECIAL-DAY
	DtStart     string
	DtEnd       string
}

// Key returns the grouping identity of the event.
func (r RawEvent) Key() string {
	switch {
	case r.UniversalID != "":
		return r.UniversalID
	case r.UID != "":
		return r.UID
	default:
		return r.Summary
	}
}

// keywordRule is one summary predicate of the heuristic classifier.
type keywordRule struct {
	kind     Kind
	keywords []string
}

// Evaluated in order; first match wins. Rest is checked first, so a summary
// such as "调休" (contains 休) classifies as Rest.
var summaryRules = []keywordRule{
	{kind: Rest, keywords: []string{"休", "放假", "rest", "holiday", "day off"}},
	{kind: Makeup, keywords: []string{"班", "调休", "上班", "work", "make-up", "makeup", "shift"}},
}

// Classify decides whether ev is a Rest or Makeup event. The explicit
// special-day tag wins; otherwise the summary keywords decide. ok is false
// for events that are neither.
func Classify(ev RawEvent) (kind Kind, ok bool) {
	if tag := strings.TrimSpace(ev.SpecialDay); tag != "" {
		switch strings.ToUpper(tag) {
		case specialDayRest:
			return Rest, true
		case specialDayMakeup:
			return Makeup, true
		default:
			return 0, false
		}
	}

	normalized := strings.ToLower(strings.NewReplacer(" ", "", "\t", "").Replace(ev.Summary))
	if normalized == "" {
		return 0, false
	}
	for _, rule := range summaryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, strings.ReplaceAll(kw, " ", "")) {
				return rule.kind, true
			}
		}
	}
	return 0, false
}

// ExtractDates expands the event's [DTSTART, DTEND) range into one date per
// day. A missing or non-increasing DTEND yields the start date alone.
func ExtractDates(ev RawEvent) ([]model.Date, error) {
	if strings.TrimSpace(ev.DtStart) == "" {
		return nil, fmt.Errorf("%w: event %q has no DTSTART", ErrMalformedInput, ev.Summary)
	}
	start, err := parseFeedDate(ev.DtStart)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q: %v", ErrMalformedInput, ev.DtStart, err)
	}

	end := start.AddDays(1)
	if strings.TrimSpace(ev.DtEnd) != "" {
		end, err = parseFeedDate(ev.DtEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: end date %q: %v", ErrMalformedInput, ev.DtEnd, err)
		}
	}

	if !start.Before(end) {
		return []model.Date{start}, nil
	}
	span := end.DaysSince(start)
	if span > maxRangeDays {
		return nil, fmt.Errorf("%w: date range %s..%s too large", ErrMalformedInput, start, end)
	}

	dates := make([]model.Date, 0, span)
	for d := start; d.Before(end); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates, nil
}

var feedDateLayouts = []string{
	"20060102",
	"20060102T150405",
	"20060102T150405Z",
	time.RFC3339,
}

// parseFeedDate accepts DATE, floating/UTC DATE-TIME and RFC 3339 values and
// returns the date part as written (no zone conversion).
func parseFeedDate(v string) (model.Date, error) {
	v = strings.TrimSpace(v)
	var firstErr error
	for _, layout := range feedDateLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return model.DateOf(t), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return model.Date{}, firstErr
}
