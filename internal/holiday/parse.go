package holiday

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

// Event is a classified holiday-feed entry expanded to calendar dates.
type Event struct {
	Kind  Kind
	Key   string
	Dates []model.Date
}

const (
	propUniversalID = "X-APPLE-UNIVERSAL-ID"
	propSpecialDay  = "X-APPLE-SPECIAL-DAY"
)

// ParseFeed parses an ICS holiday feed into classified events. Events that
// are neither Rest nor Makeup are skipped; a malformed date aborts the parse.
func ParseFeed(body []byte) ([]Event, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty holiday feed", ErrMalformedInput)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse holiday feed: %v", ErrMalformedInput, err)
	}

	events := make([]Event, 0)
	skipped := 0
	for _, ve := range cal.Events() {
		raw := rawEventOf(ve)
		kind, ok := Classify(raw)
		if !ok {
			skipped++
			continue
		}

		dates, err := ExtractDates(raw)
		if err != nil {
			return nil, err
		}

		key := raw.Key()
		if key == "" {
			key = fmt.Sprintf("%s-%v", kind, dates)
		}
		events = append(events, Event{Kind: kind, Key: key, Dates: dates})
	}

	appLog.Debug("holiday feed parsed", "event_count", len(events), "skipped", skipped)
	return events, nil
}

// Load parses a feed and builds its calendar.
func Load(body []byte) (*Calendar, error) {
	events, err := ParseFeed(body)
	if err != nil {
		return nil, err
	}
	return Build(events), nil
}

// LoadFile reads a feed from disk and builds its calendar.
func LoadFile(path string) (*Calendar, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holiday feed %s: %w", path, err)
	}
	return Load(body)
}

func rawEventOf(ve *ical.VEvent) RawEvent {
	return RawEvent{
		UniversalID: propValue(ve, propUniversalID),
		UID:         propValue(ve, string(ical.ComponentPropertyUniqueId)),
		Summary:     propValue(ve, string(ical.ComponentPropertySummary)),
		SpecialDay:  propValue(ve, propSpecialDay),
		DtStart:     propValue(ve, string(ical.ComponentPropertyDtStart)),
		DtEnd:       propValue(ve, string(ical.ComponentPropertyDtEnd)),
	}
}

// propValue looks a property up case-insensitively; X- properties are not
// guaranteed to be upper-cased by feed producers.
func propValue(ve *ical.VEvent, name string) string {
	for _, p := range ve.Properties {
		if strings.EqualFold(p.IANAToken, name) {
			return p.Value
		}
	}
	return ""
}
