package ical

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/tempora/tempora/pkg/calendar"
)

var ErrInvalidICal = errors.New("invalid iCal data")

// Parse translates an iCal/ICS payload into domain events. Each VEVENT
// becomes one Event with a freshly minted ID; an RRULE property is kept as
// the opaque recurrence rule. Instants are normalized to UTC.
func Parse(icalData string) ([]calendar.Event, error) {
	cal, err := ics.ParseCalendar(strings.NewReader(icalData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidICal, err)
	}

	var events []calendar.Event
	for _, ve := range cal.Events() {
		event, err := veventToEvent(ve)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func veventToEvent(ve *ics.VEvent) (calendar.Event, error) {
	title := "(untitled)"
	if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil && p.Value != "" {
		title = p.Value
	}

	start, err := eventStart(ve)
	if err != nil {
		return calendar.Event{}, err
	}

	// Missing or unparseable DTEND falls back to a one-hour event.
	end, err := ve.GetEndAt()
	if err != nil {
		if allDayEnd, allDayErr := ve.GetAllDayEndAt(); allDayErr == nil {
			end = allDayEnd
		} else {
			end = start.Add(time.Hour)
		}
	}

	rrule := ""
	if p := ve.GetProperty(ics.ComponentPropertyRrule); p != nil {
		rrule = p.Value
	}

	return calendar.Event{
		ID:       calendar.NewEventID(),
		Title:    title,
		Start:    start.UTC(),
		End:      end.UTC(),
		Timezone: "UTC",
		RRule:    rrule,
	}, nil
}

func eventStart(ve *ics.VEvent) (time.Time, error) {
	if start, err := ve.GetStartAt(); err == nil {
		return start, nil
	}
	// All-day events carry a date-only DTSTART: midnight UTC.
	if start, err := ve.GetAllDayStartAt(); err == nil {
		return start, nil
	}
	return time.Time{}, fmt.Errorf("%w: missing or invalid DTSTART", ErrInvalidICal)
}

// Export renders events as an iCal string, including recurrence rules.
func Export(events []calendar.Event) string {
	cal := ics.NewCalendar()
	cal.SetProductId("-//Tempora//Tempora Calendar//EN")

	for _, event := range events {
		ve := cal.AddEvent(event.ID.String())
		ve.SetSummary(event.Title)
		ve.SetStartAt(event.Start.UTC())
		ve.SetEndAt(event.End.UTC())
		if event.RRule != "" {
			ve.AddRrule(event.RRule)
		}
	}

	return cal.Serialize()
}
