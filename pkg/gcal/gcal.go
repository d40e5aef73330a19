package gcal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/tempora/tempora/pkg/calendar"
)

var ErrInvalidPayload = errors.New("invalid Google Calendar payload")

// ImportResult reports how an events.list payload was translated.
type ImportResult struct {
	Events  []calendar.Event
	Skipped int
}

// ParseEventsPayload translates a pre-fetched Google Calendar events.list
// JSON response into domain events. Items without a usable start or end are
// skipped and counted rather than failing the whole import.
func ParseEventsPayload(payload []byte) (ImportResult, error) {
	var listing gcal.Events
	if err := json.Unmarshal(payload, &listing); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	result := ImportResult{}
	for _, item := range listing.Items {
		event, ok := itemToEvent(item)
		if !ok {
			result.Skipped++
			continue
		}
		result.Events = append(result.Events, event)
	}
	return result, nil
}

func itemToEvent(item *gcal.Event) (calendar.Event, bool) {
	if item == nil {
		return calendar.Event{}, false
	}

	start, ok := parseEventTime(item.Start)
	if !ok {
		log.Warnf("skipping Google event %q: unusable start time", item.Id)
		return calendar.Event{}, false
	}
	end, ok := parseEventTime(item.End)
	if !ok {
		log.Warnf("skipping Google event %q: unusable end time", item.Id)
		return calendar.Event{}, false
	}
	if !end.After(start) {
		log.Warnf("skipping Google event %q: end does not follow start", item.Id)
		return calendar.Event{}, false
	}

	title := item.Summary
	if title == "" {
		title = "Busy"
	}

	metadata := map[string]string{}
	if item.Id != "" {
		metadata["googleEventId"] = item.Id
	}

	return calendar.Event{
		ID:       calendar.NewEventID(),
		Title:    title,
		Start:    start.UTC(),
		End:      end.UTC(),
		Timezone: "UTC",
		Metadata: metadata,
	}, true
}

// parseEventTime accepts either a timed instant (dateTime) or an all-day
// date, which is interpreted as midnight UTC.
func parseEventTime(edt *gcal.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if edt.Date != "" {
		t, err := time.Parse("2006-01-02", edt.Date)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
