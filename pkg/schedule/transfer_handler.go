package schedule

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tempora/tempora/pkg/calendar"
	"github.com/tempora/tempora/pkg/gcal"
	"github.com/tempora/tempora/pkg/ical"
)

type importResultDTO struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped,omitempty"`
	EventIDs []string `json:"eventIds"`
}

func importResult(ids []calendar.EventID, skipped int) importResultDTO {
	dto := importResultDTO{Imported: len(ids), Skipped: skipped, EventIDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		dto.EventIDs = append(dto.EventIDs, id.String())
	}
	return dto
}

// ImportICal loads events from an iCal/ICS request body into a calendar.
func (h *Handler) ImportICal(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", err.Error())
		return
	}

	events, err := ical.Parse(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse iCal data", err.Error())
		return
	}

	calendarName := h.calendarOrDefault(r)
	ids := h.store.AddEvents(calendarName, events)
	log.Debugf("imported %d iCal events into calendar %q", len(ids), calendarName)

	writeJSON(w, http.StatusCreated, importResult(ids, 0))
}

// ImportJSON loads a JSON array of events into a calendar. The whole batch is
// validated before anything is added.
func (h *Handler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	var dtos []EventInputDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	events := make([]calendar.Event, 0, len(dtos))
	for _, dto := range dtos {
		pe, err := parseEventInput(dto)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		events = append(events, toEvent(pe))
	}

	ids := h.store.AddEvents(h.calendarOrDefault(r), events)
	writeJSON(w, http.StatusCreated, importResult(ids, 0))
}

// ImportGoogle loads events from a pre-fetched Google Calendar events.list
// JSON response. Malformed items are skipped and reported, not fatal.
func (h *Handler) ImportGoogle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", err.Error())
		return
	}

	result, err := gcal.ParseEventsPayload(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse Google Calendar payload", err.Error())
		return
	}

	ids := h.store.AddEvents(h.calendarOrDefault(r), result.Events)
	writeJSON(w, http.StatusCreated, importResult(ids, result.Skipped))
}

// ExportICal serializes a calendar's events as iCal text.
func (h *Handler) ExportICal(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.Events(h.calendarOrDefault(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(ical.Export(events))); err != nil {
		log.Errorf("failed to write iCal export: %v", err)
	}
}

type eventExportDTO struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Start    string            `json:"start"`
	End      string            `json:"end"`
	Timezone string            `json:"timezone"`
	RRule    string            `json:"rrule,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ExportJSON serializes a calendar's events as a JSON array that ImportJSON
// accepts back.
func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.Events(h.calendarOrDefault(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]eventExportDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, eventExportDTO{
			ID:       event.ID.String(),
			Title:    event.Title,
			Start:    event.Start.UTC().Format(time.RFC3339),
			End:      event.End.UTC().Format(time.RFC3339),
			Timezone: event.Timezone,
			RRule:    event.RRule,
			Metadata: event.Metadata,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}
