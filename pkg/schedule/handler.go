package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/tempora/tempora/internal/rest"
	"github.com/tempora/tempora/pkg/calendar"
	"github.com/tempora/tempora/pkg/interval"
	"github.com/tempora/tempora/pkg/proposal"
)

// Handler exposes the store over HTTP.
type Handler struct {
	store           *Store
	defaultCalendar string
}

func NewHandler(store *Store, defaultCalendar string) *Handler {
	if defaultCalendar == "" {
		defaultCalendar = DefaultCalendarName
	}
	return &Handler{store: store, defaultCalendar: defaultCalendar}
}

// EventInputDTO is the inbound JSON shape for a single event or draft event.
type EventInputDTO struct {
	Title    string            `json:"title"`
	Start    string            `json:"start"`
	End      string            `json:"end"`
	Timezone string            `json:"timezone,omitempty"`
	RRule    string            `json:"rrule,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type OccurrenceDTO struct {
	EventID     string            `json:"eventId"`
	Title       string            `json:"title"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	IsRecurring bool              `json:"isRecurring"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type TimeRangeDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type BusyPeriodDTO struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	EventTitles []string  `json:"eventTitles"`
}

type FreeBusyDTO struct {
	BusyPeriods      []BusyPeriodDTO `json:"busyPeriods"`
	FreePeriods      []TimeRangeDTO  `json:"freePeriods"`
	TotalBusyMinutes int64           `json:"totalBusyMinutes"`
	TotalFreeMinutes int64           `json:"totalFreeMinutes"`
}

// parseDatetime accepts RFC 3339 or a naive ISO 8601 timestamp (assumed UTC).
func parseDatetime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse datetime %q, use ISO 8601", calendar.ErrInvalidTimeRange, s)
}

// parseEventInput validates an inbound event before any store mutation.
func parseEventInput(dto EventInputDTO) (proposal.ProposedEvent, error) {
	if dto.Title == "" {
		return proposal.ProposedEvent{}, fmt.Errorf("%w: missing event title", calendar.ErrInvalidInput)
	}
	start, err := parseDatetime(dto.Start)
	if err != nil {
		return proposal.ProposedEvent{}, err
	}
	end, err := parseDatetime(dto.End)
	if err != nil {
		return proposal.ProposedEvent{}, err
	}
	if !end.After(start) {
		return proposal.ProposedEvent{}, fmt.Errorf("%w: end time must be after start time", calendar.ErrInvalidTimeRange)
	}
	timezone := dto.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	return proposal.ProposedEvent{
		Title:    dto.Title,
		Start:    start,
		End:      end,
		Timezone: timezone,
		RRule:    dto.RRule,
		Metadata: dto.Metadata,
	}, nil
}

func toEvent(pe proposal.ProposedEvent) calendar.Event {
	return calendar.Event{
		ID:       calendar.NewEventID(),
		Title:    pe.Title,
		Start:    pe.Start,
		End:      pe.End,
		Timezone: pe.Timezone,
		RRule:    pe.RRule,
		Metadata: pe.Metadata,
	}
}

func occurrenceToDTO(occ calendar.Occurrence) OccurrenceDTO {
	return OccurrenceDTO{
		EventID:     occ.EventID.String(),
		Title:       occ.Title,
		Start:       occ.Start,
		End:         occ.End,
		IsRecurring: occ.IsRecurring,
		Metadata:    occ.Metadata,
	}
}

func rangeToDTO(r interval.TimeRange) TimeRangeDTO {
	return TimeRangeDTO{Start: r.Start, End: r.End}
}

// statusForError maps the domain error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, calendar.ErrCalendarNotFound),
		errors.Is(err, calendar.ErrEventNotFound),
		errors.Is(err, proposal.ErrProposalNotFound):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrInvalidRRule),
		errors.Is(err, calendar.ErrInvalidTimeRange),
		errors.Is(err, calendar.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(rest.ErrorResponse{Error: message, Details: details}); err != nil {
		log.Errorf("failed to encode error response: %v", err)
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Errorf("internal error: %v", err)
	}
	writeError(w, status, err.Error(), "")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func muxVar(r *http.Request, key string) string {
	return mux.Vars(r)[key]
}

// calendarOrDefault resolves the calendar query parameter for mutations.
func (h *Handler) calendarOrDefault(r *http.Request) string {
	name := r.URL.Query().Get("calendar")
	if name == "" {
		return h.defaultCalendar
	}
	return name
}

// parseRangeParams reads and validates the from/to query parameters.
func parseRangeParams(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseDatetime(r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid 'from' parameter", calendar.ErrInvalidTimeRange)
	}
	to, err := parseDatetime(r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid 'to' parameter", calendar.ErrInvalidTimeRange)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: 'to' must be after 'from'", calendar.ErrInvalidTimeRange)
	}
	return from, to, nil
}

// GetOccurrences lists all occurrences within a time range, expanding
// recurring events. An omitted calendar parameter queries all calendars.
func (h *Handler) GetOccurrences(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "'from' and 'to' must be in RFC3339 format with 'to' after 'from'")
		return
	}

	occs, err := h.store.OccurrencesInRange(from, to, r.URL.Query().Get("calendar"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]OccurrenceDTO, 0, len(occs))
	for _, occ := range occs {
		dtos = append(dtos, occurrenceToDTO(occ))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetFreeBusy reports busy periods (with contributing titles), free periods,
// and totals for a time range.
func (h *Handler) GetFreeBusy(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "'from' and 'to' must be in RFC3339 format with 'to' after 'from'")
		return
	}

	result, err := h.store.FreeBusy(from, to, r.URL.Query().Get("calendar"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := FreeBusyDTO{
		BusyPeriods:      make([]BusyPeriodDTO, 0, len(result.BusyPeriods)),
		FreePeriods:      make([]TimeRangeDTO, 0, len(result.FreePeriods)),
		TotalBusyMinutes: result.TotalBusyMinutes,
		TotalFreeMinutes: result.TotalFreeMinutes,
	}
	for _, bp := range result.BusyPeriods {
		dto.BusyPeriods = append(dto.BusyPeriods, BusyPeriodDTO{
			Start:       bp.Range.Start,
			End:         bp.Range.End,
			EventTitles: bp.EventTitles,
		})
	}
	for _, fp := range result.FreePeriods {
		dto.FreePeriods = append(dto.FreePeriods, rangeToDTO(fp))
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetAvailableSlots finds free windows of at least durationMinutes within a
// range. bufferMinutes widens the searched minimum and then shrinks each
// returned slot on both sides, so callers can use the returned times
// directly with travel time already accounted for.
func (h *Handler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "'from' and 'to' must be in RFC3339 format with 'to' after 'from'")
		return
	}
	durationMinutes, err := strconv.Atoi(r.URL.Query().Get("durationMinutes"))
	if err != nil || durationMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "invalid durationMinutes", "'durationMinutes' must be a positive integer")
		return
	}
	bufferMinutes := 0
	if raw := r.URL.Query().Get("bufferMinutes"); raw != "" {
		bufferMinutes, err = strconv.Atoi(raw)
		if err != nil || bufferMinutes < 0 {
			writeError(w, http.StatusBadRequest, "invalid bufferMinutes", "'bufferMinutes' must be a non-negative integer")
			return
		}
	}

	buffer := time.Duration(bufferMinutes) * time.Minute
	effectiveDuration := time.Duration(durationMinutes)*time.Minute + 2*buffer

	rawSlots, err := h.store.FindAvailableSlots(from, to, effectiveDuration, r.URL.Query().Get("calendar"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slots := make([]TimeRangeDTO, 0, len(rawSlots))
	for _, s := range rawSlots {
		if buffer > 0 {
			s.Start = s.Start.Add(buffer)
			s.End = s.End.Add(-buffer)
			if !s.End.After(s.Start) {
				continue
			}
		}
		slots = append(slots, rangeToDTO(s))
	}
	writeJSON(w, http.StatusOK, slots)
}

// CreateEvent adds a single event directly, bypassing the proposal workflow.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto EventInputDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	pe, err := parseEventInput(dto)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	event := toEvent(pe)
	h.store.AddEvent(h.calendarOrDefault(r), event)

	writeJSON(w, http.StatusCreated, map[string]string{"eventId": event.ID.String()})
}

// DeleteEvent removes an event by id.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := calendar.ParseEventID(muxVar(r, "eventId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event ID", err.Error())
		return
	}

	if err := h.store.RemoveEvent(h.calendarOrDefault(r), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCalendar removes all events from a calendar. Proposals are untouched.
func (h *Handler) ClearCalendar(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearCalendar(h.calendarOrDefault(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
