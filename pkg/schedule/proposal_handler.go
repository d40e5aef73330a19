package schedule

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tempora/tempora/pkg/proposal"
)

type ProposalInputDTO struct {
	Name   string          `json:"name"`
	Events []EventInputDTO `json:"events"`
}

type ProposalSummaryDTO struct {
	ProposalID string    `json:"proposalId"`
	Name       string    `json:"name"`
	EventCount int       `json:"eventCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ConflictDTO struct {
	ProposedEventTitle    string    `json:"proposedEventTitle"`
	ProposedStart         time.Time `json:"proposedStart"`
	ProposedEnd           time.Time `json:"proposedEnd"`
	ConflictingEventID    *string   `json:"conflictingEventId"`
	ConflictingEventTitle string    `json:"conflictingEventTitle"`
	ConflictingStart      time.Time `json:"conflictingStart"`
	ConflictingEnd        time.Time `json:"conflictingEnd"`
	OverlapMinutes        int64     `json:"overlapMinutes"`
}

type ConflictReportDTO struct {
	ProposalID   string        `json:"proposalId"`
	HasConflicts bool          `json:"hasConflicts"`
	Conflicts    []ConflictDTO `json:"conflicts"`
}

func conflictToDTO(c proposal.Conflict) ConflictDTO {
	dto := ConflictDTO{
		ProposedEventTitle:    c.ProposedEventTitle,
		ProposedStart:         c.ProposedStart,
		ProposedEnd:           c.ProposedEnd,
		ConflictingEventTitle: c.ConflictingEventTitle,
		ConflictingStart:      c.ConflictingStart,
		ConflictingEnd:        c.ConflictingEnd,
		OverlapMinutes:        c.OverlapMinutes,
	}
	if c.ConflictingEventID != nil {
		id := c.ConflictingEventID.String()
		dto.ConflictingEventID = &id
	}
	return dto
}

func conflictsToDTOs(conflicts []proposal.Conflict) []ConflictDTO {
	dtos := make([]ConflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		dtos = append(dtos, conflictToDTO(c))
	}
	return dtos
}

// parseProposalInput validates every draft event before any store mutation,
// so a rejected request never partially creates a proposal.
func parseProposalInput(dto ProposalInputDTO) ([]proposal.ProposedEvent, error) {
	events := make([]proposal.ProposedEvent, 0, len(dto.Events))
	for _, e := range dto.Events {
		pe, err := parseEventInput(e)
		if err != nil {
			return nil, err
		}
		events = append(events, pe)
	}
	return events, nil
}

// CreateProposal opens a proposal without committing its events.
func (h *Handler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var dto ProposalInputDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	events, err := parseProposalInput(dto)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id := h.store.CreateProposal(dto.Name, events)
	writeJSON(w, http.StatusCreated, map[string]any{
		"proposalId": id.String(),
		"name":       dto.Name,
		"eventCount": len(events),
	})
}

// ListProposals lists all open proposals.
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	proposals := h.store.ListProposals()

	dtos := make([]ProposalSummaryDTO, 0, len(proposals))
	for _, p := range proposals {
		dtos = append(dtos, ProposalSummaryDTO{
			ProposalID: p.ID.String(),
			Name:       p.Name,
			EventCount: len(p.Events),
			CreatedAt:  p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CheckConflicts reports conflicts for a proposal without modifying anything.
// An omitted calendar parameter checks against all calendars; checkInternal
// (default true) also compares the proposal's events against each other.
func (h *Handler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	id, err := proposal.ParseProposalID(muxVar(r, "proposalId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid proposal ID", err.Error())
		return
	}

	checkInternal := true
	if raw := r.URL.Query().Get("checkInternal"); raw != "" {
		checkInternal = raw == "true"
	}

	report, err := h.store.CheckConflicts(id, r.URL.Query().Get("calendar"), checkInternal)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ConflictReportDTO{
		ProposalID:   report.ProposalID.String(),
		HasConflicts: report.HasConflicts,
		Conflicts:    conflictsToDTOs(report.Conflicts),
	})
}

// CommitProposal promotes a proposal into the target calendar. No conflict
// check is performed here; callers are expected to have checked first.
func (h *Handler) CommitProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposal.ParseProposalID(muxVar(r, "proposalId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid proposal ID", err.Error())
		return
	}

	ids, err := h.store.CommitProposal(id, h.calendarOrDefault(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	idStrings := make([]string, 0, len(ids))
	for _, eid := range ids {
		idStrings = append(idStrings, eid.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"eventIds":   idStrings,
		"eventCount": len(idStrings),
	})
}

// WithdrawProposal deletes a proposal; its draft events are discarded.
func (h *Handler) WithdrawProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposal.ParseProposalID(muxVar(r, "proposalId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid proposal ID", err.Error())
		return
	}

	if _, ok := h.store.WithdrawProposal(id); !ok {
		writeError(w, http.StatusNotFound, "proposal not found: "+id.String(), "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"withdrawn": true})
}

// ProposeAndCommit creates, checks, and commits a proposal in one atomic
// step. If conflicts are found the proposal is discarded and the conflicts
// returned with committed=false.
func (h *Handler) ProposeAndCommit(w http.ResponseWriter, r *http.Request) {
	var dto ProposalInputDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	events, err := parseProposalInput(dto)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.store.ProposeAndCommit(dto.Name, events, h.calendarOrDefault(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !result.Committed {
		writeJSON(w, http.StatusConflict, map[string]any{
			"committed": false,
			"conflicts": conflictsToDTOs(result.Conflicts),
		})
		return
	}

	idStrings := make([]string, 0, len(result.EventIDs))
	for _, eid := range result.EventIDs {
		idStrings = append(idStrings, eid.String())
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"committed":  true,
		"eventIds":   idStrings,
		"eventCount": len(idStrings),
	})
}
