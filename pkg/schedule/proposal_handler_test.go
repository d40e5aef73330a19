package schedule

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora/tempora/pkg/proposal"
)

func createProposal(t *testing.T, handler *Handler, dto ProposalInputDTO) string {
	t.Helper()
	body, err := json.Marshal(dto)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/proposal", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.CreateProposal(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ProposalID string `json:"proposalId"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.ProposalID)
	return resp.ProposalID
}

func sampleProposalInput(name string) ProposalInputDTO {
	return ProposalInputDTO{
		Name: name,
		Events: []EventInputDTO{
			{Title: "Kickoff", Start: "2026-01-05T09:00:00Z", End: "2026-01-05T10:00:00Z"},
			{Title: "Retro", Start: "2026-01-05T15:00:00Z", End: "2026-01-05T16:00:00Z"},
		},
	}
}

func TestCreateProposal_Success(t *testing.T) {
	handler := setupHandlerTest(t)

	id := createProposal(t, handler, sampleProposalInput("Sprint 12"))

	_, err := proposal.ParseProposalID(id)
	assert.NoError(t, err)
}

func TestCreateProposal_InvalidEventRejectsWhole(t *testing.T) {
	handler := setupHandlerTest(t)

	input := sampleProposalInput("Broken")
	input.Events = append(input.Events, EventInputDTO{Start: "2026-01-06T09:00:00Z", End: "2026-01-06T10:00:00Z"})

	body, err := json.Marshal(input)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/proposal", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.CreateProposal(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/proposal", nil)
	listW := httptest.NewRecorder()
	handler.ListProposals(listW, listReq)

	var proposals []ProposalSummaryDTO
	require.NoError(t, json.NewDecoder(listW.Body).Decode(&proposals))
	assert.Empty(t, proposals)
}

func TestListProposals(t *testing.T) {
	handler := setupHandlerTest(t)

	createProposal(t, handler, sampleProposalInput("First"))
	createProposal(t, handler, sampleProposalInput("Second"))

	req := httptest.NewRequest(http.MethodGet, "/api/proposal", nil)
	w := httptest.NewRecorder()
	handler.ListProposals(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var proposals []ProposalSummaryDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&proposals))
	require.Len(t, proposals, 2)
	assert.Equal(t, 2, proposals[0].EventCount)
}

func TestCheckConflicts_ReportsOverlap(t *testing.T) {
	handler := setupHandlerTest(t)

	createEvent(t, handler, EventInputDTO{
		Title: "Existing Meeting",
		Start: "2026-01-05T09:30:00Z",
		End:   "2026-01-05T10:30:00Z",
	})
	id := createProposal(t, handler, sampleProposalInput("Overlapping"))

	req := httptest.NewRequest(http.MethodGet, "/api/proposal/"+id+"/conflicts", nil)
	req = muxSetVars(req, map[string]string{"proposalId": id})
	w := httptest.NewRecorder()
	handler.CheckConflicts(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var report ConflictReportDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.True(t, report.HasConflicts)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "Kickoff", report.Conflicts[0].ProposedEventTitle)
	assert.Equal(t, "Existing Meeting", report.Conflicts[0].ConflictingEventTitle)
	assert.Equal(t, int64(30), report.Conflicts[0].OverlapMinutes)
	require.NotNil(t, report.Conflicts[0].ConflictingEventID)
}

func TestCheckConflicts_UnknownProposal(t *testing.T) {
	handler := setupHandlerTest(t)

	id := proposal.NewProposalID().String()
	req := httptest.NewRequest(http.MethodGet, "/api/proposal/"+id+"/conflicts", nil)
	req = muxSetVars(req, map[string]string{"proposalId": id})
	w := httptest.NewRecorder()
	handler.CheckConflicts(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommitProposal_Success(t *testing.T) {
	handler := setupHandlerTest(t)

	id := createProposal(t, handler, sampleProposalInput("Sprint 12"))

	req := httptest.NewRequest(http.MethodPost, "/api/proposal/"+id+"/commit", nil)
	req = muxSetVars(req, map[string]string{"proposalId": id})
	w := httptest.NewRecorder()
	handler.CommitProposal(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		EventIDs   []string `json:"eventIds"`
		EventCount int      `json:"eventCount"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.EventCount)
	assert.Len(t, resp.EventIDs, 2)

	// Committed events are queryable; the proposal is gone.
	listReq := httptest.NewRequest(http.MethodGet, "/api/calendar/events?from=2026-01-05T00:00:00Z&to=2026-01-06T00:00:00Z", nil)
	listW := httptest.NewRecorder()
	handler.GetOccurrences(listW, listReq)
	var occs []OccurrenceDTO
	require.NoError(t, json.NewDecoder(listW.Body).Decode(&occs))
	assert.Len(t, occs, 2)

	again := httptest.NewRequest(http.MethodPost, "/api/proposal/"+id+"/commit", nil)
	again = muxSetVars(again, map[string]string{"proposalId": id})
	againW := httptest.NewRecorder()
	handler.CommitProposal(againW, again)
	assert.Equal(t, http.StatusNotFound, againW.Code)
}

func TestWithdrawProposal(t *testing.T) {
	handler := setupHandlerTest(t)

	id := createProposal(t, handler, sampleProposalInput("Abandoned"))

	req := httptest.NewRequest(http.MethodDelete, "/api/proposal/"+id, nil)
	req = muxSetVars(req, map[string]string{"proposalId": id})
	w := httptest.NewRecorder()
	handler.WithdrawProposal(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp["withdrawn"])

	again := httptest.NewRequest(http.MethodDelete, "/api/proposal/"+id, nil)
	again = muxSetVars(again, map[string]string{"proposalId": id})
	againW := httptest.NewRecorder()
	handler.WithdrawProposal(againW, again)
	assert.Equal(t, http.StatusNotFound, againW.Code)
}

func TestProposeAndCommit_Clean(t *testing.T) {
	handler := setupHandlerTest(t)

	body, err := json.Marshal(sampleProposalInput("Atomic"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/schedule", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.ProposeAndCommit(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Committed bool     `json:"committed"`
		EventIDs  []string `json:"eventIds"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Committed)
	assert.Len(t, resp.EventIDs, 2)
}

func TestProposeAndCommit_ConflictBlocks(t *testing.T) {
	handler := setupHandlerTest(t)

	createEvent(t, handler, EventInputDTO{
		Title: "Existing Meeting",
		Start: "2026-01-05T09:30:00Z",
		End:   "2026-01-05T10:30:00Z",
	})

	body, err := json.Marshal(sampleProposalInput("Blocked"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/schedule", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.ProposeAndCommit(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	var resp struct {
		Committed bool          `json:"committed"`
		Conflicts []ConflictDTO `json:"conflicts"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Committed)
	require.Len(t, resp.Conflicts, 1)

	// Nothing was committed and no proposal lingers.
	listReq := httptest.NewRequest(http.MethodGet, "/api/proposal", nil)
	listW := httptest.NewRecorder()
	handler.ListProposals(listW, listReq)
	var proposals []ProposalSummaryDTO
	require.NoError(t, json.NewDecoder(listW.Body).Decode(&proposals))
	assert.Empty(t, proposals)
}
