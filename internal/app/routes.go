package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Calendar events
	r.HandleFunc("/api/calendar/event", deps.ScheduleHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/calendar/event/{eventId}", deps.ScheduleHandler.DeleteEvent).Methods("DELETE")
	r.HandleFunc("/api/calendar/events", deps.ScheduleHandler.GetOccurrences).Queries("from", "{from}", "to", "{to}").Methods("GET")
	r.HandleFunc("/api/calendar/events", deps.ScheduleHandler.ClearCalendar).Methods("DELETE")

	// Availability
	r.HandleFunc("/api/calendar/freebusy", deps.ScheduleHandler.GetFreeBusy).Queries("from", "{from}", "to", "{to}").Methods("GET")
	r.HandleFunc("/api/calendar/slots", deps.ScheduleHandler.GetAvailableSlots).Queries("from", "{from}", "to", "{to}").Methods("GET")

	// Import / export
	r.HandleFunc("/api/calendar/import/ical", deps.ScheduleHandler.ImportICal).Methods("POST")
	r.HandleFunc("/api/calendar/import/json", deps.ScheduleHandler.ImportJSON).Methods("POST")
	r.HandleFunc("/api/calendar/import/google", deps.ScheduleHandler.ImportGoogle).Methods("POST")
	r.HandleFunc("/api/calendar/export/ical", deps.ScheduleHandler.ExportICal).Methods("GET")
	r.HandleFunc("/api/calendar/export/json", deps.ScheduleHandler.ExportJSON).Methods("GET")

	// Proposals
	r.HandleFunc("/api/proposal", deps.ScheduleHandler.CreateProposal).Methods("POST")
	r.HandleFunc("/api/proposal", deps.ScheduleHandler.ListProposals).Methods("GET")
	r.HandleFunc("/api/proposal/{proposalId}/conflicts", deps.ScheduleHandler.CheckConflicts).Methods("GET")
	r.HandleFunc("/api/proposal/{proposalId}/commit", deps.ScheduleHandler.CommitProposal).Methods("POST")
	r.HandleFunc("/api/proposal/{proposalId}", deps.ScheduleHandler.WithdrawProposal).Methods("DELETE")

	// One-step propose and commit
	r.HandleFunc("/api/schedule", deps.ScheduleHandler.ProposeAndCommit).Methods("POST")
}
