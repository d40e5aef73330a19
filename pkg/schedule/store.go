package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tempora/tempora/internal/event_bus"
	"github.com/tempora/tempora/internal/utils"
	"github.com/tempora/tempora/pkg/calendar"
	"github.com/tempora/tempora/pkg/interval"
	"github.com/tempora/tempora/pkg/proposal"
)

// DefaultCalendarName is the calendar that exists from store construction.
const DefaultCalendarName = "default"

// Store owns all named calendars and all open proposals, and is the sole
// mutation entry point. A single reader/writer lock guards the whole store:
// queries run concurrently, mutations are fully serialized. Calendar names
// are case-insensitive; the canonical key is the lower-cased name.
type Store struct {
	mu        sync.RWMutex
	calendars map[string]*calendar.Calendar
	proposals map[proposal.ProposalID]*proposal.Proposal
	eval      calendar.RecurrenceEvaluator
	clock     utils.Clock
	bus       *event_bus.EventBus
}

// NewStore creates a store holding the default calendar. The bus may be nil,
// in which case no notifications are published.
func NewStore(eval calendar.RecurrenceEvaluator, clock utils.Clock, bus *event_bus.EventBus) *Store {
	calendars := make(map[string]*calendar.Calendar)
	calendars[DefaultCalendarName] = calendar.New(DefaultCalendarName, eval)
	return &Store{
		calendars: calendars,
		proposals: make(map[proposal.ProposalID]*proposal.Proposal),
		eval:      eval,
		clock:     clock,
		bus:       bus,
	}
}

func calendarKey(name string) string {
	return strings.ToLower(name)
}

// getOrCreateCalendarLocked requires the write lock.
func (s *Store) getOrCreateCalendarLocked(name string) *calendar.Calendar {
	key := calendarKey(name)
	cal, ok := s.calendars[key]
	if !ok {
		cal = calendar.New(key, s.eval)
		s.calendars[key] = cal
	}
	return cal
}

// getCalendarLocked requires at least the read lock.
func (s *Store) getCalendarLocked(name string) (*calendar.Calendar, error) {
	cal, ok := s.calendars[calendarKey(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", calendar.ErrCalendarNotFound, name)
	}
	return cal, nil
}

// AddEvent inserts a single event, creating the calendar if needed.
func (s *Store) AddEvent(calendarName string, event calendar.Event) calendar.EventID {
	s.mu.Lock()
	id := s.getOrCreateCalendarLocked(calendarName).AddEvent(event)
	s.mu.Unlock()

	s.publish(event_bus.EventAddedType, event_bus.CalendarEventAdded{
		CalendarName: calendarKey(calendarName),
		EventID:      id.String(),
		Title:        event.Title,
		StartTime:    event.Start,
		EndTime:      event.End,
	})
	return id
}

// AddEvents inserts a batch of events under a single lock hold. Used by the
// import adapters. Each inserted event is published individually, same as
// single AddEvent.
func (s *Store) AddEvents(calendarName string, events []calendar.Event) []calendar.EventID {
	ids := make([]calendar.EventID, 0, len(events))

	s.mu.Lock()
	cal := s.getOrCreateCalendarLocked(calendarName)
	for _, event := range events {
		ids = append(ids, cal.AddEvent(event))
	}
	s.mu.Unlock()

	for _, event := range events {
		s.publish(event_bus.EventAddedType, event_bus.CalendarEventAdded{
			CalendarName: calendarKey(calendarName),
			EventID:      event.ID.String(),
			Title:        event.Title,
			StartTime:    event.Start,
			EndTime:      event.End,
		})
	}
	return ids
}

// RemoveEvent removes one event by id.
func (s *Store) RemoveEvent(calendarName string, id calendar.EventID) error {
	s.mu.Lock()
	cal, err := s.getCalendarLocked(calendarName)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	_, ok := cal.RemoveEvent(id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", calendar.ErrEventNotFound, id)
	}
	s.publish(event_bus.EventRemovedType, event_bus.CalendarEventRemoved{
		CalendarName: calendarKey(calendarName),
		EventID:      id.String(),
	})
	return nil
}

// ClearCalendar drops all events of one calendar. Proposals are unaffected.
func (s *Store) ClearCalendar(calendarName string) error {
	s.mu.Lock()
	cal, err := s.getCalendarLocked(calendarName)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	cal.Clear()
	s.mu.Unlock()

	s.publish(event_bus.CalendarClearedType, event_bus.CalendarCleared{
		CalendarName: calendarKey(calendarName),
	})
	return nil
}

// Events returns a snapshot of all events stored in one calendar, for the
// export adapters.
func (s *Store) Events(calendarName string) ([]calendar.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal, err := s.getCalendarLocked(calendarName)
	if err != nil {
		return nil, err
	}
	return cal.Events(), nil
}

// OccurrencesInRange expands events into the half-open window [start, end).
// An empty calendarName queries the union of all calendars.
func (s *Store) OccurrencesInRange(start, end time.Time, calendarName string) ([]calendar.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.occurrencesInRangeLocked(start, end, calendarName)
}

func (s *Store) occurrencesInRangeLocked(start, end time.Time, calendarName string) ([]calendar.Occurrence, error) {
	if calendarName != "" {
		cal, err := s.getCalendarLocked(calendarName)
		if err != nil {
			return nil, err
		}
		return cal.OccurrencesInRange(start, end)
	}

	var all []calendar.Occurrence
	for _, cal := range s.calendars {
		occs, err := cal.OccurrencesInRange(start, end)
		if err != nil {
			return nil, err
		}
		all = append(all, occs...)
	}
	calendar.SortOccurrences(all)
	return all, nil
}

// FreeBusy aggregates occurrences into busy and free periods over the range.
func (s *Store) FreeBusy(start, end time.Time, calendarName string) (calendar.FreeBusyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	occs, err := s.occurrencesInRangeLocked(start, end, calendarName)
	if err != nil {
		return calendar.FreeBusyResult{}, err
	}
	return calendar.ComputeFreeBusy(occs, interval.TimeRange{Start: start, End: end}), nil
}

// FindAvailableSlots returns the free gaps of at least minDuration within
// [start, end). Buffer handling around slots is the caller's concern.
func (s *Store) FindAvailableSlots(start, end time.Time, minDuration time.Duration, calendarName string) ([]interval.TimeRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	occs, err := s.occurrencesInRangeLocked(start, end, calendarName)
	if err != nil {
		return nil, err
	}
	busy := make([]interval.TimeRange, 0, len(occs))
	for _, occ := range occs {
		busy = append(busy, interval.TimeRange{Start: occ.Start, End: occ.End})
	}
	return interval.FindFreeSlots(busy, interval.TimeRange{Start: start, End: end}, minDuration), nil
}

// CreateProposal opens a proposal. It always succeeds, even with no events.
func (s *Store) CreateProposal(name string, events []proposal.ProposedEvent) proposal.ProposalID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createProposalLocked(name, events)
}

func (s *Store) createProposalLocked(name string, events []proposal.ProposedEvent) proposal.ProposalID {
	id := proposal.NewProposalID()
	s.proposals[id] = &proposal.Proposal{
		ID:        id,
		Name:      name,
		Events:    events,
		CreatedAt: s.clock.Now(),
	}
	return id
}

// ListProposals returns copies of all open proposals, oldest first.
func (s *Store) ListProposals() []proposal.Proposal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proposals := make([]proposal.Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		proposals = append(proposals, *p)
	}
	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].CreatedAt.Before(proposals[j].CreatedAt)
	})
	return proposals
}

// WithdrawProposal removes a proposal without side effects and reports
// whether it existed.
func (s *Store) WithdrawProposal(id proposal.ProposalID) (proposal.Proposal, bool) {
	s.mu.Lock()
	p, ok := s.proposals[id]
	if ok {
		delete(s.proposals, id)
	}
	s.mu.Unlock()

	if !ok {
		return proposal.Proposal{}, false
	}
	s.publish(event_bus.ProposalWithdrawnType, event_bus.ProposalWithdrawn{
		ProposalID: id.String(),
		Name:       p.Name,
	})
	return *p, true
}

// CheckConflicts runs conflict detection for a proposal against a calendar
// (or all calendars when calendarName is empty). Read-only: neither the
// proposal nor any calendar is modified.
func (s *Store) CheckConflicts(id proposal.ProposalID, calendarName string, checkInternal bool) (proposal.ConflictReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkConflictsLocked(id, calendarName, checkInternal)
}

func (s *Store) checkConflictsLocked(id proposal.ProposalID, calendarName string, checkInternal bool) (proposal.ConflictReport, error) {
	p, ok := s.proposals[id]
	if !ok {
		return proposal.ConflictReport{}, fmt.Errorf("%w: %s", proposal.ErrProposalNotFound, id)
	}

	start, end, ok := proposal.TimeBounds(p.Events)
	if !ok {
		return proposal.ConflictReport{ProposalID: id}, nil
	}

	existing, err := s.occurrencesInRangeLocked(start, end, calendarName)
	if err != nil {
		return proposal.ConflictReport{}, err
	}

	proposed := make([]calendar.Occurrence, 0, len(p.Events))
	for _, pe := range p.Events {
		proposed = append(proposed, pe.ToOccurrence())
	}

	conflicts := proposal.DetectConflicts(proposed, existing, checkInternal)
	return proposal.ConflictReport{
		ProposalID:   id,
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
	}, nil
}

// CommitProposal promotes a proposal's events into the target calendar,
// minting a fresh event ID per event in input order, and removes the
// proposal. No conflict check is performed; committing a conflicting
// proposal simply creates overlapping events.
func (s *Store) CommitProposal(id proposal.ProposalID, calendarName string) ([]calendar.EventID, error) {
	s.mu.Lock()
	ids, err := s.commitProposalLocked(id, calendarName)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	s.publishCommitted(id, calendarName, ids)
	return ids, nil
}

func (s *Store) commitProposalLocked(id proposal.ProposalID, calendarName string) ([]calendar.EventID, error) {
	p, ok := s.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", proposal.ErrProposalNotFound, id)
	}
	delete(s.proposals, id)

	cal := s.getOrCreateCalendarLocked(calendarName)
	ids := make([]calendar.EventID, 0, len(p.Events))
	for _, pe := range p.Events {
		event := calendar.Event{
			ID:       calendar.NewEventID(),
			Title:    pe.Title,
			Start:    pe.Start,
			End:      pe.End,
			Timezone: pe.Timezone,
			RRule:    pe.RRule,
			Metadata: pe.Metadata,
		}
		ids = append(ids, cal.AddEvent(event))
	}
	return ids, nil
}

// ProposeAndCommitResult reports the outcome of the composite operation:
// either the minted event IDs or the conflicts that blocked the commit.
type ProposeAndCommitResult struct {
	Committed bool
	EventIDs  []calendar.EventID
	Conflicts []proposal.Conflict
}

// ProposeAndCommit creates a proposal, checks it, and commits it if
// conflict-free, all under one continuous exclusive hold so no other
// mutation can interleave between the check and the commit. On conflicts
// the proposal is withdrawn and the conflicts returned.
func (s *Store) ProposeAndCommit(name string, events []proposal.ProposedEvent, calendarName string) (ProposeAndCommitResult, error) {
	s.mu.Lock()
	id := s.createProposalLocked(name, events)

	report, err := s.checkConflictsLocked(id, calendarName, true)
	if err != nil {
		delete(s.proposals, id)
		s.mu.Unlock()
		return ProposeAndCommitResult{}, err
	}

	if report.HasConflicts {
		delete(s.proposals, id)
		s.mu.Unlock()
		return ProposeAndCommitResult{Conflicts: report.Conflicts}, nil
	}

	ids, err := s.commitProposalLocked(id, calendarName)
	s.mu.Unlock()
	if err != nil {
		return ProposeAndCommitResult{}, err
	}

	s.publishCommitted(id, calendarName, ids)
	return ProposeAndCommitResult{Committed: true, EventIDs: ids}, nil
}

func (s *Store) publishCommitted(id proposal.ProposalID, calendarName string, ids []calendar.EventID) {
	idStrings := make([]string, 0, len(ids))
	for _, eid := range ids {
		idStrings = append(idStrings, eid.String())
	}
	s.publish(event_bus.ProposalCommittedType, event_bus.ProposalCommitted{
		ProposalID:   id.String(),
		CalendarName: calendarKey(calendarName),
		EventIDs:     idStrings,
	})
}

// publish is called outside the store lock so that bus handlers may call
// back into the store.
func (s *Store) publish(eventType event_bus.EventType, data any) {
	if s.bus == nil {
		return
	}
	// Delivery failures are the handlers' concern; the mutation already
	// happened and is not rolled back.
	_ = s.bus.Publish(event_bus.NewEvent(context.Background(), eventType, data))
}
