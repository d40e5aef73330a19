package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/tempora/tempora/internal/config"
	"github.com/tempora/tempora/internal/event_bus"
	"github.com/tempora/tempora/internal/utils"
	"github.com/tempora/tempora/pkg/calendar"
	"github.com/tempora/tempora/pkg/schedule"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Bus   *event_bus.EventBus
	Clock utils.Clock

	Store           *schedule.Store
	ScheduleHandler *schedule.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Bus = event_bus.NewEventBus()
	deps.Clock = utils.SystemClock{}
	registerAuditLogging(deps.Bus)

	deps.Store = schedule.NewStore(calendar.RRuleEvaluator{}, deps.Clock, deps.Bus)
	deps.ScheduleHandler = schedule.NewHandler(deps.Store, cfg.Calendar.DefaultName)

	return deps
}

// registerAuditLogging subscribes debug listeners for every store
// notification, giving operators a mutation trail via LOG_LEVEL=debug.
func registerAuditLogging(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped[event_bus.CalendarEventAdded](bus, event_bus.EventAddedType,
		func(e event_bus.EventT[event_bus.CalendarEventAdded]) error {
			log.Debugf("event %s (%q) added to calendar %q", e.Data.EventID, e.Data.Title, e.Data.CalendarName)
			return nil
		})
	event_bus.SubscribeTyped[event_bus.CalendarEventRemoved](bus, event_bus.EventRemovedType,
		func(e event_bus.EventT[event_bus.CalendarEventRemoved]) error {
			log.Debugf("event %s removed from calendar %q", e.Data.EventID, e.Data.CalendarName)
			return nil
		})
	event_bus.SubscribeTyped[event_bus.CalendarCleared](bus, event_bus.CalendarClearedType,
		func(e event_bus.EventT[event_bus.CalendarCleared]) error {
			log.Debugf("calendar %q cleared", e.Data.CalendarName)
			return nil
		})
	event_bus.SubscribeTyped[event_bus.ProposalCommitted](bus, event_bus.ProposalCommittedType,
		func(e event_bus.EventT[event_bus.ProposalCommitted]) error {
			log.Debugf("proposal %s committed to calendar %q (%d events)", e.Data.ProposalID, e.Data.CalendarName, len(e.Data.EventIDs))
			return nil
		})
	event_bus.SubscribeTyped[event_bus.ProposalWithdrawn](bus, event_bus.ProposalWithdrawnType,
		func(e event_bus.EventT[event_bus.ProposalWithdrawn]) error {
			log.Debugf("proposal %s (%q) withdrawn", e.Data.ProposalID, e.Data.Name)
			return nil
		})
}
