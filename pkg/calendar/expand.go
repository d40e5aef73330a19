package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/tempora/tempora/pkg/interval"
)

// maxRecurrenceOccurrences caps how many instances a single rule may generate
// per query. It guards against unbounded rules ("every minute forever").
const maxRecurrenceOccurrences = 1000

// RecurrenceEvaluator expands an opaque recurrence rule, anchored at an
// absolute start instant, into concrete start instants within a window.
// Implementations must never return more than limit instants.
type RecurrenceEvaluator interface {
	InstantsInWindow(rule string, anchor time.Time, window interval.TimeRange, limit int) ([]time.Time, error)
}

// RRuleEvaluator evaluates RFC 5545 RRULE text via rrule-go.
type RRuleEvaluator struct{}

func (RRuleEvaluator) InstantsInWindow(rule string, anchor time.Time, window interval.TimeRange, limit int) ([]time.Time, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, err
	}
	r.DTStart(anchor)

	// Walk the rule's iterator and stop as soon as limit instants have been
	// collected, so an unbounded rule never materializes more than limit
	// instants no matter how wide the window is.
	var instants []time.Time
	next := r.Iterator()
	for len(instants) < limit {
		instant, ok := next()
		if !ok || instant.After(window.End) {
			break
		}
		if instant.Before(window.Start) {
			continue
		}
		instants = append(instants, instant)
	}
	return instants, nil
}

// expandEvent turns an event into its occurrences within the half-open query
// window. Non-recurring events are included once iff they overlap the window;
// recurring events are expanded through the evaluator with the template's
// duration preserved.
func expandEvent(ev Event, window interval.TimeRange, eval RecurrenceEvaluator) ([]Occurrence, error) {
	if !ev.IsRecurring() {
		eventRange := interval.TimeRange{Start: ev.Start, End: ev.End}
		if eventRange.Overlaps(window) {
			return []Occurrence{ev.ToOccurrence()}, nil
		}
		return nil, nil
	}

	starts, err := eval.InstantsInWindow(ev.RRule, ev.Start, window, maxRecurrenceOccurrences)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidRRule, ev.RRule, err)
	}

	duration := ev.End.Sub(ev.Start)
	occurrences := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		// The evaluator window is inclusive of its end; the query window is not.
		if !start.Before(window.End) {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			EventID:     ev.ID,
			Title:       ev.Title,
			Start:       start,
			End:         start.Add(duration),
			IsRecurring: true,
			Metadata:    ev.Metadata,
		})
	}
	return occurrences, nil
}
