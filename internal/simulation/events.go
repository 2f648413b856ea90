package simulation

import (
	"sort"

	"github.com/nerrad567/gray-logic-loadsynth/internal/synthesis"
)

// Event types and actions of the event log.
const (
	EventActivity = "ACT"
	EventDevice   = "DEV"

	ActionStart = "START"
	ActionEnd   = "END"
	ActionOn    = "ON"
	ActionOff   = "OFF"
)

// Event is one line of the event log. Time is the absolute second; END and
// OFF carry the last second of the activity or operation.
type Event struct {
	Time   int64  `json:"time"`
	Type   string `json:"type"`
	Source string `json:"source"`
	Action string `json:"action"`
}

// occurrenceEvents returns the events of one placed occurrence.
func occurrenceEvents(o *synthesis.Occurrence) []Event {
	events := make([]Event, 0, 2+2*len(o.Operations))
	events = append(events, Event{Time: o.Start, Type: EventActivity, Source: o.Activity, Action: ActionStart})
	for _, op := range o.Operations {
		events = append(events,
			Event{Time: op.Start, Type: EventDevice, Source: op.ApplianceType, Action: ActionOn},
			Event{Time: op.End() - 1, Type: EventDevice, Source: op.ApplianceType, Action: ActionOff},
		)
	}
	return append(events, Event{Time: max(o.End-1, o.Start), Type: EventActivity, Source: o.Activity, Action: ActionEnd})
}

// SortEvents orders events by time and, at equal times, by action in
// descending order (START, ON, OFF, END).
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		return events[i].Action > events[j].Action
	})
}
