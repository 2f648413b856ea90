package synthesis

import (
	"math/rand/v2"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
)

// Outcome of a scheduling target.
type Outcome string

const (
	// OutcomePlaced means the occurrence was scheduled.
	OutcomePlaced Outcome = "placed"
	// OutcomeDidntFit means no attempt satisfied the placement constraints.
	OutcomeDidntFit Outcome = "didnt_fit"
)

// Occurrence is one placed execution of an activity.
type Occurrence struct {
	ID       string  `json:"id"`
	Activity string  `json:"activity"`
	User     string  `json:"user"`
	Day      int     `json:"day"`
	Start    int64   `json:"start"`
	End      int64   `json:"end"`
	Attempts int     `json:"attempts"`
	Outcome  Outcome `json:"outcome"`

	Operations []activity.DeviceOperation `json:"operations"`
	UserSpans  []presence.Interval        `json:"user_spans"`
}

// Extent returns the span from the first state to the end of the last
// operation.
func (o *Occurrence) Extent() presence.Interval {
	return presence.Interval{Start: o.Start, End: o.End}
}

// Counts tallies scheduling targets of one activity.
type Counts struct {
	Scheduled int `json:"scheduled"`
	DidntFit  int `json:"didnt_fit"`
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{Scheduled: c.Scheduled + o.Scheduled, DidntFit: c.DidntFit + o.DidntFit}
}

// DayPlan is the schedule of one user on one day.
type DayPlan struct {
	User        string
	Day         int
	Occurrences []*Occurrence
	Counts      map[string]Counts
}

// Streams hands out independent random streams per user, activity and day.
type Streams interface {
	For(user, activity string, day int) *rand.Rand
}

// Executor runs an activity model. *activity.Engine satisfies it.
type Executor interface {
	Execute(model *activity.Model, start int64, rng *rand.Rand) (*activity.Execution, error)
}

// Logger defines the logging interface used by the package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
