package synthesis

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/nerrad567/gray-logic-loadsynth/internal/household"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
)

// OrderStream is the activity name under which the per-day assignment
// order is drawn.
const OrderStream = "#order"

// Scheduler plans whole days for one user at a time.
type Scheduler struct {
	synth       *Synthesizer
	maxAttempts int
	logger      Logger
}

// NewScheduler creates a scheduler that gives each occurrence maxAttempts
// placement attempts.
func NewScheduler(synth *Synthesizer, maxAttempts int) *Scheduler {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Scheduler{synth: synth, maxAttempts: maxAttempts, logger: noopLogger{}}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// ScheduleDay places the occurrences of every assignment of u on day.
//
// occ carries the user's commitments from earlier days and is updated with
// the new placements; pass nil to plan the day in isolation.
//
// Returns:
//   - *DayPlan: placed occurrences in placement order and per-activity counts
//   - error: fatal errors from the synthesizer
func (s *Scheduler) ScheduleDay(u *household.User, day int, streams Streams, occ *Occupancy) (*DayPlan, error) {
	if occ == nil {
		occ = NewOccupancy()
	}
	occ.Prune(int64(day) * presence.SecondsPerDay)

	plan := &DayPlan{
		User:   u.Name,
		Day:    day,
		Counts: make(map[string]Counts, len(u.Assignments)),
	}

	order := streams.For(u.Name, OrderStream, day).Perm(len(u.Assignments))
	for _, idx := range order {
		a := u.Assignments[idx]
		name := a.Activity.Name
		rng := streams.For(u.Name, name, day)

		target := Target(a.DailyRuns, rng)
		counts := plan.Counts[name]
		for range target {
			o, err := s.synth.Attempt(a, u, day, rng, s.maxAttempts, occ)
			if err != nil {
				return nil, err
			}
			if o == nil {
				counts.DidntFit++
				continue
			}
			counts.Scheduled++
			occ.Reserve(o)
			plan.Occurrences = append(plan.Occurrences, o)
		}
		plan.Counts[name] = counts
	}

	s.logger.Debug("day planned", "user", u.Name, "day", day, "occurrences", len(plan.Occurrences))
	return plan, nil
}

// Target draws how many occurrences to attempt for a daily rate. Rates of
// at least one are randomly rounded around the rate; smaller rates are the
// probability of a single occurrence.
func Target(dailyRuns float64, rng *rand.Rand) int {
	if dailyRuns >= 1 {
		return int(math.Round(dailyRuns + rng.Float64() - 0.5))
	}
	if rng.Float64() < dailyRuns {
		return 1
	}
	return 0
}

// String implements fmt.Stringer for log output.
func (c Counts) String() string {
	return fmt.Sprintf("%d scheduled, %d didn't fit", c.Scheduled, c.DidntFit)
}
