package synthesis

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
	"github.com/nerrad567/gray-logic-loadsynth/internal/household"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
)

// Synthesizer places single activity occurrences.
type Synthesizer struct {
	exec         Executor
	firstWeekday presence.Weekday
	horizon      int64
	logger       Logger
}

// NewSynthesizer creates a synthesizer. Simulated day 0 falls on firstWeekday.
func NewSynthesizer(exec Executor, firstWeekday presence.Weekday) *Synthesizer {
	return &Synthesizer{exec: exec, firstWeekday: firstWeekday, logger: noopLogger{}}
}

// SetLogger sets the logger for the synthesizer.
func (s *Synthesizer) SetLogger(logger Logger) {
	s.logger = logger
}

// SetHorizon sets the absolute end of the simulated trace. Occurrences that
// would run past it are rejected. Zero means no limit.
func (s *Synthesizer) SetHorizon(end int64) {
	s.horizon = end
}

// Weekday returns the weekday of simulated day.
func (s *Synthesizer) Weekday(day int) presence.Weekday {
	return presence.DayWeekday(s.firstWeekday, day)
}

// Attempt tries to place one occurrence of a for user u on day.
//
// Parameters:
//   - a: the activity assignment
//   - u: the user performing it
//   - day: simulated day index
//   - rng: stream for start times and state machine draws
//   - maxAttempts: number of executions tried before giving up
//   - occupied: the user's existing commitments; not modified
//
// Returns:
//   - *Occurrence: the placed occurrence, or nil if it did not fit
//   - error: only for fatal failures such as appliance.ErrProfileSelection
func (s *Synthesizer) Attempt(a household.Assignment, u *household.User, day int, rng *rand.Rand,
	maxAttempts int, occupied *Occupancy) (*Occurrence, error) {
	if occupied == nil {
		occupied = NewOccupancy()
	}
	model := a.Activity
	wd := s.Weekday(day)
	dayStart := int64(day) * presence.SecondsPerDay

	today := u.Windows(a, wd)
	total := presence.Total(today)
	if total == 0 {
		return nil, nil
	}
	allowed := presence.Absolute(today, dayStart)
	needsUser := model.InvolvesUser()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := dayStart + drawStart(today, total, rng)

		exec, err := s.exec.Execute(model, start, rng)
		if errors.Is(err, activity.ErrStepLimit) {
			s.logger.Warn("activity did not terminate, retrying", "activity", model.Name, "user", u.Name, "day", day)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("placing %s for %s on day %d: %w", model.Name, u.Name, day, err)
		}

		if s.horizon > 0 && exec.End > s.horizon {
			continue
		}
		if needsUser && !userFits(exec.UserSpans, allowed, occupied) {
			continue
		}
		extent := presence.Interval{Start: exec.Start, End: exec.End}
		if occupied.ActivityBusy(model.Name, extent) {
			continue
		}

		id, err := uuid.NewRandomFromReader(streamReader{rng})
		if err != nil {
			return nil, fmt.Errorf("drawing occurrence id: %w", err)
		}
		return &Occurrence{
			ID:         id.String(),
			Activity:   model.Name,
			User:       u.Name,
			Day:        day,
			Start:      exec.Start,
			End:        exec.End,
			Attempts:   attempt,
			Outcome:    OutcomePlaced,
			Operations: exec.Operations,
			UserSpans:  exec.UserSpans,
		}, nil
	}

	s.logger.Debug("activity did not fit", "activity", model.Name, "user", u.Name, "day", day, "attempts", maxAttempts)
	return nil, nil
}

// drawStart picks a second of day uniformly over the union of windows,
// which weights each window by its length.
func drawStart(windows []presence.Interval, total int64, rng *rand.Rand) int64 {
	pos := rng.Int64N(total)
	for _, w := range windows {
		if pos < w.Len() {
			return w.Start + pos
		}
		pos -= w.Len()
	}
	return windows[len(windows)-1].Start
}

// streamReader draws bytes from a seeded stream so occurrence ids repeat
// with the seed.
type streamReader struct{ rng *rand.Rand }

func (r streamReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := r.rng.Uint64()
		for j := i; j < len(p) && j < i+8; j++ {
			p[j] = byte(v)
			v >>= 8
		}
	}
	return len(p), nil
}

func userFits(spans, allowed []presence.Interval, occupied *Occupancy) bool {
	for _, span := range spans {
		if !presence.Covers(allowed, span) || occupied.UserBusy(span) {
			return false
		}
	}
	return true
}
