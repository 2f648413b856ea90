package activity

import (
	"fmt"
	"math/rand/v2"

	"github.com/nerrad567/gray-logic-loadsynth/internal/appliance"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
)

// DefaultStepLimit is the number of state visits after which an execution
// is abandoned with ErrStepLimit.
const DefaultStepLimit = 10000

// Background and jitter delays are drawn from [minDelay, maxDelay] seconds.
const (
	minDelay = 5
	maxDelay = 10
)

// Logger defines the logging interface used by the Engine.
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

// ProfileSource provides appliance profiles to the engine.
// *appliance.Library satisfies it.
type ProfileSource interface {
	SelectProfile(applianceType, deviceHandle string, randomized bool, rng *rand.Rand) (*appliance.Profile, error)
	RandomHandle(applianceType string, rng *rand.Rand) (string, error)
}

// Engine executes activity models.
//
// An Engine holds no per-execution state and is safe for concurrent use as
// long as each caller passes its own random stream.
type Engine struct {
	profiles   ProfileSource
	randomized bool
	stepLimit  int
	logger     Logger
}

// NewEngine creates an engine selecting profiles from profiles. When
// randomized is true, every execution draws one device handle per appliance
// type instead of using the model's bindings.
func NewEngine(profiles ProfileSource, randomized bool) *Engine {
	return &Engine{
		profiles:   profiles,
		randomized: randomized,
		stepLimit:  DefaultStepLimit,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetStepLimit overrides DefaultStepLimit. Values below 1 are ignored.
func (e *Engine) SetStepLimit(limit int) {
	if limit > 0 {
		e.stepLimit = limit
	}
}

// Execute runs model once starting at absolute second start.
//
// Parameters:
//   - model: a validated activity model
//   - start: absolute simulation second of the first state
//   - rng: caller-owned random stream; all draws of the execution use it
//
// Returns:
//   - *Execution: emitted operations, user spans and end time
//   - error: appliance.ErrProfileSelection if a profile is missing,
//     ErrUnknownDevice for dangling device keys, ErrStepLimit if the machine
//     does not terminate in time
func (e *Engine) Execute(model *Model, start int64, rng *rand.Rand) (*Execution, error) {
	handles, err := e.bind(model, rng)
	if err != nil {
		return nil, err
	}

	exec := &Execution{Start: start}
	now := start
	latest := start // end of the latest in-flight operation
	id := EntryState

	for {
		state, ok := model.States[id]
		if !ok {
			break
		}
		exec.Steps++
		if exec.Steps > e.stepLimit {
			return nil, fmt.Errorf("%w: %s after %d states", ErrStepLimit, model.Name, e.stepLimit)
		}

		stateStart := now
		var profile *appliance.Profile
		if state.HasDevice() {
			typ, ok := model.Devices[state.DeviceKey]
			if !ok {
				return nil, fmt.Errorf("%w: %s state %d references device %d", ErrUnknownDevice, model.Name, id, state.DeviceKey)
			}
			profile, err = e.profiles.SelectProfile(typ, handles[typ], false, rng)
			if err != nil {
				return nil, fmt.Errorf("activity %s state %d: %w", model.Name, id, err)
			}
		}

		duration := e.duration(model, state, profile, rng)

		if profile != nil {
			samples := profile.Samples
			if duration != profile.NaturalDuration() {
				samples = profile.Rescale(duration)
			}
			op := DeviceOperation{
				ApplianceType: profile.Type,
				DeviceHandle:  profile.Handle,
				State:         state.Name,
				Start:         now,
				Duration:      duration,
				Samples:       samples,
			}
			exec.Operations = append(exec.Operations, op)
			latest = max(latest, op.End())
		}

		if state.RunToCompletion || profile == nil {
			now += duration
		} else {
			now += drawDelay(rng)
		}

		if state.InvolvesUser && now > stateStart {
			exec.UserSpans = append(exec.UserSpans, presence.Interval{Start: stateStart, End: now})
		}

		id, ok = next(state.Transitions, rng)
		if !ok {
			break
		}
	}

	exec.End = max(now, latest)
	return exec, nil
}

// bind resolves the device handle of every appliance type the model uses
// for one execution. In fixed mode every type must be bound by the model.
func (e *Engine) bind(model *Model, rng *rand.Rand) (map[string]string, error) {
	types := model.ApplianceTypes()
	handles := make(map[string]string, len(types))
	for _, typ := range types {
		if !e.randomized {
			h, ok := model.Bindings[typ]
			if !ok {
				return nil, fmt.Errorf("activity %s: no device bound for %s: %w",
					model.Name, typ, appliance.ErrProfileSelection)
			}
			handles[typ] = h
			continue
		}
		h, err := e.profiles.RandomHandle(typ, rng)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", model.Name, err)
		}
		handles[typ] = h
	}
	return handles, nil
}

// duration resolves how long a state lasts.
func (e *Engine) duration(model *Model, s State, profile *appliance.Profile, rng *rand.Rand) int64 {
	if s.MinDuration == 0 && s.MaxDuration == 0 {
		if profile != nil {
			return profile.NaturalDuration()
		}
		e.logger.Warn("state has no device and no duration, using a short delay",
			"activity", model.Name, "state", s.Name)
		return drawDelay(rng)
	}
	lo, hi := min(s.MinDuration, s.MaxDuration), max(s.MinDuration, s.MaxDuration)
	return lo + rng.Int64N(hi-lo+1)
}

func drawDelay(rng *rand.Rand) int64 {
	return minDelay + rng.Int64N(maxDelay-minDelay+1)
}

// next draws the following state id. ok is false when the machine terminates.
func next(ts []Transition, rng *rand.Rand) (int, bool) {
	if len(ts) == 0 {
		return 0, false
	}
	r := rng.Float64()
	if r < ts[0].Probability {
		return ts[0].Target, true
	}
	if len(ts) > 1 {
		return ts[1].Target, true
	}
	return 0, false
}
