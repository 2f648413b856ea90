package simulation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
	"github.com/nerrad567/gray-logic-loadsynth/internal/household"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
	"github.com/nerrad567/gray-logic-loadsynth/internal/synthesis"
)

// Default option values.
const (
	DefaultMaxAttempts = 10
	DefaultWorkers     = 4
)

// Logger defines the logging interface used by the Orchestrator.
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

// Options configures a run.
type Options struct {
	// RunID identifies the run; a random UUID is used when empty.
	RunID        string
	Name         string
	Days         int
	FirstWeekday presence.Weekday
	Seed         uint64
	MaxAttempts  int
	Workers      int
}

// DayProgress is reported after every simulated day.
type DayProgress struct {
	RunID       string `json:"run_id"`
	Day         int    `json:"day"`
	Days        int    `json:"days"`
	Occurrences int    `json:"occurrences"`
	DidntFit    int    `json:"didnt_fit"`
}

// ProgressFunc receives day progress. It is called from the goroutine
// running Run.
type ProgressFunc func(DayProgress)

// Result is the outcome of a run.
type Result struct {
	RunID        string
	Name         string
	Seed         uint64
	Days         int
	FirstWeekday presence.Weekday
	StartedAt    time.Time
	Elapsed      time.Duration

	Channels       *Channels
	Stats          map[string]synthesis.Counts
	ApplianceRuns  map[string]int
	MaxConcurrency int
	Events         []Event
	Occurrences    []*synthesis.Occurrence
}

// Operations returns every device operation of the run in occurrence order.
func (r *Result) Operations() []activity.DeviceOperation {
	var ops []activity.DeviceOperation
	for _, o := range r.Occurrences {
		ops = append(ops, o.Operations...)
	}
	return ops
}

// Activities returns the activity names with statistics, sorted.
func (r *Result) Activities() []string {
	names := make([]string, 0, len(r.Stats))
	for n := range r.Stats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplianceTypes returns the appliance types that ran at least once, sorted.
func (r *Result) ApplianceTypes() []string {
	types := make([]string, 0, len(r.ApplianceRuns))
	for t := range r.ApplianceRuns {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Orchestrator runs the day loop.
type Orchestrator struct {
	users     []*household.User
	scheduler *synthesis.Scheduler
	streams   *Streams
	opts      Options
	logger    Logger
	progress  ProgressFunc
}

// NewOrchestrator creates an orchestrator for users. exec executes activity
// models, normally an *activity.Engine.
func NewOrchestrator(users []*household.User, exec synthesis.Executor, opts Options) *Orchestrator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	synth := synthesis.NewSynthesizer(exec, opts.FirstWeekday)
	synth.SetHorizon(int64(opts.Days) * presence.SecondsPerDay)
	return &Orchestrator{
		users:     users,
		scheduler: synthesis.NewScheduler(synth, opts.MaxAttempts),
		streams:   NewStreams(opts.Seed),
		opts:      opts,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger of the orchestrator and the schedulers below it.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.logger = logger
	o.scheduler.SetLogger(logger)
}

// OnProgress registers a callback invoked after every simulated day.
func (o *Orchestrator) OnProgress(fn ProgressFunc) {
	o.progress = fn
}

// Run simulates all days.
//
// Users of one day are planned concurrently on at most Workers goroutines;
// their plans are merged in user order. The context is checked between
// days only.
//
// Returns:
//   - *Result: channels, statistics and logs of the run
//   - error: ctx.Err() when cancelled, or a fatal scheduling error
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	runID := o.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	res := &Result{
		RunID:         runID,
		Name:          o.opts.Name,
		Seed:          o.opts.Seed,
		Days:          o.opts.Days,
		FirstWeekday:  o.opts.FirstWeekday,
		StartedAt:     time.Now(),
		Channels:      NewChannels(int64(o.opts.Days) * presence.SecondsPerDay),
		Stats:         make(map[string]synthesis.Counts),
		ApplianceRuns: make(map[string]int),
	}
	for _, u := range o.users {
		res.Channels.Ensure(ChannelKey{Kind: KindUser, Name: u.Name})
		for _, a := range u.Assignments {
			res.Channels.Ensure(ChannelKey{Kind: KindActivity, Name: a.Activity.Name})
			if _, ok := res.Stats[a.Activity.Name]; !ok {
				res.Stats[a.Activity.Name] = synthesis.Counts{}
			}
		}
	}

	o.logger.Info("simulation started", "run_id", res.RunID, "days", o.opts.Days,
		"users", len(o.users), "first_weekday", o.opts.FirstWeekday.String(), "seed", o.opts.Seed)

	occupancy := make([]*synthesis.Occupancy, len(o.users))
	for i := range occupancy {
		occupancy[i] = synthesis.NewOccupancy()
	}

	for day := 0; day < o.opts.Days; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		plans, err := o.planDay(ctx, day, occupancy)
		if err != nil {
			return nil, err
		}

		progress := DayProgress{RunID: res.RunID, Day: day + 1, Days: o.opts.Days}
		for _, plan := range plans {
			for name, c := range plan.Counts {
				res.Stats[name] = res.Stats[name].Add(c)
				progress.DidntFit += c.DidntFit
			}
			for _, occ := range plan.Occurrences {
				o.merge(res, occ)
				progress.Occurrences++
			}
		}

		o.logger.Debug("day simulated", "day", day+1, "of", o.opts.Days, "occurrences", progress.Occurrences)
		if o.progress != nil {
			o.progress(progress)
		}
	}

	res.MaxConcurrency = MaxConcurrency(clip(res.Operations(), res.Channels.Len()))
	SortEvents(res.Events)
	res.Elapsed = time.Since(res.StartedAt)

	o.logger.Info("simulation completed", "run_id", res.RunID, "occurrences", len(res.Occurrences),
		"max_concurrency", res.MaxConcurrency, "elapsed", res.Elapsed)
	return res, nil
}

// planDay schedules every user on day, in parallel.
func (o *Orchestrator) planDay(ctx context.Context, day int, occupancy []*synthesis.Occupancy) ([]*synthesis.DayPlan, error) {
	plans := make([]*synthesis.DayPlan, len(o.users))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, u := range o.users {
		g.Go(func() error {
			plan, err := o.scheduler.ScheduleDay(u, day, o.streams, occupancy[i])
			if err != nil {
				return fmt.Errorf("user %s day %d: %w", u.Name, day, err)
			}
			plans[i] = plan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

func (o *Orchestrator) merge(res *Result, occ *synthesis.Occurrence) {
	res.Occurrences = append(res.Occurrences, occ)
	res.Events = append(res.Events, occurrenceEvents(occ)...)
	for _, op := range occ.Operations {
		res.Channels.Add(op, occ.User, occ.Activity)
		res.ApplianceRuns[op.ApplianceType]++
	}
}

// clip drops operations that start after the trace and shortens those
// running past its end.
func clip(ops []activity.DeviceOperation, length int64) []activity.DeviceOperation {
	out := ops[:0]
	for _, op := range ops {
		if op.Start >= length {
			continue
		}
		if op.End() > length {
			op.Duration = length - op.Start
		}
		out = append(out, op)
	}
	return out
}
