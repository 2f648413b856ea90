package simulation

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
	"github.com/nerrad567/gray-logic-loadsynth/internal/appliance"
	"github.com/nerrad567/gray-logic-loadsynth/internal/household"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
)

func op(typ, handle string, start, duration int64, power float64) activity.DeviceOperation {
	return activity.DeviceOperation{
		ApplianceType: typ,
		DeviceHandle:  handle,
		Start:         start,
		Duration:      duration,
		Samples:       []appliance.Sample{{Offset: 0, Power: power}, {Offset: float64(duration), Power: 0}},
	}
}

func TestStreams(t *testing.T) {
	s := NewStreams(42)
	a := s.For("alice", "COOKING", 3)
	b := s.For("alice", "COOKING", 3)
	for range 10 {
		if a.Uint64() != b.Uint64() {
			t.Fatal("equal arguments produced different sequences")
		}
	}

	distinct := map[uint64]bool{}
	for _, r := range []*rand.Rand{
		s.For("alice", "COOKING", 3),
		s.For("alice", "COOKING", 4),
		s.For("bob", "COOKING", 3),
		s.For("alice", "LAUNDRY", 3),
		NewStreams(43).For("alice", "COOKING", 3),
		s.Named("bindings"),
	} {
		distinct[r.Uint64()] = true
	}
	if len(distinct) != 6 {
		t.Errorf("expected 6 distinct first draws, got %d", len(distinct))
	}
	if s.Seed() != 42 {
		t.Errorf("Seed() = %d", s.Seed())
	}
}

func TestMaxConcurrency(t *testing.T) {
	tests := []struct {
		name string
		ops  []activity.DeviceOperation
		want int
	}{
		{name: "none", want: 0},
		{name: "single", ops: []activity.DeviceOperation{op("A", "a", 0, 10, 1)}, want: 1},
		{
			name: "touching does not overlap",
			ops:  []activity.DeviceOperation{op("A", "a", 0, 10, 1), op("B", "b", 10, 10, 1)},
			want: 1,
		},
		{
			name: "overlapping distinct",
			ops:  []activity.DeviceOperation{op("A", "a", 0, 10, 1), op("B", "b", 5, 10, 1), op("C", "c", 9, 1, 1)},
			want: 3,
		},
		{
			name: "same instance counts once",
			ops:  []activity.DeviceOperation{op("A", "a", 0, 10, 1), op("A", "a", 5, 10, 1)},
			want: 1,
		},
		{
			name: "same type other handle",
			ops:  []activity.DeviceOperation{op("A", "a", 0, 10, 1), op("A", "b", 5, 10, 1)},
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxConcurrency(tt.ops); got != tt.want {
				t.Errorf("MaxConcurrency() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChannels_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	ops := make([]activity.DeviceOperation, 200)
	for i := range ops {
		ops[i] = op("T", "h", rng.Int64N(3500), 1+rng.Int64N(300), rng.Float64()*2000)
	}

	fold := func(order []int) []float64 {
		c := NewChannels(3600)
		for _, i := range order {
			c.Add(ops[i], "alice", "ACT")
		}
		return c.Total()
	}

	ref := fold(rand.New(rand.NewPCG(0, 0)).Perm(len(ops)))
	for seed := uint64(1); seed < 5; seed++ {
		got := fold(rand.New(rand.NewPCG(seed, seed)).Perm(len(ops)))
		if !floats.EqualApprox(ref, got, 1e-9) {
			t.Fatalf("fold order %d changed the aggregate", seed)
		}
	}
}

func TestChannels_AddAndClip(t *testing.T) {
	c := NewChannels(100)
	c.Add(op("KETTLE", "k", 90, 20, 2000), "alice", "TEA")

	total := c.Total()
	if total[89] != 0 || total[90] != 2000 || total[99] != 2000 {
		t.Errorf("total = %v", total[88:])
	}
	for _, key := range []ChannelKey{
		{Kind: KindUser, Name: "alice"},
		{Kind: KindActivity, Name: "TEA"},
		{Kind: KindAppliance, Name: "KETTLE"},
	} {
		s := c.Get(key)
		if len(s) != 100 || s[95] != 2000 {
			t.Errorf("channel %s not filled", key)
		}
	}

	c.Add(op("KETTLE", "k", 150, 20, 2000), "alice", "TEA")
	if Energy(c.Total()) != 2000*10.0/3600 {
		t.Errorf("operation after trace end changed the total")
	}

	keys := c.Keys()
	if len(keys) != 4 || keys[0] != TotalKey || keys[1].Kind != KindUser || keys[3].Kind != KindAppliance {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestParseChannelKey(t *testing.T) {
	tests := []struct {
		in   string
		want ChannelKey
		ok   bool
	}{
		{in: "total", want: TotalKey, ok: true},
		{in: "user/alice", want: ChannelKey{Kind: KindUser, Name: "alice"}, ok: true},
		{in: "appliance/WASHING MACHINE", want: ChannelKey{Kind: KindAppliance, Name: "WASHING MACHINE"}, ok: true},
		{in: "user/", ok: false},
		{in: "garage/car", ok: false},
		{in: "alice", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseChannelKey(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseChannelKey(%q) = %v, %v", tt.in, got, ok)
		}
		if ok && got.String() != tt.in {
			t.Errorf("round trip of %q gave %q", tt.in, got.String())
		}
	}
}

func TestSortEvents(t *testing.T) {
	events := []Event{
		{Time: 10, Action: ActionEnd},
		{Time: 10, Action: ActionOff},
		{Time: 5, Action: ActionOn},
		{Time: 10, Action: ActionStart},
		{Time: 10, Action: ActionOn},
	}
	SortEvents(events)
	want := []string{ActionOn, ActionStart, ActionOn, ActionOff, ActionEnd}
	for i, e := range events {
		if e.Action != want[i] {
			t.Fatalf("event %d = %s, want %s (%v)", i, e.Action, want[i], events)
		}
	}
}

func testHousehold(t *testing.T) ([]*household.User, *activity.Engine) {
	t.Helper()
	lib := appliance.NewLibrary()
	for _, p := range []struct {
		typ, handle string
		dur         float64
	}{
		{"STOVE", "stove", 1800}, {"KETTLE", "k1", 180}, {"KETTLE", "k2", 240}, {"FRIDGE", "fridge", 900},
	} {
		prof, err := appliance.NewProfile(p.typ, p.handle, []appliance.Sample{{Offset: 0, Power: 1000}, {Offset: p.dur, Power: 0}})
		if err != nil {
			t.Fatal(err)
		}
		lib.Add(prof)
	}

	cook := &activity.Model{
		Name:     "COOKING",
		Devices:  map[int]string{1: "STOVE", 2: "KETTLE"},
		Bindings: map[string]string{"STOVE": "stove", "KETTLE": "k1"},
		States: map[int]activity.State{
			0: {ID: 0, Name: "boil", InvolvesUser: true, DeviceKey: 2, Transitions: []activity.Transition{{Target: 1, Probability: 1}}},
			1: {ID: 1, Name: "cook", InvolvesUser: true, RunToCompletion: true, DeviceKey: 1},
		},
	}
	cool := &activity.Model{
		Name:     "COOLING",
		Devices:  map[int]string{1: "FRIDGE"},
		Bindings: map[string]string{"FRIDGE": "fridge"},
		States:   map[int]activity.State{0: {ID: 0, Name: "cycle", RunToCompletion: true, DeviceKey: 1}},
	}

	home := presence.Week{}
	for wd := presence.Monday; wd <= presence.Sunday; wd++ {
		home[wd] = []presence.Interval{{Start: 6 * 3600, End: 9 * 3600}, {Start: 17 * 3600, End: 23 * 3600}}
	}

	var users []*household.User
	for _, name := range []string{"alice", "bob", "carol"} {
		u, err := household.NewUser(name, name, home, []household.Assignment{
			{Activity: cook, DailyRuns: 2},
			{Activity: cool, DailyRuns: 6},
		})
		if err != nil {
			t.Fatal(err)
		}
		users = append(users, u)
	}
	return users, activity.NewEngine(lib, false)
}

func TestOrchestrator_Run(t *testing.T) {
	users, engine := testHousehold(t)
	orch := NewOrchestrator(users, engine, Options{RunID: "run-7", Name: "test", Days: 3, Seed: 7, Workers: 2})

	var days []int
	orch.OnProgress(func(p DayProgress) {
		days = append(days, p.Day)
		if p.RunID != "run-7" {
			t.Errorf("progress RunID = %q, want run-7", p.RunID)
		}
	})

	res, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(days) != 3 || days[2] != 3 {
		t.Errorf("progress days = %v, want [1 2 3]", days)
	}
	if res.Channels.Len() != 3*presence.SecondsPerDay {
		t.Errorf("channel length = %d", res.Channels.Len())
	}

	ops := res.Operations()
	runs := 0
	for _, n := range res.ApplianceRuns {
		runs += n
	}
	if runs != len(ops) {
		t.Errorf("appliance runs = %d, operations = %d", runs, len(ops))
	}

	starts := 0
	for _, e := range res.Events {
		if e.Type == EventActivity && e.Action == ActionStart {
			starts++
		}
	}
	if starts != len(res.Occurrences) {
		t.Errorf("ACT START events = %d, occurrences = %d", starts, len(res.Occurrences))
	}

	scheduled := 0
	for _, c := range res.Stats {
		scheduled += c.Scheduled
	}
	if scheduled != len(res.Occurrences) {
		t.Errorf("scheduled = %d, occurrences = %d", scheduled, len(res.Occurrences))
	}

	sum := make([]float64, res.Channels.Len())
	for _, u := range users {
		floats.Add(sum, res.Channels.Get(ChannelKey{Kind: KindUser, Name: u.Name}))
	}
	if !floats.EqualApprox(sum, res.Channels.Total(), 1e-6) {
		t.Error("user channels do not add up to the total")
	}
	if res.MaxConcurrency < 1 {
		t.Errorf("MaxConcurrency = %d, want >= 1", res.MaxConcurrency)
	}
}

func TestOrchestrator_WorkerCountIndependent(t *testing.T) {
	users, engine := testHousehold(t)

	run := func(workers int) *Result {
		res, err := NewOrchestrator(users, engine, Options{Days: 4, Seed: 99, Workers: workers}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run(workers=%d) error = %v", workers, err)
		}
		return res
	}

	a, b := run(1), run(8)
	if !floats.Equal(a.Channels.Total(), b.Channels.Total()) {
		t.Error("total channel depends on worker count")
	}
	if a.MaxConcurrency != b.MaxConcurrency || len(a.Events) != len(b.Events) {
		t.Error("statistics depend on worker count")
	}
	for name, c := range a.Stats {
		if b.Stats[name] != c {
			t.Errorf("stats[%s] = %+v vs %+v", name, c, b.Stats[name])
		}
	}
}

func TestOrchestrator_Cancelled(t *testing.T) {
	users, engine := testHousehold(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOrchestrator(users, engine, Options{Days: 2, Seed: 1}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestOrchestrator_FatalErrorStopsRun(t *testing.T) {
	users, _ := testHousehold(t)
	empty := activity.NewEngine(appliance.NewLibrary(), false)

	_, err := NewOrchestrator(users, empty, Options{Days: 1, Seed: 1}).Run(context.Background())
	if !errors.Is(err, appliance.ErrProfileSelection) {
		t.Errorf("Run() error = %v, want ErrProfileSelection", err)
	}
}
