// Package activity models user activities as probabilistic state machines
// and executes them into timed appliance operations.
//
// A Model is an explicit state table: state id -> duration bounds, user
// involvement, blocking behaviour, optional device and up to two weighted
// transitions. State 0 is the entry state. Moving to an id that is not in
// the table ends the activity normally.
//
// The Engine walks a Model from a start time with a caller-owned random
// stream. States whose device runs in the background do not block the
// machine; their operations are tracked as in-flight and the execution ends
// when the last of them finishes.
//
// Usage:
//
//	engine := activity.NewEngine(library, false)
//	exec, err := engine.Execute(model, start, rng)
//	if err != nil {
//	    return err
//	}
//	for _, op := range exec.Operations {
//	    fmt.Println(op.ApplianceType, op.Start, op.Duration)
//	}
package activity
