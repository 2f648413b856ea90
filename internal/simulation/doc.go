// Package simulation runs a household over a number of simulated days.
//
// The Orchestrator plans every day for every user (users of one day in
// parallel, days in order), folds each device operation into the
// aggregate channels, builds the event log and measures the largest number
// of distinct appliances running at the same time.
//
// Randomness comes from Streams: one generator per (user, activity, day),
// derived from the run seed. The result of a run therefore depends on the
// seed only, not on the number of workers or the order they finish in.
//
// Channels hold one float64 per simulated second:
//
//	total                 whole house
//	user/<name>           one per user
//	activity/<name>       one per activity
//	appliance/<type>      one per appliance type
package simulation
