// Package synthesis places activity occurrences on simulated days.
//
// The Synthesizer turns one activity assignment into at most one placed
// occurrence: it draws a start inside the user's candidate windows, executes
// the activity's state machine and accepts the result only if every span
// that needs the user lies inside that weekday's windows, clashes with
// nothing the user already does and the occurrence ends within the trace. Presence is checked once against the finished timeline;
// a rejected execution is discarded and retried with fresh draws, up to a
// bounded number of attempts.
//
// The Scheduler drives the Synthesizer for every assignment of one user on
// one day and counts how many targets were placed and how many did not fit.
package synthesis
