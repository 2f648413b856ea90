// Package output writes simulation results to disk.
//
// Every channel becomes a semicolon-separated CSV file with one line per
// simulated second ("2001-01-01 00:00:00;123.4"). The event log goes to
// events.csv and a short human-readable report to summary.txt. Timestamps
// start on 2001-01-01, a Monday, shifted forward to the run's first weekday.
package output
