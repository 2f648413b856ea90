// Package presence models when a simulated user is at home.
//
// A Week maps each weekday to a sorted list of disjoint, half-open
// second-of-day intervals. The Calendar answers point queries ("is the user
// home on Tuesday at 08:15?") and produces the candidate windows in which an
// activity may be placed: the user's presence intersected with an optional
// activity-specific restriction.
//
// Weekdays are numbered from Monday (0) to Sunday (6).
package presence
